package bridge

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = "0xcccccccccccccccccccccccccccccccccccccccc"
	addrA        = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	addrB        = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type fakeSub struct {
	errCh chan error
}

func (s *fakeSub) Unsubscribe() {}

func (s *fakeSub) Err() <-chan error { return s.errCh }

type fakeSource struct {
	mu         sync.Mutex
	logCh      chan<- types.Log
	sub        *fakeSub
	failures   int
	subscribes int
}

func (s *fakeSource) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscribes++
	if s.subscribes <= s.failures {
		return nil, errors.New("connection refused")
	}

	s.logCh = ch
	s.sub = &fakeSub{errCh: make(chan error, 1)}
	return s.sub, nil
}

func (s *fakeSource) push(t *testing.T, lg types.Log) {
	t.Helper()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.logCh != nil
	}, 5*time.Second, 10*time.Millisecond, "bridge never subscribed")

	s.mu.Lock()
	ch := s.logCh
	s.mu.Unlock()
	ch <- lg
}

func (s *fakeSource) dropStream(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sub.errCh <- err
	s.logCh = nil
}

type recordCall struct {
	eventID, from, to, amount string
}

type captureRecorder struct {
	mu    sync.Mutex
	calls []recordCall
	seen  map[string]bool
	fail  int
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{seen: make(map[string]bool)}
}

func (r *captureRecorder) Record(ctx context.Context, eventID, from, to, amount string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail > 0 {
		r.fail--
		return false, errors.New("store unavailable")
	}

	r.calls = append(r.calls, recordCall{eventID, from, to, amount})
	if r.seen[eventID] {
		return false, nil
	}
	r.seen[eventID] = true
	return true, nil
}

func (r *captureRecorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *captureRecorder) call(i int) recordCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

type captureEmitter struct {
	mu     sync.Mutex
	events []TransferEvent
}

func (e *captureEmitter) EmitTransfer(ctx context.Context, event TransferEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *captureEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

func transferLog(txHash string, index uint, from, to common.Address, amount int64) types.Log {
	return types.Log{
		Address: common.HexToAddress(testContract),
		Topics: []common.Hash{
			transferEventSignature,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:   common.BigToHash(big.NewInt(amount)).Bytes(),
		TxHash: common.HexToHash(txHash),
		Index:  index,
	}
}

func startBridge(t *testing.T, source *fakeSource, recorder Recorder, emitter TransferEmitter) (cancel func(), done chan struct{}) {
	t.Helper()

	ctx, cancelCtx := context.WithCancel(context.Background())
	done = make(chan struct{})
	go func() {
		defer close(done)
		New(source, testContract, recorder, emitter).Run(ctx)
	}()
	return cancelCtx, done
}

func TestBridgeRecordsTransfer(t *testing.T) {
	source := &fakeSource{}
	recorder := newCaptureRecorder()
	emitter := &captureEmitter{}
	cancel, done := startBridge(t, source, recorder, emitter)
	defer func() { cancel(); <-done }()

	source.push(t, transferLog("0x01", 0, addrA, addrB, 10))

	require.Eventually(t, func() bool { return recorder.callCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	call := recorder.call(0)
	assert.Equal(t, common.HexToHash("0x01").Hex()+":0", call.eventID)
	assert.Equal(t, addrA.Hex(), call.from)
	assert.Equal(t, addrB.Hex(), call.to)
	assert.Equal(t, "10", call.amount)

	require.Eventually(t, func() bool { return emitter.count() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestBridgePreservesDeliveryOrder(t *testing.T) {
	source := &fakeSource{}
	recorder := newCaptureRecorder()
	cancel, done := startBridge(t, source, recorder, nil)
	defer func() { cancel(); <-done }()

	for i := int64(0); i < 3; i++ {
		source.push(t, transferLog("0x02", uint(i), addrA, addrB, 10+i))
	}

	require.Eventually(t, func() bool { return recorder.callCount() == 3 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "10", recorder.call(0).amount)
	assert.Equal(t, "11", recorder.call(1).amount)
	assert.Equal(t, "12", recorder.call(2).amount)
}

func TestBridgeRedeliveryEmitsOnce(t *testing.T) {
	source := &fakeSource{}
	recorder := newCaptureRecorder()
	emitter := &captureEmitter{}
	cancel, done := startBridge(t, source, recorder, emitter)
	defer func() { cancel(); <-done }()

	lg := transferLog("0x03", 1, addrA, addrB, 10)
	source.push(t, lg)
	source.push(t, lg)

	require.Eventually(t, func() bool { return recorder.callCount() == 2 }, 5*time.Second, 10*time.Millisecond)

	// The store guard reported the second delivery as a duplicate, so
	// only one fan-out happens.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, emitter.count())
}

func TestBridgeSkipsMalformedLog(t *testing.T) {
	source := &fakeSource{}
	recorder := newCaptureRecorder()
	cancel, done := startBridge(t, source, recorder, nil)
	defer func() { cancel(); <-done }()

	// Missing topics: skipped without a store write.
	source.push(t, types.Log{
		Topics: []common.Hash{transferEventSignature},
		TxHash: common.HexToHash("0x04"),
	})
	source.push(t, transferLog("0x05", 0, addrA, addrB, 7))

	require.Eventually(t, func() bool { return recorder.callCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "7", recorder.call(0).amount)
}

func TestBridgeRetriesStoreFailure(t *testing.T) {
	source := &fakeSource{}
	recorder := newCaptureRecorder()
	recorder.fail = 1
	cancel, done := startBridge(t, source, recorder, nil)
	defer func() { cancel(); <-done }()

	source.push(t, transferLog("0x06", 0, addrA, addrB, 10))

	require.Eventually(t, func() bool { return recorder.callCount() == 1 }, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, "10", recorder.call(0).amount)
}

func TestBridgeResubscribesAfterDrop(t *testing.T) {
	source := &fakeSource{}
	recorder := newCaptureRecorder()
	cancel, done := startBridge(t, source, recorder, nil)
	defer func() { cancel(); <-done }()

	source.push(t, transferLog("0x07", 0, addrA, addrB, 1))
	require.Eventually(t, func() bool { return recorder.callCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	source.dropStream(errors.New("websocket closed"))

	source.push(t, transferLog("0x07", 1, addrA, addrB, 2))
	require.Eventually(t, func() bool { return recorder.callCount() == 2 }, 10*time.Second, 50*time.Millisecond)

	source.mu.Lock()
	subscribes := source.subscribes
	source.mu.Unlock()
	assert.Equal(t, 2, subscribes)
}

func TestBridgeReconnectsAfterSubscribeFailure(t *testing.T) {
	source := &fakeSource{failures: 1}
	recorder := newCaptureRecorder()
	cancel, done := startBridge(t, source, recorder, nil)
	defer func() { cancel(); <-done }()

	source.push(t, transferLog("0x08", 0, addrA, addrB, 3))
	require.Eventually(t, func() bool { return recorder.callCount() == 1 }, 10*time.Second, 50*time.Millisecond)
}

func TestBridgeStopsOnCancel(t *testing.T) {
	source := &fakeSource{}
	recorder := newCaptureRecorder()
	cancel, done := startBridge(t, source, recorder, nil)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop on context cancellation")
	}
}
