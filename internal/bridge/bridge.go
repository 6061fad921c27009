package bridge

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"token-management-backend/internal/common/logger"
)

// transferEventSignature is the topic of the ERC-20 Transfer event.
var transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

const (
	initialBackoff    = time.Second
	maxBackoff        = 30 * time.Second
	recordAttempts    = 5
	recordRetryDelay  = 2 * time.Second
	logChannelBuffer  = 64
	steadyStreamReset = time.Minute
)

// EventSource is the slice of the chain client the bridge needs.
// *ethclient.Client satisfies it.
type EventSource interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Recorder persists one decoded transfer. It reports false when the
// chain event was already recorded.
type Recorder interface {
	Record(ctx context.Context, eventID, from, to, amount string) (bool, error)
}

// TransferEvent is a chain Transfer log decoded into ledger terms.
type TransferEvent struct {
	EventID string `json:"event_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  string `json:"amount"`
}

// TransferEmitter fans a recorded transfer out to an external sink.
type TransferEmitter interface {
	EmitTransfer(ctx context.Context, event TransferEvent) error
}

// Bridge subscribes to the token contract's Transfer logs and turns
// each one into a ledger entry. Logs are consumed strictly one at a
// time: the write for event N completes (or is dropped after retries)
// before event N+1 is looked at.
type Bridge struct {
	source   EventSource
	contract common.Address
	recorder Recorder
	emitter  TransferEmitter // optional
	log      zerolog.Logger
}

func New(source EventSource, contract string, recorder Recorder, emitter TransferEmitter) *Bridge {
	return &Bridge{
		source:   source,
		contract: common.HexToAddress(contract),
		recorder: recorder,
		emitter:  emitter,
		log:      logger.Component("bridge"),
	}
}

// Run keeps the subscription alive until ctx is cancelled, reconnecting
// with exponential backoff after drops and subscribe failures.
func (b *Bridge) Run(ctx context.Context) {
	backoff := initialBackoff
	for {
		start := time.Now()
		err := b.stream(ctx)
		if ctx.Err() != nil {
			b.log.Info().Msg("Event bridge stopped")
			return
		}
		if time.Since(start) > steadyStreamReset {
			backoff = initialBackoff
		}

		b.log.Error().
			Err(err).
			Dur("retry_in", backoff).
			Msg("Event subscription lost, reconnecting")

		select {
		case <-ctx.Done():
			b.log.Info().Msg("Event bridge stopped")
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (b *Bridge) stream(ctx context.Context) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{b.contract},
		Topics:    [][]common.Hash{{transferEventSignature}},
	}

	logs := make(chan types.Log, logChannelBuffer)
	sub, err := b.source.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	b.log.Info().
		Str("contract", b.contract.Hex()).
		Msg("Subscribed to transfer events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case lg := <-logs:
			b.handleLog(ctx, lg)
		}
	}
}

func (b *Bridge) handleLog(ctx context.Context, lg types.Log) {
	event, err := decodeTransfer(lg)
	if err != nil {
		b.log.Warn().
			Err(err).
			Str("tx_hash", lg.TxHash.Hex()).
			Msg("Skipping malformed transfer log")
		return
	}

	for attempt := 1; ; attempt++ {
		recorded, err := b.recorder.Record(ctx, event.EventID, event.From, event.To, event.Amount)
		if err == nil {
			if recorded {
				b.log.Info().
					Str("from", event.From).
					Str("to", event.To).
					Str("amount", event.Amount).
					Msgf("Logged transfer: %s -> %s, %s TOK", event.From, event.To, event.Amount)
				b.emit(ctx, event)
			}
			return
		}

		if attempt >= recordAttempts {
			b.log.Error().
				Err(err).
				Str("event_id", event.EventID).
				Msg("Dropping transfer event after repeated store failures")
			return
		}

		b.log.Warn().
			Err(err).
			Str("event_id", event.EventID).
			Int("attempt", attempt).
			Msg("Store write failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(recordRetryDelay):
		}
	}
}

func (b *Bridge) emit(ctx context.Context, event TransferEvent) {
	if b.emitter == nil {
		return
	}
	if err := b.emitter.EmitTransfer(ctx, event); err != nil {
		// Fan-out is best effort; the ledger write already happened.
		b.log.Warn().
			Err(err).
			Str("event_id", event.EventID).
			Msg("Transfer fan-out failed")
	}
}

func decodeTransfer(lg types.Log) (TransferEvent, error) {
	if len(lg.Topics) != 3 || lg.Topics[0] != transferEventSignature {
		return TransferEvent{}, fmt.Errorf("unexpected topics: %d", len(lg.Topics))
	}
	if len(lg.Data) != 32 {
		return TransferEvent{}, fmt.Errorf("unexpected data length: %d", len(lg.Data))
	}

	return TransferEvent{
		EventID: fmt.Sprintf("%s:%d", lg.TxHash.Hex(), lg.Index),
		From:    common.BytesToAddress(lg.Topics[1].Bytes()).Hex(),
		To:      common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
		Amount:  new(big.Int).SetBytes(lg.Data).String(),
	}, nil
}
