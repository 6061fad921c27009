package emitters

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"token-management-backend/internal/bridge"
	"token-management-backend/internal/common/logger"
)

// KafkaEmitter publishes recorded transfers to a Kafka topic, keyed by
// the chain event ID.
type KafkaEmitter struct {
	writer *kafka.Writer
	log    zerolog.Logger
	mu     sync.Mutex
}

func NewKafkaEmitter(brokerAddress, topic string) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokerAddress),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		log: logger.Component("kafka"),
	}
}

func (k *KafkaEmitter) EmitTransfer(ctx context.Context, event bridge.TransferEvent) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.EventID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	k.log.Debug().
		Str("event_id", event.EventID).
		Msg("Emitted transfer to Kafka")
	return nil
}

func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}
