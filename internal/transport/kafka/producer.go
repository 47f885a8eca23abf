package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"fooddispatch/internal/event"
)

// Producer publishes typed events, one topic per kind, keyed by the entity id
// so all events for an order or courier land on the same partition in order.
type Producer struct {
	sp sarama.SyncProducer
}

// NewProducer creates a new Kafka producer.
func NewProducer(brokers []string, clientID string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &Producer{sp: sp}, nil
}

// Emit publishes a single event.
func (p *Producer) Emit(ctx context.Context, ev event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Topic(), err)
	}

	_, _, err = p.sp.SendMessage(&sarama.ProducerMessage{
		Topic: ev.Topic(),
		Key:   sarama.StringEncoder(ev.Key()),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("emit %s key=%s: %w", ev.Topic(), ev.Key(), err)
	}
	return nil
}

// Close shuts down the underlying producer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.sp.Close()
}
