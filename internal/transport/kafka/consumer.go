package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"fooddispatch/internal/event"
	"fooddispatch/internal/logx"
)

// HandleFunc processes a single decoded event.
type HandleFunc func(context.Context, event.Event) error

// Consumer wraps a Sarama consumer group subscribed to every event topic and
// dispatches each message to the handler. A handler error is returned to the
// group so the message is redelivered; permanent errors are marked and
// skipped.
type Consumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler HandleFunc
	logger  logx.Logger
}

// NewConsumer creates a new Kafka consumer group over the given topics.
// Returns nil when the transport is not configured; the caller decides
// whether running without a consumer is acceptable.
func NewConsumer(brokers []string, groupID string, topics []string, h HandleFunc, logger logx.Logger) (*Consumer, error) {
	if len(brokers) == 0 || strings.TrimSpace(groupID) == "" || len(topics) == 0 {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:   group,
		topics:  topics,
		handler: h,
		logger:  logger,
	}, nil
}

// Run starts the consumer loop until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}

	for {
		if err := c.group.Consume(ctx, c.topics, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("kafka consume error", logx.Err(err))
			time.Sleep(time.Second)
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close shuts down the consumer group.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		ev, err := event.Decode(msg.Topic, msg.Value)
		if err != nil {
			// Redelivery cannot fix a malformed payload.
			h.c.logger.Warn("kafka: dropping undecodable message",
				logx.String("topic", msg.Topic),
				logx.Err(err),
			)
			sess.MarkMessage(msg, "")
			continue
		}

		if err := h.c.handler(sess.Context(), ev); err != nil {
			var perm PermanentError
			if errors.As(err, &perm) {
				h.c.logger.Error("kafka: permanent handler failure, dropping",
					logx.String("topic", msg.Topic),
					logx.String("key", ev.Key()),
					logx.Err(err),
				)
				sess.MarkMessage(msg, "")
				continue
			}
			h.c.logger.Error("kafka: handle failed, will retry",
				logx.String("topic", msg.Topic),
				logx.String("key", ev.Key()),
				logx.Err(err),
			)
			return err
		}

		sess.MarkMessage(msg, "")
	}
	return nil
}
