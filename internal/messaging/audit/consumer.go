package audit

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"geodrop/internal/domain/airdrop"
	"geodrop/internal/kafka"
)

// Handler reacts to decoded audit events.
type Handler interface {
	HandleEvent(ctx context.Context, event airdrop.Event) error
}

// HandlerFunc makes ordinary functions usable as audit handlers.
type HandlerFunc func(ctx context.Context, event airdrop.Event) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event airdrop.Event) error {
	return f(ctx, event)
}

// Consumer feeds decoded audit events to a Handler.
type Consumer struct {
	consumer *kafka.Consumer
}

// NewConsumer wires the handler through the low-level consumer.
func NewConsumer(brokers []string, groupID, topic string, handler Handler, log logrus.FieldLogger) (*Consumer, error) {
	cons, err := kafka.NewConsumer(brokers, groupID, topic, Decode(handler, log), log)
	if err != nil {
		return nil, err
	}
	return &Consumer{consumer: cons}, nil
}

// Decode adapts handler to raw records. Undecodable records are logged and
// skipped so one bad message cannot stall the partition.
func Decode(handler Handler, log logrus.FieldLogger) kafka.MessageHandler {
	return kafka.HandlerFunc(func(ctx context.Context, msg kafka.Message) error {
		entry := log.WithFields(logrus.Fields{
			"key":       msg.Key,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		})
		var event airdrop.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			entry.WithError(err).Warn("audit record skipped: decode failed")
			return nil
		}
		if event.ID == "" || event.Type == "" {
			entry.Warn("audit record skipped: missing id or type")
			return nil
		}
		return handler.HandleEvent(ctx, event)
	})
}

// Start begins consuming events.
func (c *Consumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close cleans up resources.
func (c *Consumer) Close() error {
	return c.consumer.Close()
}
