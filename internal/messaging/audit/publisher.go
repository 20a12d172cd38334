package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/sirupsen/logrus"

	"geodrop/internal/domain/airdrop"
	"geodrop/internal/kafka"
)

// Header names set on every audit record.
const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
)

// Sender delivers one record. *kafka.Producer satisfies it.
type Sender interface {
	Send(ctx context.Context, msg kafka.Message) error
}

// Publisher encodes audit events as JSON records.
type Publisher struct {
	sender Sender
}

// NewPublisher constructs a Publisher.
func NewPublisher(sender Sender) *Publisher {
	return &Publisher{sender: sender}
}

// Publish sends event. Events of one airdrop share a key and stay ordered.
func (p *Publisher) Publish(ctx context.Context, event airdrop.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.sender.Send(ctx, kafka.Message{
		Key:   partitionKey(event),
		Value: payload,
		Headers: map[string]string{
			HeaderEventID:   event.ID,
			HeaderEventType: event.Type,
		},
	})
}

func partitionKey(event airdrop.Event) string {
	if event.AirdropID != 0 {
		return "airdrop:" + strconv.FormatUint(event.AirdropID, 10)
	}
	return "treasury"
}

// LogPublisher writes events to the log when Kafka is disabled.
type LogPublisher struct {
	log logrus.FieldLogger
}

// NewLogPublisher constructs a LogPublisher.
func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event airdrop.Event) error {
	p.log.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"actor":      event.Actor,
		"airdrop_id": event.AirdropID,
		"amount":     event.Amount,
	}).Debug("audit event")
	return nil
}
