package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"geodrop/internal/observability/metrics"
)

// MessageHandler processes one consumed message. A nil return commits it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to MessageHandler.
type HandlerFunc func(ctx context.Context, msg Message) error

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Consumer runs a consumer group over a single topic.
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler MessageHandler
	log     logrus.FieldLogger
}

// NewConsumer joins groupID. A new group starts from the oldest retained
// offset so no audit event is skipped.
func NewConsumer(brokers []string, groupID, topic string, handler MessageHandler, log logrus.FieldLogger) (*Consumer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V3_5_0_0
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRange()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true
	group, err := sarama.NewConsumerGroup(cleanBrokers(brokers), groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: group, topic: topic, handler: handler, log: log}, nil
}

// Start consumes until ctx is canceled or the group fails. Each rebalance
// starts a new session.
func (c *Consumer) Start(ctx context.Context) error {
	go c.logErrors()
	handler := &groupHandler{handler: c.handler, log: c.log}
	for {
		err := c.group.Consume(ctx, []string{c.topic}, handler)
		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		case err != nil:
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) logErrors() {
	for err := range c.group.Errors() {
		c.log.WithError(err).Warn("kafka consumer group error")
	}
}

// Close leaves the group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	handler MessageHandler
	log     logrus.FieldLogger
}

func (h *groupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.log.WithFields(logrus.Fields{
		"member":     session.MemberID(),
		"generation": session.GenerationID(),
		"claims":     session.Claims(),
	}).Info("kafka session started")
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks a message only after the handler accepted it. A handler
// error ends the session so the message is redelivered.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			start := time.Now()
			err := h.handler.HandleMessage(ctx, fromRecord(rec))
			metrics.ObserveKafkaOperation("consumer_message", time.Since(start))
			if err != nil {
				h.log.WithFields(logrus.Fields{
					"topic":     rec.Topic,
					"partition": rec.Partition,
					"offset":    rec.Offset,
				}).WithError(err).Error("message not handled")
				return err
			}
			session.MarkMessage(rec, "")
		}
	}
}

func fromRecord(rec *sarama.ConsumerMessage) Message {
	msg := Message{
		Key:       string(rec.Key),
		Value:     rec.Value,
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Timestamp: rec.Timestamp,
	}
	if len(rec.Headers) > 0 {
		msg.Headers = make(map[string]string, len(rec.Headers))
		for _, hdr := range rec.Headers {
			if hdr != nil {
				msg.Headers[string(hdr.Key)] = string(hdr.Value)
			}
		}
	}
	return msg
}
