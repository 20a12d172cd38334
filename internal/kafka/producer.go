package kafka

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"geodrop/internal/observability/metrics"
)

const clientID = "geodrop"

// Producer publishes keyed messages to one topic and waits for the full ISR.
type Producer struct {
	client sarama.SyncProducer
	topic  string
}

// NewProducer connects an idempotent producer. Records sharing a key are
// hashed to the same partition.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Version = sarama.V3_5_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	producer, err := sarama.NewSyncProducer(cleanBrokers(brokers), cfg)
	if err != nil {
		return nil, err
	}
	return NewProducerFromClient(producer, topic), nil
}

// NewProducerFromClient wraps client, typically a mocks.SyncProducer in tests.
func NewProducerFromClient(client sarama.SyncProducer, topic string) *Producer {
	return &Producer{client: client, topic: topic}
}

// Close flushes and shuts down the producer.
func (p *Producer) Close() error {
	return p.client.Close()
}

// Send publishes msg and blocks until the broker acknowledged it.
func (p *Producer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.ObserveKafkaOperation("producer_send", time.Since(start)) }()
	_, _, err := p.client.SendMessage(p.record(msg))
	return err
}

func (p *Producer) record(msg Message) *sarama.ProducerMessage {
	rec := &sarama.ProducerMessage{Topic: p.topic, Value: sarama.ByteEncoder(msg.Value)}
	if msg.Key != "" {
		rec.Key = sarama.StringEncoder(msg.Key)
	}
	if len(msg.Headers) > 0 {
		names := make([]string, 0, len(msg.Headers))
		for k := range msg.Headers {
			names = append(names, k)
		}
		sort.Strings(names)
		rec.Headers = make([]sarama.RecordHeader, 0, len(names))
		for _, k := range names {
			rec.Headers = append(rec.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(msg.Headers[k])})
		}
	}
	return rec
}

func cleanBrokers(brokers []string) []string {
	out := brokers[:0:0]
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
