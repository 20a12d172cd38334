package kafka

import "time"

// Message is the transport-neutral form of a Kafka record.
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
	// Set on consumed messages only.
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
}
