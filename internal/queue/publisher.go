// Package queue decouples webhook acknowledgment from processing via a
// Kafka topic: the HTTP handler publishes jobs and returns; the worker
// consumes them at its own pace.
package queue

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// Publisher enqueues one job payload. The API handler depends on this
// interface so tests can capture published jobs.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any, headers map[string]string) error
	Close() error
}

// KafkaPublisher writes jobs to a single topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher builds a synchronous publisher for the topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		},
	}
}

// Publish serializes the payload as JSON and writes one message. The key
// keeps jobs for the same owner on one partition, preserving per-athlete
// ordering without any global ordering claim.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, payload any, headers map[string]string) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := kafka.Message{Key: []byte(key), Value: value}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close releases the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
