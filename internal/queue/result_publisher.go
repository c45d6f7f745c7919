package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ResultPublisher publishes normalized detection results.
type ResultPublisher struct {
	writer *kafka.Writer
}

// NewResultPublisher constructs a publisher for the given topic.
func NewResultPublisher(k *Kafka, topic string) *ResultPublisher {
	return &ResultPublisher{writer: k.NewWriter(topic)}
}

// PublishResult emits a result message to Kafka.
func (p *ResultPublisher) PublishResult(ctx context.Context, msg DetectionResultMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("result publisher: marshal message: %w", err)
	}
	record := kafka.Message{
		Key:   msg.CallID[:],
		Value: value,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("result publisher: write message: %w", err)
	}
	return nil
}

// Close closes the publisher.
func (p *ResultPublisher) Close() error {
	return p.writer.Close()
}
