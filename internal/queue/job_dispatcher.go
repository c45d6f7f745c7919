package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// JobDispatcher publishes detection jobs for the detect worker.
type JobDispatcher struct {
	writer *kafka.Writer
}

// NewJobDispatcher constructs a dispatcher for the given topic.
func NewJobDispatcher(k *Kafka, topic string) *JobDispatcher {
	return &JobDispatcher{writer: k.NewWriter(topic)}
}

// DispatchJob writes the detection job to Kafka.
func (d *JobDispatcher) DispatchJob(ctx context.Context, msg DetectionJobMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("job dispatcher: marshal message: %w", err)
	}

	record := kafka.Message{
		Key:   msg.CallID[:],
		Value: value,
		Time:  time.Now().UTC(),
	}

	if err := d.writer.WriteMessages(ctx, record); err != nil {
		return fmt.Errorf("job dispatcher: write message: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (d *JobDispatcher) Close() error {
	return d.writer.Close()
}
