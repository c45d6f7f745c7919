package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/amd-screening/internal/app"
	"github.com/acme/amd-screening/internal/detection"
	"github.com/acme/amd-screening/internal/domain"
	"github.com/acme/amd-screening/internal/queue"
)

// Worker consumes provider AMD webhook events and runs the event-driven
// strategies on them.
type Worker struct {
	container *app.Container
	// strategies caches initialized interpreters per kind; the event-driven
	// adapters are side-effect-free so one instance serves all calls.
	strategies map[domain.StrategyKind]detection.EventInterpreter
}

// New creates a new event worker.
func New(container *app.Container) *Worker {
	return &Worker{
		container:  container,
		strategies: make(map[domain.StrategyKind]detection.EventInterpreter),
	}
}

// Run processes provider events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.container.Config
	reader := w.container.Kafka.NewReader(cfg.Kafka.EventTopic, cfg.Kafka.EventConsumerGroupID)
	defer reader.Close()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.container.Logger.Error("event worker: fetch message", zap.Error(err))
			continue
		}

		if err := w.processMessage(ctx, reader, m); err != nil {
			w.container.Logger.Error("event worker: process", zap.Error(err))
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, reader *kafka.Reader, m kafka.Message) error {
	var msg queue.ProviderEventMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		_ = reader.CommitMessages(ctx, m)
		return fmt.Errorf("unmarshal provider event: %w", err)
	}

	tracer := otel.Tracer("amd.eventworker")
	sctx, span := tracer.Start(ctx, "detection.interpret_event", trace.WithAttributes(
		attribute.String("call.id", msg.CallID.String()),
		attribute.String("strategy", string(msg.Strategy)),
		attribute.String("event", msg.Event),
	))
	defer span.End()

	if !msg.Strategy.EventDriven() {
		// Misrouted message; audio strategies never consume this topic.
		w.container.Logger.Warn("event worker: non-event-driven strategy on event topic",
			zap.String("strategy", string(msg.Strategy)),
			zap.String("call_id", msg.CallID.String()),
		)
		return reader.CommitMessages(sctx, m)
	}

	interpreter, err := w.interpreter(sctx, msg.Strategy)
	if err != nil {
		span.RecordError(err)
		_ = reader.CommitMessages(sctx, m)
		return fmt.Errorf("resolve strategy %s: %w", msg.Strategy, err)
	}

	event := domain.ProviderEvent{
		CallID:     msg.CallID,
		CampaignID: msg.CampaignID,
		Name:       msg.Event,
		Payload:    msg.Payload,
		ReceivedAt: msg.OccurredAt,
	}

	result, err := interpreter.InterpretEvent(sctx, event)
	if err != nil {
		span.RecordError(err)
		_ = reader.CommitMessages(sctx, m)
		return fmt.Errorf("interpret event: %w", err)
	}

	if err := w.container.Services().Screening.ApplyResult(sctx, msg.CallID, msg.Strategy, result); err != nil {
		span.RecordError(err)
		w.container.Logger.Error("event worker: apply result", zap.Error(err))
	}

	if err := reader.CommitMessages(sctx, m); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit message: %w", err)
	}
	return nil
}

func (w *Worker) interpreter(ctx context.Context, kind domain.StrategyKind) (detection.EventInterpreter, error) {
	if cached, ok := w.strategies[kind]; ok {
		return cached, nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	strategy, err := w.container.Registry().Create(initCtx, kind)
	if err != nil {
		return nil, err
	}
	interpreter, ok := strategy.(detection.EventInterpreter)
	if !ok {
		return nil, fmt.Errorf("strategy %s does not interpret events", kind)
	}
	w.strategies[kind] = interpreter
	return interpreter, nil
}
