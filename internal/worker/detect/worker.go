package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/amd-screening/internal/app"
	"github.com/acme/amd-screening/internal/detection"
	"github.com/acme/amd-screening/internal/domain"
	"github.com/acme/amd-screening/internal/queue"
	"github.com/acme/amd-screening/internal/service/common"
	"github.com/acme/amd-screening/internal/service/concurrency"
)

// Worker consumes detection jobs and runs the audio-driven strategies.
type Worker struct {
	container  *app.Container
	limiter    *concurrency.Limiter
	strategies map[domain.StrategyKind]detection.Strategy
}

// New creates a new detect worker instance.
func New(container *app.Container) *Worker {
	return &Worker{
		container:  container,
		limiter:    container.Limiters().Concurrency,
		strategies: make(map[domain.StrategyKind]detection.Strategy),
	}
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.container.Config
	reader := w.container.Kafka.NewReader(cfg.Kafka.JobTopic, cfg.Kafka.JobConsumerGroupID)
	defer reader.Close()
	defer w.cleanupStrategies()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.container.Logger.Error("detect worker: fetch message", zap.Error(err))
			continue
		}

		if err := w.processMessage(ctx, reader, m); err != nil {
			w.container.Logger.Error("detect worker: process", zap.Error(err))
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, reader *kafka.Reader, m kafka.Message) error {
	var job queue.DetectionJobMessage
	if err := json.Unmarshal(m.Value, &job); err != nil {
		_ = reader.CommitMessages(ctx, m)
		return fmt.Errorf("unmarshal detection job: %w", err)
	}

	tracer := otel.Tracer("amd.detectworker")
	sctx, span := tracer.Start(ctx, "detection.detect", trace.WithAttributes(
		attribute.String("call.id", job.CallID.String()),
		attribute.String("strategy", string(job.Strategy)),
	))
	defer span.End()

	if job.Strategy.EventDriven() {
		w.container.Logger.Warn("detect worker: event-driven strategy on job topic",
			zap.String("strategy", string(job.Strategy)),
			zap.String("call_id", job.CallID.String()),
		)
		return reader.CommitMessages(sctx, m)
	}

	audio, err := common.DecodeBase64(job.AudioB64)
	if err != nil {
		span.RecordError(err)
		_ = reader.CommitMessages(sctx, m)
		return fmt.Errorf("decode job audio: %w", err)
	}

	release, err := w.waitForSlot(sctx, job.CampaignID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if release != nil {
		defer release()
	}

	strategy, err := w.strategy(sctx, job.Strategy)
	if err != nil {
		span.RecordError(err)
		_ = reader.CommitMessages(sctx, m)
		return fmt.Errorf("resolve strategy %s: %w", job.Strategy, err)
	}

	result, err := strategy.Detect(sctx, audio)
	if err != nil {
		// Only caller misuse reaches here; recoverable failures come back
		// as data inside the result.
		span.RecordError(err)
		_ = reader.CommitMessages(sctx, m)
		return fmt.Errorf("detect: %w", err)
	}

	if err := w.container.Services().Screening.ApplyResult(sctx, job.CallID, job.Strategy, result); err != nil {
		span.RecordError(err)
		w.container.Logger.Error("detect worker: apply result", zap.Error(err))
	}

	if err := reader.CommitMessages(sctx, m); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit message: %w", err)
	}
	return nil
}

func (w *Worker) waitForSlot(ctx context.Context, campaignID uuid.UUID) (func(), error) {
	limiter := w.limiter
	if limiter == nil || campaignID == uuid.Nil {
		return nil, nil
	}

	limit := w.container.Config.Throttle.DefaultPerCampaign
	if limit <= 0 {
		return nil, nil
	}

	for {
		acquired, err := limiter.Acquire(ctx, campaignID, limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if acquired {
			release := func() {
				if err := limiter.Release(context.Background(), campaignID); err != nil {
					w.container.Logger.Warn("detect worker: release slot", zap.Error(err))
				}
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (w *Worker) strategy(ctx context.Context, kind domain.StrategyKind) (detection.Strategy, error) {
	if cached, ok := w.strategies[kind]; ok {
		return cached, nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	strategy, err := w.container.Registry().Create(initCtx, kind)
	if err != nil {
		return nil, err
	}
	w.strategies[kind] = strategy
	return strategy, nil
}

func (w *Worker) cleanupStrategies() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, s := range w.strategies {
		_ = s.Cleanup(ctx)
	}
}
