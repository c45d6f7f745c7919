package screening

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/acme/amd-screening/internal/domain"
	"github.com/acme/amd-screening/internal/queue"
	"github.com/acme/amd-screening/internal/repository"
	"github.com/acme/amd-screening/internal/service/common"
	"github.com/acme/amd-screening/internal/telephony"
	apperrors "github.com/acme/amd-screening/pkg/errors"
)

// JobDispatcher pushes detection jobs for the audio-driven strategies.
type JobDispatcher interface {
	DispatchJob(ctx context.Context, msg queue.DetectionJobMessage) error
}

// ResultPublisher emits normalized results for downstream consumers.
type ResultPublisher interface {
	PublishResult(ctx context.Context, msg queue.DetectionResultMessage) error
}

// Service coordinates the screening lifecycle around the detection core:
// create the call record, originate the call, route input to the right
// strategy entry point, and persist whatever result comes back.
type Service struct {
	records   repository.CallRecordRepository
	attempts  repository.DetectionAttemptStore
	provider  telephony.Provider
	jobs      JobDispatcher
	results   ResultPublisher
}

// NewService builds the screening service.
func NewService(
	records repository.CallRecordRepository,
	attempts repository.DetectionAttemptStore,
	provider telephony.Provider,
	jobs JobDispatcher,
	results ResultPublisher,
) *Service {
	return &Service{
		records:  records,
		attempts: attempts,
		provider: provider,
		jobs:     jobs,
		results:  results,
	}
}

// TriggerScreeningInput encapsulates the arguments for screening a call.
// Audio is required for the audio-driven strategies and ignored otherwise;
// event-driven strategies receive their input later via provider webhooks.
type TriggerScreeningInput struct {
	CampaignID  *uuid.UUID
	PhoneNumber string
	Strategy    domain.StrategyKind
	Audio       []byte
	SampleRate  int
}

// TriggerScreening creates the call record, places the outbound call and,
// for audio-driven strategies, enqueues the detection job.
func (s *Service) TriggerScreening(ctx context.Context, input TriggerScreeningInput) (*domain.CallRecord, error) {
	if input.PhoneNumber == "" {
		return nil, fmt.Errorf("%w: phone number is required", apperrors.ErrValidation)
	}
	switch input.Strategy {
	case domain.StrategySignaling, domain.StrategySIPEvent, domain.StrategyMLInference, domain.StrategyLLMAudio:
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownStrategy, input.Strategy)
	}
	if !input.Strategy.EventDriven() && len(input.Audio) == 0 {
		return nil, fmt.Errorf("%w: audio is required for strategy %s", apperrors.ErrValidation, input.Strategy)
	}

	campaignID := uuid.Nil
	if input.CampaignID != nil {
		campaignID = *input.CampaignID
	}

	now := time.Now().UTC()
	record := &domain.CallRecord{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		PhoneNumber: input.PhoneNumber,
		Strategy:    input.Strategy,
		Status:      domain.CallStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.records.CreateCallRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("screening: persist call record: %w", err)
	}

	placed, err := s.provider.PlaceCall(ctx, telephony.PlaceCallRequest{
		CallID:      record.ID,
		CampaignID:  campaignID,
		PhoneNumber: input.PhoneNumber,
		Strategy:    input.Strategy,
	})
	if err != nil || placed.Status == domain.CallStatusFailed {
		record.Status = domain.CallStatusFailed
		reason := placed.Error
		if reason == "" && err != nil {
			reason = err.Error()
		}
		record.LastError = &reason
		if uerr := s.records.UpdateCallRecord(ctx, record); uerr != nil {
			return nil, fmt.Errorf("screening: mark failed: %w", uerr)
		}
		if err != nil {
			return record, fmt.Errorf("screening: place call: %w", err)
		}
		return record, nil
	}

	if input.Strategy.EventDriven() {
		// The provider's AMD runs in-network; results arrive on the event feed.
		record.Status = domain.CallStatusDialing
	} else {
		job := queue.DetectionJobMessage{
			CallID:     record.ID,
			CampaignID: campaignID,
			Strategy:   input.Strategy,
			AudioB64:   common.EncodeBase64(input.Audio),
			SampleRate: input.SampleRate,
			EnqueuedAt: now,
		}
		if err := s.jobs.DispatchJob(ctx, job); err != nil {
			return nil, fmt.Errorf("screening: dispatch detection job: %w", err)
		}
		record.Status = domain.CallStatusDetecting
	}

	if err := s.records.UpdateCallRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("screening: update status: %w", err)
	}
	return record, nil
}

// ApplyResult writes a normalized detection result through the persistence
// boundary, appends the audit row and publishes the result message. A
// recoverable-failure result (outcome unknown) is still a result: it is
// persisted and published, never treated as an error.
func (s *Service) ApplyResult(ctx context.Context, callID uuid.UUID, strategy domain.StrategyKind, result domain.DetectionResult) error {
	record, err := s.records.GetCallRecord(ctx, callID)
	if err != nil {
		return fmt.Errorf("screening: lookup call record: %w", err)
	}

	now := time.Now().UTC()
	outcome := result.Outcome
	confidence := result.Confidence
	latency := result.LatencyMs

	record.Status = domain.CallStatusDetected
	record.Outcome = &outcome
	record.Confidence = &confidence
	record.LatencyMs = &latency
	record.DetectedAt = &now
	record.UpdatedAt = now

	errText := metadataError(result)
	if errText != "" {
		record.LastError = &errText
	}

	if err := s.records.UpdateCallRecord(ctx, record); err != nil {
		return fmt.Errorf("screening: persist result: %w", err)
	}

	attempt := domain.DetectionAttempt{
		ID:         uuid.New(),
		CallID:     callID,
		Strategy:   strategy,
		Outcome:    result.Outcome,
		Confidence: result.Confidence,
		LatencyMs:  result.LatencyMs,
		Error:      errText,
		CreatedAt:  now,
	}
	if err := s.attempts.AppendAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("screening: append attempt: %w", err)
	}

	msg := queue.DetectionResultMessage{
		CallID:     callID,
		CampaignID: record.CampaignID,
		Strategy:   strategy,
		Outcome:    result.Outcome,
		Confidence: result.Confidence,
		LatencyMs:  result.LatencyMs,
		Error:      errText,
		Metadata:   result.Metadata,
		OccurredAt: now,
	}
	if err := s.results.PublishResult(ctx, msg); err != nil {
		return fmt.Errorf("screening: publish result: %w", err)
	}
	return nil
}

// GetCall retrieves a screened call by id.
func (s *Service) GetCall(ctx context.Context, id uuid.UUID) (*domain.CallRecord, error) {
	return s.records.GetCallRecord(ctx, id)
}

// ListCalls pages through screened calls.
func (s *Service) ListCalls(ctx context.Context, afterID *uuid.UUID, limit int) ([]*domain.CallRecord, error) {
	return s.records.ListCallRecords(ctx, afterID, limit)
}

// ListAttempts returns the audit trail for a call.
func (s *Service) ListAttempts(ctx context.Context, callID uuid.UUID, limit int) ([]domain.DetectionAttempt, error) {
	return s.attempts.ListAttemptsByCall(ctx, callID, limit)
}

func metadataError(result domain.DetectionResult) string {
	if result.Metadata == nil {
		return ""
	}
	if v, ok := result.Metadata["error"].(string); ok {
		return v
	}
	return ""
}
