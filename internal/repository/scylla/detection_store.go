package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/acme/amd-screening/internal/domain"
)

// DetectionStore keeps the append-only detection attempt audit trail in
// Scylla, partitioned by call.
type DetectionStore struct {
	session *gocql.Session
}

// NewDetectionStore creates a new store.
func NewDetectionStore(session *gocql.Session) *DetectionStore {
	return &DetectionStore{session: session}
}

// AppendAttempt inserts one attempt row.
func (s *DetectionStore) AppendAttempt(ctx context.Context, attempt domain.DetectionAttempt) error {
	if err := s.session.Query(`INSERT INTO detection_attempts_by_call (call_id, attempt_id, strategy, outcome, confidence, latency_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.CallID.String(), attempt.ID.String(), string(attempt.Strategy), string(attempt.Outcome),
		attempt.Confidence, attempt.LatencyMs, attempt.Error, attempt.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("detection store: append attempt: %w", err)
	}
	return nil
}

// ListAttemptsByCall returns the attempts recorded for a call, newest first.
func (s *DetectionStore) ListAttemptsByCall(ctx context.Context, callID uuid.UUID, limit int) ([]domain.DetectionAttempt, error) {
	if limit <= 0 {
		limit = 50
	}

	iter := s.session.Query(`SELECT attempt_id, strategy, outcome, confidence, latency_ms, error, created_at
		FROM detection_attempts_by_call WHERE call_id = ? LIMIT ?`, callID.String(), limit).
		WithContext(ctx).Iter()

	var (
		attemptIDStr string
		strategy     string
		outcome      string
		confidence   float64
		latencyMs    int64
		errText      string
		createdAt    time.Time
	)

	attempts := make([]domain.DetectionAttempt, 0, limit)
	for iter.Scan(&attemptIDStr, &strategy, &outcome, &confidence, &latencyMs, &errText, &createdAt) {
		attemptID, err := uuid.Parse(attemptIDStr)
		if err != nil {
			continue
		}
		attempts = append(attempts, domain.DetectionAttempt{
			ID:         attemptID,
			CallID:     callID,
			Strategy:   domain.StrategyKind(strategy),
			Outcome:    domain.DetectionOutcome(outcome),
			Confidence: confidence,
			LatencyMs:  latencyMs,
			Error:      errText,
			CreatedAt:  createdAt,
		})
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("detection store: iter close: %w", err)
	}
	return attempts, nil
}
