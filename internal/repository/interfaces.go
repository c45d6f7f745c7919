package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/acme/amd-screening/internal/domain"
	apperrors "github.com/acme/amd-screening/pkg/errors"
)

var (
	// ErrNotFound indicates the entity was not located.
	ErrNotFound = apperrors.ErrNotFound
	// ErrConflict indicates a unique constraint violation.
	ErrConflict = apperrors.ErrConflict
)

// CallRecordRepository is the persistence collaborator for screened calls.
// The detection core writes its normalized output through this boundary and
// never owns storage.
type CallRecordRepository interface {
	CreateCallRecord(ctx context.Context, record *domain.CallRecord) error
	UpdateCallRecord(ctx context.Context, record *domain.CallRecord) error
	GetCallRecord(ctx context.Context, id uuid.UUID) (*domain.CallRecord, error)
	ListCallRecords(ctx context.Context, afterID *uuid.UUID, limit int) ([]*domain.CallRecord, error)
}

// DetectionAttemptStore keeps the append-only audit trail of detection
// attempts, including recoverable failures.
type DetectionAttemptStore interface {
	AppendAttempt(ctx context.Context, attempt domain.DetectionAttempt) error
	ListAttemptsByCall(ctx context.Context, callID uuid.UUID, limit int) ([]domain.DetectionAttempt, error)
}
