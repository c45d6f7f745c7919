package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/acme/amd-screening/internal/domain"
	"github.com/acme/amd-screening/internal/repository"
)

// CallRecordRepository implements repository.CallRecordRepository using
// PostgreSQL. The call_records table belongs to the surrounding platform;
// this repository adapts to it and defines no schema of its own.
type CallRecordRepository struct {
	db *sqlx.DB
}

// NewCallRecordRepository constructs a new repository.
func NewCallRecordRepository(db *sqlx.DB) *CallRecordRepository {
	return &CallRecordRepository{db: db}
}

// CreateCallRecord inserts a new screened call.
func (r *CallRecordRepository) CreateCallRecord(ctx context.Context, record *domain.CallRecord) error {
	q := `INSERT INTO call_records (
		id, campaign_id, phone_number, strategy, status,
		outcome, confidence, detection_latency_ms, last_error,
		created_at, updated_at, detected_at
	) VALUES (
		:id, :campaign_id, :phone_number, :strategy, :status,
		:outcome, :confidence, :detection_latency_ms, :last_error,
		:created_at, :updated_at, :detected_at
	)`

	if _, err := r.db.NamedExecContext(ctx, q, toRow(record)); err != nil {
		return fmt.Errorf("call record repo: insert: %w", err)
	}
	return nil
}

// UpdateCallRecord persists status and detection fields for a call.
func (r *CallRecordRepository) UpdateCallRecord(ctx context.Context, record *domain.CallRecord) error {
	q := `UPDATE call_records SET
		status = :status,
		outcome = :outcome,
		confidence = :confidence,
		detection_latency_ms = :detection_latency_ms,
		last_error = :last_error,
		updated_at = :updated_at,
		detected_at = :detected_at
	WHERE id = :id`

	record.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, q, toRow(record))
	if err != nil {
		return fmt.Errorf("call record repo: update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("call record repo: rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetCallRecord fetches a screened call by id.
func (r *CallRecordRepository) GetCallRecord(ctx context.Context, id uuid.UUID) (*domain.CallRecord, error) {
	q := `SELECT id, campaign_id, phone_number, strategy, status,
	       outcome, confidence, detection_latency_ms, last_error,
	       created_at, updated_at, detected_at
	  FROM call_records WHERE id = $1`

	row := r.db.QueryRowxContext(ctx, q, id)
	var rec callRecordRow
	if err := row.StructScan(&rec); err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("call record repo: get: %w", err)
	}

	record := rec.toDomain()
	return &record, nil
}

// ListCallRecords pages through screened calls in creation order.
func (r *CallRecordRepository) ListCallRecords(ctx context.Context, afterID *uuid.UUID, limit int) ([]*domain.CallRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	q := `SELECT id, campaign_id, phone_number, strategy, status,
	       outcome, confidence, detection_latency_ms, last_error,
	       created_at, updated_at, detected_at
	  FROM call_records`
	args := []any{}
	if afterID != nil {
		q += ` WHERE created_at > (SELECT created_at FROM call_records WHERE id = $1)`
		args = append(args, *afterID)
	}
	q += fmt.Sprintf(` ORDER BY created_at ASC LIMIT %d`, limit)

	rows, err := r.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("call record repo: list: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.CallRecord, 0, limit)
	for rows.Next() {
		var rec callRecordRow
		if err := rows.StructScan(&rec); err != nil {
			return nil, fmt.Errorf("call record repo: scan: %w", err)
		}
		record := rec.toDomain()
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("call record repo: rows: %w", err)
	}
	return records, nil
}

type callRecordRow struct {
	ID          uuid.UUID  `db:"id"`
	CampaignID  uuid.UUID  `db:"campaign_id"`
	PhoneNumber string     `db:"phone_number"`
	Strategy    string     `db:"strategy"`
	Status      string     `db:"status"`
	Outcome     *string    `db:"outcome"`
	Confidence  *float64   `db:"confidence"`
	LatencyMs   *int64     `db:"detection_latency_ms"`
	LastError   *string    `db:"last_error"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	DetectedAt  *time.Time `db:"detected_at"`
}

func toRow(record *domain.CallRecord) map[string]any {
	var outcome *string
	if record.Outcome != nil {
		v := string(*record.Outcome)
		outcome = &v
	}
	return map[string]any{
		"id":                   record.ID,
		"campaign_id":          record.CampaignID,
		"phone_number":         record.PhoneNumber,
		"strategy":             string(record.Strategy),
		"status":               string(record.Status),
		"outcome":              outcome,
		"confidence":           record.Confidence,
		"detection_latency_ms": record.LatencyMs,
		"last_error":           record.LastError,
		"created_at":           record.CreatedAt,
		"updated_at":           record.UpdatedAt,
		"detected_at":          record.DetectedAt,
	}
}

func (r callRecordRow) toDomain() domain.CallRecord {
	record := domain.CallRecord{
		ID:          r.ID,
		CampaignID:  r.CampaignID,
		PhoneNumber: r.PhoneNumber,
		Strategy:    domain.StrategyKind(r.Strategy),
		Status:      domain.CallStatus(r.Status),
		Confidence:  r.Confidence,
		LatencyMs:   r.LatencyMs,
		LastError:   r.LastError,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		DetectedAt:  r.DetectedAt,
	}
	if r.Outcome != nil {
		outcome := domain.DetectionOutcome(*r.Outcome)
		record.Outcome = &outcome
	}
	return record
}
