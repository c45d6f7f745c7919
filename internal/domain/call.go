package domain

import (
	"time"

	"github.com/google/uuid"
)

// StrategyKind identifies one of the detection back ends.
type StrategyKind string

const (
	StrategySignaling   StrategyKind = "signaling"
	StrategySIPEvent    StrategyKind = "sip-event"
	StrategyMLInference StrategyKind = "ml-inference"
	StrategyLLMAudio    StrategyKind = "llm-audio"
)

// EventDriven reports whether the strategy consumes provider events rather
// than raw audio. Callers must branch on this before picking an entry point.
func (k StrategyKind) EventDriven() bool {
	return k == StrategySignaling || k == StrategySIPEvent
}

// StrategyDescriptor is a static catalog entry describing one strategy for
// operator selection. The advisory bands never influence detection itself.
type StrategyDescriptor struct {
	Kind         StrategyKind `json:"kind"`
	DisplayName  string       `json:"display_name"`
	Description  string       `json:"description"`
	LatencyBand  string       `json:"latency_band"`
	AccuracyBand string       `json:"accuracy_band"`
	CostModel    string       `json:"cost_model"`
}

// CallStatus enumerates lifecycle stages for a screened call.
type CallStatus string

const (
	CallStatusQueued    CallStatus = "queued"
	CallStatusDialing   CallStatus = "dialing"
	CallStatusDetecting CallStatus = "detecting"
	CallStatusDetected  CallStatus = "detected"
	CallStatusFailed    CallStatus = "failed"
)

// CallRecord is the persisted view of one screened outbound call. Detection
// fields stay nil until a result has been applied.
type CallRecord struct {
	ID          uuid.UUID
	CampaignID  uuid.UUID
	PhoneNumber string
	Strategy    StrategyKind
	Status      CallStatus
	Outcome     *DetectionOutcome
	Confidence  *float64
	LatencyMs   *int64
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DetectedAt  *time.Time
}

// DetectionAttempt is the append-only audit row for one detection attempt.
type DetectionAttempt struct {
	ID         uuid.UUID
	CallID     uuid.UUID
	Strategy   StrategyKind
	Outcome    DetectionOutcome
	Confidence float64
	LatencyMs  int64
	Error      string
	CreatedAt  time.Time
}

// ProviderEvent is one AMD event delivered by the telephony transport
// collaborator, forwarded from its webhook endpoint.
type ProviderEvent struct {
	CallID     uuid.UUID      `json:"call_id"`
	CampaignID uuid.UUID      `json:"campaign_id"`
	Name       string         `json:"name"`
	Payload    map[string]any `json:"payload,omitempty"`
	ReceivedAt time.Time      `json:"received_at"`
}
