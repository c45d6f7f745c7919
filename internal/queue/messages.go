package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/acme/amd-screening/internal/domain"
)

// ProviderEventMessage carries one AMD webhook event forwarded by the
// telephony transport collaborator onto the event topic.
type ProviderEventMessage struct {
	CallID     uuid.UUID           `json:"call_id"`
	CampaignID uuid.UUID           `json:"campaign_id"`
	Strategy   domain.StrategyKind `json:"strategy"`
	Event      string              `json:"event"`
	Payload    map[string]any      `json:"payload,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// DetectionJobMessage instructs the detect worker to classify an audio
// buffer with one of the audio-driven strategies. Audio travels as
// URL-safe base64 so the message stays valid JSON.
type DetectionJobMessage struct {
	CallID     uuid.UUID           `json:"call_id"`
	CampaignID uuid.UUID           `json:"campaign_id"`
	Strategy   domain.StrategyKind `json:"strategy"`
	AudioB64   string              `json:"audio_b64"`
	SampleRate int                 `json:"sample_rate"`
	EnqueuedAt time.Time           `json:"enqueued_at"`
}

// DetectionResultMessage publishes a normalized detection result for
// downstream consumers.
type DetectionResultMessage struct {
	CallID     uuid.UUID               `json:"call_id"`
	CampaignID uuid.UUID               `json:"campaign_id"`
	Strategy   domain.StrategyKind     `json:"strategy"`
	Outcome    domain.DetectionOutcome `json:"outcome"`
	Confidence float64                 `json:"confidence"`
	LatencyMs  int64                   `json:"detection_latency_ms"`
	Error      string                  `json:"error,omitempty"`
	Metadata   map[string]any          `json:"metadata,omitempty"`
	OccurredAt time.Time               `json:"occurred_at"`
}
