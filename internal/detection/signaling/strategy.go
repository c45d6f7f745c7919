package signaling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acme/amd-screening/internal/config"
	"github.com/acme/amd-screening/internal/domain"
	apperrors "github.com/acme/amd-screening/pkg/errors"
	"github.com/acme/amd-screening/pkg/logger"
)

// Strategy translates AMD webhook events reported by the telephony
// provider. The detection itself runs inside the provider's network; this
// adapter only normalizes the reported event into a DetectionResult.
type Strategy struct {
	cfg config.SignalingConfig
	lg  *logger.Logger
}

// New constructs the signaling strategy.
func New(cfg config.SignalingConfig, lg *logger.Logger) *Strategy {
	return &Strategy{cfg: cfg, lg: lg.Named("signaling")}
}

// Kind identifies the back end.
func (s *Strategy) Kind() domain.StrategyKind {
	return domain.StrategySignaling
}

// Initialize validates the provider credentials.
func (s *Strategy) Initialize(ctx context.Context) error {
	if s.cfg.AccountID == "" {
		return fmt.Errorf("%w: signaling: account_id is required", apperrors.ErrConfiguration)
	}
	if s.cfg.AuthToken == "" {
		return fmt.Errorf("%w: signaling: auth_token is required", apperrors.ErrConfiguration)
	}
	return nil
}

// Detect is not a supported code path: this strategy is event-driven and
// never sees raw audio.
func (s *Strategy) Detect(ctx context.Context, audio []byte) (domain.DetectionResult, error) {
	return domain.DetectionResult{}, fmt.Errorf("%w: signaling strategy accepts provider events, not audio", apperrors.ErrUnsupportedOperation)
}

// InterpretEvent maps a provider AMD event onto the normalized result.
func (s *Strategy) InterpretEvent(ctx context.Context, event domain.ProviderEvent) (domain.DetectionResult, error) {
	start := time.Now()

	outcome, confidence := classify(event.Name)
	s.lg.Debug("interpreted provider event",
		zap.String("event", event.Name),
		zap.String("outcome", string(outcome)),
	)

	return domain.DetectionResult{
		Outcome:    outcome,
		Confidence: confidence,
		LatencyMs:  time.Since(start).Milliseconds(),
		Metadata: map[string]any{
			"event":    event.Name,
			"provider": "signaling",
		},
	}, nil
}

// Cleanup holds no resources.
func (s *Strategy) Cleanup(ctx context.Context) error {
	return nil
}

// classify maps a provider event name to an outcome and a deterministic
// confidence. Machine message-end variants score higher than the greeting
// itself because the provider has heard the full announcement by then.
func classify(name string) (domain.DetectionOutcome, float64) {
	switch normalize(name) {
	case "human-speech", "human":
		return domain.OutcomeHuman, 0.85
	case "human-residence":
		return domain.OutcomeHuman, 0.82
	case "human-business":
		return domain.OutcomeHuman, 0.80
	case "machine-greeting", "machine-start":
		return domain.OutcomeMachine, 0.85
	case "machine-end-beep":
		return domain.OutcomeMachine, 0.90
	case "machine-end-silence":
		return domain.OutcomeMachine, 0.88
	case "machine-end-other":
		return domain.OutcomeMachine, 0.86
	case "decision-timeout", "no-speech-timeout":
		return domain.OutcomeUndecided, 0.50
	case "fax", "fax-tone", "tone-detected":
		return domain.OutcomeFax, 0.90
	}

	// Unlisted event names still carry a hint in their wording.
	n := normalize(name)
	switch {
	case strings.Contains(n, "human"):
		return domain.OutcomeHuman, 0.80
	case strings.Contains(n, "machine"), strings.Contains(n, "voicemail"):
		return domain.OutcomeMachine, 0.85
	case strings.Contains(n, "fax"):
		return domain.OutcomeFax, 0.90
	case strings.Contains(n, "timeout"):
		return domain.OutcomeUndecided, 0.50
	}
	return domain.OutcomeUnknown, 0.60
}

func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(n, "_", "-")
}
