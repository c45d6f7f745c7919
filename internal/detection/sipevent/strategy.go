package sipevent

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acme/amd-screening/internal/config"
	"github.com/acme/amd-screening/internal/domain"
	apperrors "github.com/acme/amd-screening/pkg/errors"
	"github.com/acme/amd-screening/pkg/logger"
)

const defaultProbeTimeout = 5 * time.Second

// Strategy translates AMD status events emitted by a SIP media platform.
// Like the signaling strategy it never processes audio itself; the platform
// runs detection during call setup and reports a terminal status event.
type Strategy struct {
	cfg    config.SIPEventConfig
	client *http.Client
	lg     *logger.Logger
}

// New constructs the SIP event strategy.
func New(cfg config.SIPEventConfig, lg *logger.Logger) *Strategy {
	return &Strategy{
		cfg:    cfg,
		client: &http.Client{},
		lg:     lg.Named("sipevent"),
	}
}

// Kind identifies the back end.
func (s *Strategy) Kind() domain.StrategyKind {
	return domain.StrategySIPEvent
}

// Initialize validates the platform base URL and probes its status
// endpoint. An unreachable platform only degrades later detections, so a
// failed probe is logged and never returned.
func (s *Strategy) Initialize(ctx context.Context) error {
	if s.cfg.BaseURL == "" {
		return fmt.Errorf("%w: sip_event: base_url is required", apperrors.ErrConfiguration)
	}

	timeout := s.cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, strings.TrimRight(s.cfg.BaseURL, "/")+"/status", nil)
	if err != nil {
		s.lg.Warn("sip platform probe request build failed", zap.Error(err))
		return nil
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.lg.Warn("sip platform unreachable", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.lg.Warn("sip platform probe returned non-success", zap.Int("status", resp.StatusCode))
	}
	return nil
}

// Detect is not a supported code path for this event-driven strategy.
func (s *Strategy) Detect(ctx context.Context, audio []byte) (domain.DetectionResult, error) {
	return domain.DetectionResult{}, fmt.Errorf("%w: sip-event strategy accepts platform events, not audio", apperrors.ErrUnsupportedOperation)
}

// InterpretEvent maps a platform AMD status event onto the normalized
// result. Platforms in this family report uppercase status tokens
// (HUMAN, MACHINE, NOTSURE) with an optional cause detail.
func (s *Strategy) InterpretEvent(ctx context.Context, event domain.ProviderEvent) (domain.DetectionResult, error) {
	start := time.Now()

	outcome, confidence := classify(event.Name)

	return domain.DetectionResult{
		Outcome:    outcome,
		Confidence: confidence,
		LatencyMs:  time.Since(start).Milliseconds(),
		Metadata: map[string]any{
			"event":    event.Name,
			"provider": "sip",
		},
	}, nil
}

// Cleanup releases the pooled HTTP connections. Safe to call repeatedly.
func (s *Strategy) Cleanup(ctx context.Context) error {
	s.client.CloseIdleConnections()
	return nil
}

func classify(name string) (domain.DetectionOutcome, float64) {
	switch token(name) {
	case "HUMAN", "PERSON":
		return domain.OutcomeHuman, 0.82
	case "MACHINE":
		return domain.OutcomeMachine, 0.87
	case "MESSAGE-END", "BEEP":
		return domain.OutcomeMachine, 0.90
	case "GREETING-END":
		return domain.OutcomeMachine, 0.88
	case "NOTSURE", "TIMEOUT", "TOOLONG", "SILENCE-TIMEOUT":
		return domain.OutcomeUndecided, 0.50
	case "FAX", "SIT-TONE":
		return domain.OutcomeFax, 0.90
	}

	t := token(name)
	switch {
	case strings.Contains(t, "HUMAN"):
		return domain.OutcomeHuman, 0.82
	case strings.Contains(t, "MACHINE"), strings.Contains(t, "VOICEMAIL"):
		return domain.OutcomeMachine, 0.87
	case strings.Contains(t, "FAX"):
		return domain.OutcomeFax, 0.90
	case strings.Contains(t, "TIMEOUT"), strings.Contains(t, "NOTSURE"):
		return domain.OutcomeUndecided, 0.50
	}
	return domain.OutcomeUnknown, 0.65
}

func token(name string) string {
	t := strings.ToUpper(strings.TrimSpace(name))
	return strings.ReplaceAll(t, "_", "-")
}
