package sipevent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acme/amd-screening/internal/config"
	"github.com/acme/amd-screening/internal/domain"
	apperrors "github.com/acme/amd-screening/pkg/errors"
	"github.com/acme/amd-screening/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lg, err := logger.New("development")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	return lg
}

func TestInitializeRequiresBaseURL(t *testing.T) {
	s := New(config.SIPEventConfig{}, testLogger(t))
	if err := s.Initialize(context.Background()); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("Initialize error = %v, want ErrConfiguration", err)
	}
}

func TestInitializeProbeIsAdvisory(t *testing.T) {
	// A failing probe degrades only later detections; Initialize stays nil.
	for _, status := range []int{http.StatusOK, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/status" {
				t.Errorf("probe hit %s, want /status", r.URL.Path)
			}
			w.WriteHeader(status)
		}))

		s := New(config.SIPEventConfig{BaseURL: server.URL}, testLogger(t))
		if err := s.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize with probe status %d returned %v", status, err)
		}
		server.Close()
	}
}

func TestInitializeUnreachablePlatform(t *testing.T) {
	s := New(config.SIPEventConfig{BaseURL: "http://127.0.0.1:1"}, testLogger(t))
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize with unreachable platform returned %v", err)
	}
}

func TestInterpretEventMapping(t *testing.T) {
	s := New(config.SIPEventConfig{BaseURL: "http://sip.local"}, testLogger(t))

	cases := []struct {
		event      string
		outcome    domain.DetectionOutcome
		confidence float64
	}{
		{"HUMAN", domain.OutcomeHuman, 0.82},
		{"person", domain.OutcomeHuman, 0.82},
		{"MACHINE", domain.OutcomeMachine, 0.87},
		{"MESSAGE_END", domain.OutcomeMachine, 0.90},
		{"BEEP", domain.OutcomeMachine, 0.90},
		{"GREETING-END", domain.OutcomeMachine, 0.88},
		{"NOTSURE", domain.OutcomeUndecided, 0.50},
		{"SILENCE_TIMEOUT", domain.OutcomeUndecided, 0.50},
		{"FAX", domain.OutcomeFax, 0.90},
		{"SIT-TONE", domain.OutcomeFax, 0.90},
		// Substring fallbacks for composed status tokens.
		{"AMD_MACHINE_DETECTED", domain.OutcomeMachine, 0.87},
		{"HUMAN_ANSWERED", domain.OutcomeHuman, 0.82},
	}
	for _, tc := range cases {
		t.Run(tc.event, func(t *testing.T) {
			result, err := s.InterpretEvent(context.Background(), domain.ProviderEvent{Name: tc.event})
			if err != nil {
				t.Fatalf("InterpretEvent returned error: %v", err)
			}
			if result.Outcome != tc.outcome {
				t.Fatalf("outcome = %s, want %s", result.Outcome, tc.outcome)
			}
			if result.Confidence != tc.confidence {
				t.Fatalf("confidence = %v, want %v", result.Confidence, tc.confidence)
			}
		})
	}
}

func TestInterpretEventUnrecognized(t *testing.T) {
	s := New(config.SIPEventConfig{BaseURL: "http://sip.local"}, testLogger(t))

	result, err := s.InterpretEvent(context.Background(), domain.ProviderEvent{Name: "PLATFORM_STATE_7"})
	if err != nil {
		t.Fatalf("InterpretEvent returned error: %v", err)
	}
	if result.Outcome != domain.OutcomeUnknown {
		t.Fatalf("outcome = %s, want unknown", result.Outcome)
	}
}

func TestDetectIsUnsupported(t *testing.T) {
	s := New(config.SIPEventConfig{BaseURL: "http://sip.local"}, testLogger(t))

	_, err := s.Detect(context.Background(), make([]byte, 16))
	if !errors.Is(err, apperrors.ErrUnsupportedOperation) {
		t.Fatalf("Detect error = %v, want ErrUnsupportedOperation", err)
	}
}
