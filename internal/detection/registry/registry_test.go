package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acme/amd-screening/internal/config"
	"github.com/acme/amd-screening/internal/detection"
	"github.com/acme/amd-screening/internal/domain"
	apperrors "github.com/acme/amd-screening/pkg/errors"
	"github.com/acme/amd-screening/pkg/logger"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	lg, err := logger.New("development")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	return New(config.DetectionConfig{
		ConfidenceThreshold: 0.7,
		Signaling:           config.SignalingConfig{AccountID: "AC1", AuthToken: "secret"},
		SIPEvent:            config.SIPEventConfig{BaseURL: server.URL},
		MLInference:         config.MLInferenceConfig{BaseURL: server.URL},
		LLMAudio:            config.LLMAudioConfig{APIKey: "key"},
	}, lg)
}

func TestCreateUnknownStrategy(t *testing.T) {
	r := testRegistry(t)

	_, err := r.Create(context.Background(), domain.StrategyKind("dtmf-probe"))
	if !errors.Is(err, apperrors.ErrUnknownStrategy) {
		t.Fatalf("Create error = %v, want ErrUnknownStrategy", err)
	}
}

func TestCreateEveryKind(t *testing.T) {
	r := testRegistry(t)

	kinds := []domain.StrategyKind{
		domain.StrategySignaling,
		domain.StrategySIPEvent,
		domain.StrategyMLInference,
		domain.StrategyLLMAudio,
	}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			s, err := r.Create(context.Background(), kind)
			if err != nil {
				t.Fatalf("Create(%s) returned error: %v", kind, err)
			}
			if s.Kind() != kind {
				t.Fatalf("Kind() = %s, want %s", s.Kind(), kind)
			}
			if err := s.Cleanup(context.Background()); err != nil {
				t.Fatalf("Cleanup returned %v", err)
			}
		})
	}
}

func TestCreatePropagatesConfigurationError(t *testing.T) {
	lg, err := logger.New("development")
	if err != nil {
		t.Fatalf("build logger: %v", err)
	}
	r := New(config.DetectionConfig{}, lg)

	_, err = r.Create(context.Background(), domain.StrategySignaling)
	if !errors.Is(err, apperrors.ErrConfiguration) {
		t.Fatalf("Create error = %v, want ErrConfiguration", err)
	}
}

func TestStrategyCapabilities(t *testing.T) {
	r := testRegistry(t)

	capabilities := map[domain.StrategyKind]struct {
		interpretsEvents bool
		streams          bool
	}{
		domain.StrategySignaling:   {interpretsEvents: true},
		domain.StrategySIPEvent:    {interpretsEvents: true},
		domain.StrategyMLInference: {streams: true},
		domain.StrategyLLMAudio:    {streams: true},
	}
	for kind, want := range capabilities {
		s, err := r.Create(context.Background(), kind)
		if err != nil {
			t.Fatalf("Create(%s) returned error: %v", kind, err)
		}

		_, interprets := s.(detection.EventInterpreter)
		if interprets != want.interpretsEvents {
			t.Errorf("%s: EventInterpreter = %v, want %v", kind, interprets, want.interpretsEvents)
		}
		_, streams := s.(detection.StreamDetector)
		if streams != want.streams {
			t.Errorf("%s: StreamDetector = %v, want %v", kind, streams, want.streams)
		}
	}
}

func TestDescriptorsCoverEveryKind(t *testing.T) {
	r := testRegistry(t)

	seen := map[domain.StrategyKind]bool{}
	for _, d := range r.Descriptors() {
		seen[d.Kind] = true
	}
	for _, kind := range []domain.StrategyKind{
		domain.StrategySignaling,
		domain.StrategySIPEvent,
		domain.StrategyMLInference,
		domain.StrategyLLMAudio,
	} {
		if !seen[kind] {
			t.Errorf("descriptor catalog is missing %s", kind)
		}
	}
}
