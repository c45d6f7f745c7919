package registry

import (
	"context"
	"fmt"

	"github.com/acme/amd-screening/internal/config"
	"github.com/acme/amd-screening/internal/detection"
	"github.com/acme/amd-screening/internal/detection/llmaudio"
	"github.com/acme/amd-screening/internal/detection/mlinference"
	"github.com/acme/amd-screening/internal/detection/signaling"
	"github.com/acme/amd-screening/internal/detection/sipevent"
	"github.com/acme/amd-screening/internal/domain"
	apperrors "github.com/acme/amd-screening/pkg/errors"
	"github.com/acme/amd-screening/pkg/logger"
)

// Registry constructs detection strategies on demand. Construction is lazy:
// only the requested back end's resources are loaded, and instances share
// no mutable state, so adding a strategy means one new case here.
type Registry struct {
	cfg config.DetectionConfig
	lg  *logger.Logger
}

// New creates a registry over the detection configuration.
func New(cfg config.DetectionConfig, lg *logger.Logger) *Registry {
	return &Registry{cfg: cfg, lg: lg}
}

// Create builds and initializes the strategy for kind. An unrecognized
// identifier fails with ErrUnknownStrategy before anything is constructed.
func (r *Registry) Create(ctx context.Context, kind domain.StrategyKind) (detection.Strategy, error) {
	var s detection.Strategy
	switch kind {
	case domain.StrategySignaling:
		s = signaling.New(r.cfg.Signaling, r.lg)
	case domain.StrategySIPEvent:
		s = sipevent.New(r.cfg.SIPEvent, r.lg)
	case domain.StrategyMLInference:
		s = mlinference.New(r.cfg.MLInference, r.cfg.ConfidenceThreshold, r.lg)
	case domain.StrategyLLMAudio:
		s = llmaudio.New(r.cfg.LLMAudio, r.lg)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownStrategy, kind)
	}

	if err := s.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("registry: initialize %s: %w", kind, err)
	}
	return s, nil
}

// Descriptors exposes the static strategy catalog.
func (r *Registry) Descriptors() []domain.StrategyDescriptor {
	return detection.Descriptors()
}
