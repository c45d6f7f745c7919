package detection

import (
	"context"

	"github.com/acme/amd-screening/internal/domain"
)

// Strategy is the uniform contract every detection back end implements.
//
// Detect never returns an error for recoverable failures (network errors,
// malformed responses, timeouts); those are folded into the result as
// outcome "unknown" with confidence 0 and the cause under metadata "error".
// The only non-nil error Detect may return is ErrUnsupportedOperation, when
// raw audio is fed to an event-driven strategy.
type Strategy interface {
	// Kind identifies the back end.
	Kind() domain.StrategyKind

	// Initialize validates required configuration and may probe the remote
	// dependency. A failed probe is logged as a warning, never returned;
	// only missing required configuration is fatal.
	Initialize(ctx context.Context) error

	// Detect classifies a complete raw audio buffer.
	Detect(ctx context.Context, audio []byte) (domain.DetectionResult, error)

	// Cleanup releases any held resources. Idempotent, always returns nil.
	Cleanup(ctx context.Context) error
}

// StreamDetector is the optional streaming capability implemented only by
// audio-driven strategies. Callers must check for it before invoking.
type StreamDetector interface {
	DetectFromStream(ctx context.Context, src AudioSource) (domain.DetectionResult, error)
}

// EventInterpreter is the capability of the event-driven strategies, whose
// detection work happens inside a remote telephony platform and is reported
// back as discrete named events rather than audio.
type EventInterpreter interface {
	InterpretEvent(ctx context.Context, event domain.ProviderEvent) (domain.DetectionResult, error)
}

// AudioSource yields successive chunks of raw PCM audio. Next returns io.EOF
// once the stream is exhausted. Single consumer, no fan-out.
type AudioSource interface {
	Next(ctx context.Context) ([]byte, error)
}
