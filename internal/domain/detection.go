package domain

import (
	"time"
)

// DetectionOutcome enumerates the normalized classifications an answering
// machine detection attempt can produce. Exactly one value per attempt.
type DetectionOutcome string

const (
	OutcomeHuman     DetectionOutcome = "human"
	OutcomeMachine   DetectionOutcome = "machine"
	OutcomeVoicemail DetectionOutcome = "voicemail"
	OutcomeFax       DetectionOutcome = "fax"
	// OutcomeUndecided marks a successful detection whose signal was too weak
	// to commit either way.
	OutcomeUndecided DetectionOutcome = "undecided"
	// OutcomeUnknown marks a recoverable failure: no usable signal at all.
	OutcomeUnknown DetectionOutcome = "unknown"
)

// DetectionResult is the single normalized output of every strategy.
// Outcome and Confidence are always jointly present; Confidence 0 is the
// sentinel for "no usable signal", not "definitely not human".
type DetectionResult struct {
	Outcome    DetectionOutcome `json:"outcome"`
	Confidence float64          `json:"confidence"`
	LatencyMs  int64            `json:"detection_latency_ms"`
	// Metadata carries adapter-specific diagnostics (raw vendor label, event
	// name, model reasoning). Display and audit only, never control flow.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FailureResult builds the uniform recoverable-failure result: outcome
// unknown, confidence zero, the causing error text under metadata "error".
// Latency still measures elapsed time up to the failure.
func FailureResult(elapsed time.Duration, cause error) DetectionResult {
	return DetectionResult{
		Outcome:    OutcomeUnknown,
		Confidence: 0,
		LatencyMs:  elapsed.Milliseconds(),
		Metadata:   map[string]any{"error": cause.Error()},
	}
}

// ClampConfidence bounds a confidence value to [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
