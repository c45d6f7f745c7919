package errors

import "errors"

// Sentinels for domain errors.
var (
	// ErrConfiguration marks a missing or invalid required configuration value
	// discovered while a strategy is being initialized.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnknownStrategy marks a strategy identifier the registry does not know.
	ErrUnknownStrategy = errors.New("unknown strategy type")
	// ErrUnsupportedOperation marks caller misuse, such as feeding raw audio to
	// an event-driven strategy. It is never folded into a detection result.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation error")
)
