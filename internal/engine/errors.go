package engine

import "errors"

// Errors returned by engine implementations.
var (
	// ErrUnavailable indicates the engine failed to initialize or has
	// shut down. Blocking for the session until retried.
	ErrUnavailable = errors.New("engine unavailable")

	// ErrMalformedResponse indicates an engine response could not be
	// parsed. The merge for that response is aborted wholesale.
	ErrMalformedResponse = errors.New("malformed engine response")

	// ErrRequestFailed indicates a bridge-level request failure.
	// Recoverable; last-known-good state is retained.
	ErrRequestFailed = errors.New("engine request failed")
)
