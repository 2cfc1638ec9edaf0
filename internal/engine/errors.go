package engine

import "errors"

// Session management errors.
// These are package-level sentinel errors so callers can distinguish
// "no provider exists" from "the provider failed" with errors.Is.
var (
	// ErrNoProvider is returned when no Provider is registered for the
	// requested engine kind.
	ErrNoProvider = errors.New("no handle provider registered for engine")

	// ErrAcquireFailed wraps provider session-creation failures so the
	// cell runner can classify them without inspecting provider internals.
	ErrAcquireFailed = errors.New("failed to acquire rendering session")
)
