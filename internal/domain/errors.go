package domain

import "errors"

// Domain errors represent error conditions in the bridge domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrQueueFull is returned when the ingestion queue is at capacity.
	ErrQueueFull = errors.New("totbridge: queue full")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("totbridge: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("totbridge: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("totbridge: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("totbridge: invalid configuration")
)
