package domain

import "errors"

var (
	// ErrLimitExceeded rejects a submission when the owner is already at
	// the configured concurrent-download limit.
	ErrLimitExceeded = errors.New("concurrent download limit exceeded")

	// ErrDuplicateJob indicates a daemon GID collision in the registry.
	ErrDuplicateJob = errors.New("duplicate job")

	// ErrUnknownJob indicates the daemon no longer knows the GID.
	ErrUnknownJob = errors.New("unknown job")

	// ErrInvalidPayload rejects a submission whose payload does not match
	// its declared kind.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrShuttingDown rejects submissions during graceful shutdown.
	ErrShuttingDown = errors.New("shutting down")
)
