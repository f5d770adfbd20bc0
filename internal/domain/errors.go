package domain

import "errors"

// Domain errors represent error conditions in the pubsink domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("pubsink: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("pubsink: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("pubsink: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("pubsink: invalid configuration")

	// ErrInvalidTags is returned when an attribute string cannot be parsed.
	ErrInvalidTags = errors.New("pubsink: invalid attributes")

	// ErrDeadlineExceeded marks a publish call whose transport deadline expired.
	// The call may still have landed server-side.
	ErrDeadlineExceeded = errors.New("pubsink: publish deadline exceeded")

	// ErrTargetClosed is returned when writing to a closed target.
	ErrTargetClosed = errors.New("pubsink: target closed")
)
