package ports

import (
	"context"
	"errors"
	"io"

	"github.com/bft-labs/pubsink/internal/domain"
)

// EventSource supplies log events to the agent loop.
type EventSource interface {
	// Next returns the next available event.
	// Returns io.EOF when no event is available yet (should poll and retry).
	// Returns ErrSourceExhausted when the source will never yield again.
	Next(ctx context.Context) (domain.LogEvent, error)

	// Close releases all resources held by the source.
	Close() error
}

// ErrNoMoreEvents indicates that no event is available right now.
var ErrNoMoreEvents = io.EOF

// ErrSourceExhausted indicates that the source has been fully consumed.
var ErrSourceExhausted = errors.New("event source exhausted")
