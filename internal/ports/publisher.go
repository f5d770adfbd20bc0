package ports

import (
	"context"

	"github.com/bft-labs/pubsink/internal/domain"
)

// Publisher resolves delivery handles for destinations.
// Credentials and the per-call timeout are fixed when the Publisher is built
// and apply to every handle it resolves.
type Publisher interface {
	// Resolve builds a handle for the destination.
	// Callers cache the result; Resolve itself does not.
	Resolve(ctx context.Context, dest domain.Destination) (Handle, error)
}

// Handle publishes batches to one resolved destination.
// A Handle must be safe for concurrent use.
type Handle interface {
	// Publish sends the batch in a single call and returns the message ids
	// assigned by the backend. A transport deadline expiry must be reported
	// as an error matching domain.ErrDeadlineExceeded or context.DeadlineExceeded.
	Publish(ctx context.Context, batch domain.Batch) ([]string, error)

	// Close releases the underlying connection.
	Close() error
}
