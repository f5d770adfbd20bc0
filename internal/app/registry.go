package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
)

// HandleRegistry caches publish handles by destination identity.
// A handle is built at most once per destination, even under concurrent
// first use, and is never replaced once inserted.
type HandleRegistry struct {
	mu        sync.RWMutex
	handles   map[string]ports.Handle
	publisher ports.Publisher
	logger    ports.Logger
}

// NewHandleRegistry creates an empty registry backed by the given publisher.
func NewHandleRegistry(publisher ports.Publisher, logger ports.Logger) *HandleRegistry {
	return &HandleRegistry{
		handles:   make(map[string]ports.Handle),
		publisher: publisher,
		logger:    logger,
	}
}

// Resolve returns the cached handle for dest, building it on first use.
// Resolution failures are logged and not cached.
func (r *HandleRegistry) Resolve(ctx context.Context, dest domain.Destination) (ports.Handle, error) {
	key := dest.Key()

	r.mu.RLock()
	h, ok := r.handles[key]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Recheck: another caller may have won the race
	if h, ok := r.handles[key]; ok {
		return h, nil
	}

	h, err := r.publisher.Resolve(ctx, dest)
	if err != nil {
		r.logger.Error("failed to resolve destination",
			ports.String("destination", key),
			ports.Err(err),
		)
		return nil, fmt.Errorf("resolve %s: %w", key, err)
	}

	r.handles[key] = h
	r.logger.Debug("destination resolved", ports.String("destination", key))
	return h, nil
}

// Len returns the number of cached handles.
func (r *HandleRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close closes and forgets every cached handle.
func (r *HandleRegistry) Close() error {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]ports.Handle)
	r.mu.Unlock()

	var errs []error
	for key, h := range handles {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
