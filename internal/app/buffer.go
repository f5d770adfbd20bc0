package app

import (
	"time"

	"github.com/bft-labs/pubsink/internal/domain"
)

// Buffer accumulates events until a size or time trigger fires.
type Buffer struct {
	events        []domain.AsyncEvent
	maxEvents     int
	flushInterval time.Duration
	lastFlush     time.Time
	now           func() time.Time
}

// NewBuffer creates a buffer. maxEvents <= 0 disables the size trigger and
// flushInterval <= 0 disables the time trigger.
func NewBuffer(maxEvents int, flushInterval time.Duration) *Buffer {
	b := &Buffer{
		maxEvents:     maxEvents,
		flushInterval: flushInterval,
		now:           time.Now,
	}
	b.lastFlush = b.now()
	return b
}

// Add appends an event.
// Returns true if the buffer should be flushed after this add (size trigger).
func (b *Buffer) Add(ev domain.AsyncEvent) bool {
	b.events = append(b.events, ev)
	return b.maxEvents > 0 && len(b.events) >= b.maxEvents
}

// ShouldFlush returns true if pending events have waited a full interval.
func (b *Buffer) ShouldFlush() bool {
	if len(b.events) == 0 || b.flushInterval <= 0 {
		return false
	}
	return b.now().Sub(b.lastFlush) >= b.flushInterval
}

// Drain returns the pending events and empties the buffer.
func (b *Buffer) Drain() []domain.AsyncEvent {
	events := b.events
	b.events = nil
	b.lastFlush = b.now()
	return events
}

// HasPending returns true if there are events waiting to be written.
func (b *Buffer) HasPending() bool {
	return len(b.events) > 0
}

// Len returns the number of pending events.
func (b *Buffer) Len() int {
	return len(b.events)
}
