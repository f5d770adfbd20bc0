package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
)

// AgentConfig contains configuration for the agent loop.
type AgentConfig struct {
	// PollInterval is how long to wait when the source has nothing new
	PollInterval time.Duration

	// FlushInterval is the longest an event waits in the buffer while
	// the source keeps producing
	FlushInterval time.Duration

	// MaxEvents flushes the buffer once it holds this many events
	MaxEvents int

	// Once stops the loop the first time the source runs dry
	Once bool
}

// Agent pulls events from a source and hands them to the current target.
// Writes are fire-and-forget; Drain waits for them.
type Agent struct {
	config  AgentConfig
	source  ports.EventSource
	target  atomic.Pointer[Target]
	buffer  *Buffer
	logger  ports.Logger
	pending sync.WaitGroup
	written atomic.Int64
}

// NewAgent creates a new agent writing to target.
func NewAgent(config AgentConfig, source ports.EventSource, target *Target, logger ports.Logger) *Agent {
	a := &Agent{
		config: config,
		source: source,
		buffer: NewBuffer(config.MaxEvents, config.FlushInterval),
		logger: logger,
	}
	a.target.Store(target)
	return a
}

// Target returns the target currently receiving writes.
func (a *Agent) Target() *Target {
	return a.target.Load()
}

// SetTarget swaps the target used by subsequent flushes and returns the
// previous one. Writes already issued finish on the previous target.
func (a *Agent) SetTarget(t *Target) *Target {
	return a.target.Swap(t)
}

// Written returns the number of events handed to a target so far.
func (a *Agent) Written() int64 {
	return a.written.Load()
}

// Run executes the main read loop.
// It returns nil when the source is exhausted (or, with Once, when it first
// runs dry) and the context error when ctx is canceled. Pending events are
// flushed before returning in every case.
func (a *Agent) Run(ctx context.Context) error {
	defer a.source.Close()

	back := newBackoff(max(a.config.PollInterval, 100*time.Millisecond), DefaultBackoffMax)

	for {
		select {
		case <-ctx.Done():
			a.flush(ctx)
			return ctx.Err()
		default:
		}

		ev, err := a.source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, ports.ErrSourceExhausted):
				a.flush(ctx)
				a.logger.Info("event source exhausted", ports.Int64("events", a.Written()))
				return nil

			case errors.Is(err, io.EOF):
				// Nothing new; flush what we have while idle
				a.flush(ctx)
				if a.config.Once {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(a.config.PollInterval):
					continue
				}

			case ctx.Err() != nil:
				a.flush(ctx)
				return ctx.Err()
			}

			a.logger.Error("read error", ports.Err(err))
			if werr := back.Wait(ctx); werr != nil {
				a.flush(ctx)
				return werr
			}
			continue
		}
		back.Reset()

		if a.buffer.Add(domain.AsyncEvent{Event: ev}) || a.buffer.ShouldFlush() {
			a.flush(ctx)
		}
	}
}

// flush hands the buffered events to the current target.
// The write outlives ctx so shutdown never abandons events mid-delivery.
func (a *Agent) flush(ctx context.Context) {
	if !a.buffer.HasPending() {
		return
	}
	events := a.buffer.Drain()

	a.pending.Add(1)
	c := WriteLatest(context.WithoutCancel(ctx), a.target.Load, events)
	a.written.Add(int64(len(events)))

	go func() {
		defer a.pending.Done()
		<-c.Done()
		if err := c.Err(); err != nil {
			a.logger.Error("write failed",
				ports.String("invocation", c.ID()),
				ports.Int("events", len(events)),
				ports.Err(err),
			)
		}
	}()

	a.logger.Debug("flushed events",
		ports.String("invocation", c.ID()),
		ports.Int("events", len(events)),
	)
}

// Drain waits until every issued write has completed.
func (a *Agent) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
