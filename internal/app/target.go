package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
)

// TargetConfig contains everything a Target needs besides its collaborators.
type TargetConfig struct {
	Batcher  BatcherConfig
	Delivery DeliveryConfig
	Route    domain.Route

	// Attributes is the raw "key:value;key:value" tag string.
	// It is parsed once, when the target is built.
	Attributes string
}

// TargetEventEmitter receives delivery events and record rejections.
type TargetEventEmitter interface {
	DeliveryEventEmitter
	OnRecordRejected(bytes, limit int)
}

// Target renders, batches and delivers groups of log events.
// Each Write is an independent invocation running on its own goroutine.
type Target struct {
	renderer    ports.Renderer
	batcher     *Batcher
	coordinator *Coordinator
	route       domain.Route
	maxBytes    int
	logger      ports.Logger
	emitter     TargetEventEmitter

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewTarget builds a target. Handles are resolved through registry, which
// may be shared between targets and is not closed by the target.
func NewTarget(
	config TargetConfig,
	renderer ports.Renderer,
	registry *HandleRegistry,
	logger ports.Logger,
	emitter TargetEventEmitter,
) (*Target, error) {
	if !config.Route.Primary.Complete() {
		return nil, fmt.Errorf("%w: project and topic are required", domain.ErrInvalidConfig)
	}
	if config.Route.HasDeadLetter() && !config.Route.DeadLetter.Complete() {
		return nil, fmt.Errorf("%w: dead-letter destination is incomplete", domain.ErrInvalidConfig)
	}

	tags, err := domain.ParseTags(config.Attributes)
	if err != nil {
		return nil, err
	}

	var deliveryEmitter DeliveryEventEmitter
	if emitter != nil {
		deliveryEmitter = emitter
	}

	return &Target{
		renderer:    renderer,
		batcher:     NewBatcher(config.Batcher, tags, logger),
		coordinator: NewCoordinator(config.Delivery, registry, logger, deliveryEmitter),
		route:       config.Route,
		maxBytes:    config.Batcher.MaxBytes,
		logger:      logger,
		emitter:     emitter,
	}, nil
}

// Route returns the destinations this target publishes to.
func (t *Target) Route() domain.Route {
	return t.route
}

// Write starts delivering events and returns immediately.
//
// Once every wave has finished, including the dead-letter wave, each event's
// continuation is called: with nil, or with the invocation error when the
// whole invocation failed. The returned Completion resolves afterwards.
func (t *Target) Write(ctx context.Context, events []domain.AsyncEvent) *Completion {
	if c, ok := t.tryWrite(ctx, events); ok {
		return c
	}
	c := newCompletion(uuid.NewString())
	for _, ev := range events {
		ev.Complete(domain.ErrTargetClosed)
	}
	c.resolve(Report{}, domain.ErrTargetClosed)
	return c
}

// WriteLatest writes events to the target returned by current. When that
// target was closed by a concurrent swap, the write moves to its replacement.
// Writes fail with ErrTargetClosed only when current keeps returning the
// same closed target.
func WriteLatest(ctx context.Context, current func() *Target, events []domain.AsyncEvent) *Completion {
	t := current()
	for {
		if c, ok := t.tryWrite(ctx, events); ok {
			return c
		}
		next := current()
		if next == t {
			return t.Write(ctx, events)
		}
		t = next
	}
}

// tryWrite starts an invocation unless the target is closed.
func (t *Target) tryWrite(ctx context.Context, events []domain.AsyncEvent) (*Completion, bool) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, false
	}
	t.inflight.Add(1)
	t.mu.Unlock()

	c := newCompletion(uuid.NewString())
	go func() {
		defer t.inflight.Done()

		report, err := t.invoke(ctx, c.id, events)
		for _, ev := range events {
			ev.Complete(err)
		}
		c.resolve(report, err)
	}()
	return c, true
}

func (t *Target) invoke(ctx context.Context, id string, events []domain.AsyncEvent) (Report, error) {
	start := time.Now()

	records := make([]domain.Record, 0, len(events))
	for i, ev := range events {
		text, err := t.renderer.Render(ev.Event)
		if err != nil {
			err = fmt.Errorf("render event %d: %w", i, err)
			t.logger.Error("invocation failed",
				ports.String("invocation", id),
				ports.Int("events", len(events)),
				ports.Err(err),
			)
			return Report{}, err
		}
		records = append(records, domain.NewRecord(text))
	}

	plan := t.batcher.Form(records)
	if t.emitter != nil {
		for _, r := range plan.Oversized {
			t.emitter.OnRecordRejected(r.Len(), t.maxBytes)
		}
	}

	report, err := t.coordinator.Deliver(ctx, plan.Batches, t.route)
	report.Rejected = len(plan.Oversized)
	if err != nil {
		t.logger.Error("invocation failed",
			ports.String("invocation", id),
			ports.Int("events", len(events)),
			ports.Err(err),
		)
		return report, err
	}

	t.logger.Debug("invocation complete",
		ports.String("invocation", id),
		ports.Int("events", len(events)),
		ports.Int("batches", report.Batches),
		ports.Int("delivered", report.Delivered),
		ports.Int("dead_lettered", report.DeadLettered),
		ports.Int("dropped", report.Dropped),
		ports.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// Close rejects new writes and waits for in-flight writes to finish.
// Returns the context error if ctx is done first.
func (t *Target) Close(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Completion is the pending result of one Write.
type Completion struct {
	id     string
	done   chan struct{}
	report Report
	err    error
}

func newCompletion(id string) *Completion {
	return &Completion{id: id, done: make(chan struct{})}
}

func (c *Completion) resolve(report Report, err error) {
	c.report = report
	c.err = err
	close(c.done)
}

// ID returns the invocation id used in log entries.
func (c *Completion) ID() string {
	return c.id
}

// Done is closed once every continuation of the write has been called.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the write completes and returns its error.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the invocation error, or nil while the write is pending.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Report returns the delivery summary, or a zero Report while pending.
func (c *Completion) Report() Report {
	select {
	case <-c.done:
		return c.report
	default:
		return Report{}
	}
}
