package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
)

// publishFunc decides the result of one publish call.
type publishFunc func(ctx context.Context, batch domain.Batch) ([]string, error)

func acceptAll(_ context.Context, batch domain.Batch) ([]string, error) {
	ids := make([]string, batch.Size())
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	return ids, nil
}

func failWith(err error) publishFunc {
	return func(context.Context, domain.Batch) ([]string, error) {
		return nil, err
	}
}

// fakeHandle records every batch it is asked to publish.
type fakeHandle struct {
	mu       sync.Mutex
	fn       publishFunc
	batches  []domain.Batch
	closed   bool
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (h *fakeHandle) Publish(ctx context.Context, batch domain.Batch) ([]string, error) {
	n := h.inFlight.Add(1)
	defer h.inFlight.Add(-1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}

	h.mu.Lock()
	h.batches = append(h.batches, batch)
	fn := h.fn
	h.mu.Unlock()

	if fn == nil {
		return acceptAll(ctx, batch)
	}
	return fn(ctx, batch)
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.batches)
}

// fakePublisher hands out one fakeHandle per destination.
type fakePublisher struct {
	mu         sync.Mutex
	handles    map[string]*fakeHandle
	failures   map[string]error
	resolves   atomic.Int32
	resolveLag time.Duration
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		handles:  make(map[string]*fakeHandle),
		failures: make(map[string]error),
	}
}

// on configures the behavior of the handle for dest.
func (p *fakePublisher) on(dest domain.Destination, fn publishFunc) *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := &fakeHandle{fn: fn}
	p.handles[dest.Key()] = h
	return h
}

func (p *fakePublisher) failResolve(dest domain.Destination, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[dest.Key()] = err
}

func (p *fakePublisher) Resolve(_ context.Context, dest domain.Destination) (ports.Handle, error) {
	p.resolves.Add(1)
	if p.resolveLag > 0 {
		time.Sleep(p.resolveLag)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failures[dest.Key()]; ok {
		return nil, err
	}
	h, ok := p.handles[dest.Key()]
	if !ok {
		h = &fakeHandle{}
		p.handles[dest.Key()] = h
	}
	return h, nil
}

// recordingEmitter implements DeliveryEventEmitter for testing.
type recordingEmitter struct {
	delivered atomic.Int32
	failed    atomic.Int32
}

func (e *recordingEmitter) OnBatchDelivered(domain.Destination, int, int, time.Duration) {
	e.delivered.Add(1)
}

func (e *recordingEmitter) OnBatchFailed(domain.Destination, error, int, bool) {
	e.failed.Add(1)
}

func makeBatches(n, messagesEach int) []domain.Batch {
	batches := make([]domain.Batch, n)
	for i := range batches {
		for j := 0; j < messagesEach; j++ {
			batches[i].Add(domain.Message{Data: []byte(fmt.Sprintf("b%d-m%d", i, j))}, 1)
		}
	}
	return batches
}

var (
	primaryDest = domain.Destination{Project: "proj", Topic: "logs"}
	dlqDest     = domain.Destination{Project: "proj", Topic: "logs-dlq"}
)
