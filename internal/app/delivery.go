package app

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
)

// DeliveryConfig contains configuration for the delivery coordinator.
type DeliveryConfig struct {
	// MaxAttempts bounds publish calls per batch on the primary destination.
	// Values below 1 mean a single attempt.
	MaxAttempts int

	// RetryBackoff is the initial delay between retry waves; zero retries immediately.
	RetryBackoff time.Duration

	// MaxRetryBackoff caps the exponential retry delay.
	MaxRetryBackoff time.Duration

	// MaxInFlight bounds concurrent publish calls within a wave; zero is unbounded.
	MaxInFlight int

	// PublishRate limits publish calls per second across all waves; zero is unlimited.
	PublishRate float64
}

// DeliveryEventEmitter is called once per publish call.
// Calls may arrive concurrently from dispatch goroutines.
type DeliveryEventEmitter interface {
	OnBatchDelivered(dest domain.Destination, messages, bytes int, duration time.Duration)
	OnBatchFailed(dest domain.Destination, err error, messages int, retryable bool)
}

// Report summarizes one delivery invocation.
type Report struct {
	// Batches is the number of batches handed to Deliver
	Batches int

	// Delivered counts batches fully accepted by the primary destination
	Delivered int

	// Partial counts batches accepted with a mismatched id count
	Partial int

	// Ambiguous counts batches whose publish deadline expired
	Ambiguous int

	// Skipped counts batches never sent because ctx ended while waiting
	// for the publish rate limiter
	Skipped int

	// DeadLettered counts batches accepted by the dead-letter destination
	DeadLettered int

	// Dropped counts batches that could not be delivered anywhere
	Dropped int

	// Attempts is the number of waves sent to the primary destination
	Attempts int

	// PublishCalls counts every publish call, including dead-letter calls
	PublishCalls int

	// Rejected counts records refused before batching for exceeding the byte limit
	Rejected int
}

// Coordinator dispatches batches, classifies their outcomes, retries
// transient failures, and redirects exhausted failures to a dead-letter
// destination. Transport errors are logged and never returned.
type Coordinator struct {
	config   DeliveryConfig
	registry *HandleRegistry
	limiter  *rate.Limiter
	logger   ports.Logger
	emitter  DeliveryEventEmitter
}

// NewCoordinator creates a new coordinator resolving handles through registry.
// The emitter may be nil.
func NewCoordinator(config DeliveryConfig, registry *HandleRegistry, logger ports.Logger, emitter DeliveryEventEmitter) *Coordinator {
	var limiter *rate.Limiter
	if config.PublishRate > 0 {
		burst := int(config.PublishRate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.PublishRate), burst)
	}
	return &Coordinator{
		config:   config,
		registry: registry,
		limiter:  limiter,
		logger:   logger,
		emitter:  emitter,
	}
}

// Deliver publishes batches to the route's primary destination.
//
// The only error returned is a failure to resolve the primary destination,
// which happens before any dispatch. Every other failure is absorbed into the
// returned Report.
func (c *Coordinator) Deliver(ctx context.Context, batches []domain.Batch, route domain.Route) (Report, error) {
	report := Report{Batches: len(batches)}
	if len(batches) == 0 {
		return report, nil
	}

	primary, err := c.registry.Resolve(ctx, route.Primary)
	if err != nil {
		return report, err
	}

	maxAttempts := max(c.config.MaxAttempts, 1)
	var back *backoff
	if c.config.RetryBackoff > 0 {
		back = newBackoff(c.config.RetryBackoff, c.config.MaxRetryBackoff)
	}

	pending := batches
	for attempt := 1; ; attempt++ {
		report.Attempts = attempt
		outcomes := c.dispatch(ctx, route.Primary, primary, pending, &report)
		pending = c.classify(route.Primary, attempt, pending, outcomes, &report)

		if len(pending) == 0 || attempt >= maxAttempts {
			break
		}
		if ctx.Err() != nil {
			c.logger.Warn("delivery cancelled, skipping retries",
				ports.Int("batches", len(pending)),
				ports.Err(ctx.Err()),
			)
			break
		}
		if back != nil {
			if err := back.Wait(ctx); err != nil {
				break
			}
		}

		c.logger.Info("retrying failed batches",
			ports.String("destination", route.Primary.Key()),
			ports.Int("batches", len(pending)),
			ports.Int("attempt", attempt+1),
			ports.Int("max_attempts", maxAttempts),
		)
	}

	if len(pending) > 0 {
		c.redirect(ctx, route, pending, &report)
	}
	return report, nil
}

// dispatch publishes every batch concurrently and waits for all of them.
// Outcomes are returned in batch order.
func (c *Coordinator) dispatch(ctx context.Context, dest domain.Destination, h ports.Handle, batches []domain.Batch, report *Report) []domain.Outcome {
	outcomes := make([]domain.Outcome, len(batches))
	var calls atomic.Int64

	var g errgroup.Group
	if c.config.MaxInFlight > 0 {
		g.SetLimit(c.config.MaxInFlight)
	}

	for i := range batches {
		g.Go(func() error {
			batch := batches[i]
			if c.limiter != nil {
				if err := c.limiter.Wait(ctx); err != nil {
					outcomes[i] = domain.Skipped(batch.Size(), err)
					return nil
				}
			}
			calls.Add(1)
			start := time.Now()
			ids, err := h.Publish(ctx, batch)
			outcomes[i] = domain.Classify(batch.Size(), ids, err)
			c.emit(dest, batch, outcomes[i], time.Since(start))
			return nil
		})
	}

	// Publish goroutines never return an error; Wait is the wave barrier
	_ = g.Wait()
	report.PublishCalls += int(calls.Load())
	return outcomes
}

// classify tallies primary outcomes and returns the batches to retry.
func (c *Coordinator) classify(dest domain.Destination, attempt int, batches []domain.Batch, outcomes []domain.Outcome, report *Report) []domain.Batch {
	var retry []domain.Batch
	for i, o := range outcomes {
		batch := batches[i]
		switch {
		case o.Partial():
			report.Partial++
			c.logger.Warn("partial delivery",
				ports.String("destination", dest.Key()),
				ports.Int("messages_sent", o.Expected),
				ports.Int("messages_received", o.Received),
			)
		case o.Kind == domain.OutcomeDelivered:
			report.Delivered++
		case o.Kind == domain.OutcomeTimedOut:
			report.Ambiguous++
			c.logger.Warn("publish deadline exceeded",
				ports.String("destination", dest.Key()),
				ports.Int("messages", batch.Size()),
				ports.Int("records", batch.Records),
				ports.Err(o.Err),
			)
		case o.Kind == domain.OutcomeSkipped:
			c.skip(dest, batch, o, report)
		default:
			retry = append(retry, batch)
			c.logger.Error("publish failed",
				ports.String("destination", dest.Key()),
				ports.Int("attempt", attempt),
				ports.Int("messages", batch.Size()),
				ports.Int("bytes", batch.TotalBytes),
				ports.Err(o.Err),
			)
		}
	}
	return retry
}

// redirect sends exhausted failures to the dead-letter destination once,
// or drops them when no dead-letter destination is configured.
func (c *Coordinator) redirect(ctx context.Context, route domain.Route, batches []domain.Batch, report *Report) {
	if !route.HasDeadLetter() {
		c.drop(route.Primary, batches, report, "no dead-letter destination")
		return
	}

	dlq := *route.DeadLetter
	h, err := c.registry.Resolve(ctx, dlq)
	if err != nil {
		c.drop(route.Primary, batches, report, "dead-letter destination unavailable")
		return
	}

	outcomes := c.dispatch(ctx, dlq, h, batches, report)
	var dropped []domain.Batch
	for i, o := range outcomes {
		switch {
		case o.Kind == domain.OutcomeDelivered:
			report.DeadLettered++
			if o.Partial() {
				c.logger.Warn("partial delivery",
					ports.String("destination", dlq.Key()),
					ports.Int("messages_sent", o.Expected),
					ports.Int("messages_received", o.Received),
				)
			}
		case o.Kind == domain.OutcomeTimedOut:
			report.Ambiguous++
			c.logger.Warn("publish deadline exceeded",
				ports.String("destination", dlq.Key()),
				ports.Int("messages", batches[i].Size()),
				ports.Err(o.Err),
			)
		case o.Kind == domain.OutcomeSkipped:
			c.skip(dlq, batches[i], o, report)
		default:
			c.logger.Error("dead-letter publish failed",
				ports.String("destination", dlq.Key()),
				ports.Err(o.Err),
			)
			dropped = append(dropped, batches[i])
		}
	}

	if n := len(batches) - len(dropped); n > 0 {
		c.logger.Info("dead-lettered batches",
			ports.String("destination", dlq.Key()),
			ports.Int("batches", n),
		)
	}
	if len(dropped) > 0 {
		c.drop(dlq, dropped, report, "dead-letter publish failed")
	}
}

func (c *Coordinator) skip(dest domain.Destination, batch domain.Batch, o domain.Outcome, report *Report) {
	report.Skipped++
	c.logger.Warn("publish skipped",
		ports.String("destination", dest.Key()),
		ports.Int("messages", batch.Size()),
		ports.Int("records", batch.Records),
		ports.Err(o.Err),
	)
}

func (c *Coordinator) drop(dest domain.Destination, batches []domain.Batch, report *Report, reason string) {
	records := 0
	for _, b := range batches {
		records += b.Records
	}
	report.Dropped += len(batches)
	c.logger.Error("batches dropped",
		ports.String("destination", dest.Key()),
		ports.String("reason", reason),
		ports.Int("batches", len(batches)),
		ports.Int("records", records),
	)
}

func (c *Coordinator) emit(dest domain.Destination, batch domain.Batch, o domain.Outcome, duration time.Duration) {
	if c.emitter == nil {
		return
	}
	if o.Kind == domain.OutcomeDelivered {
		c.emitter.OnBatchDelivered(dest, o.Received, batch.TotalBytes, duration)
		return
	}
	c.emitter.OnBatchFailed(dest, o.Err, batch.Size(), o.Retryable())
}
