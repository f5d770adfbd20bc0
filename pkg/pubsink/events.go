package pubsink

import (
	"time"

	"github.com/bft-labs/pubsink/internal/app"
	"github.com/bft-labs/pubsink/internal/domain"
)

// EventHandler receives notifications about sink operations.
// Delivery events may be called concurrently from publish goroutines;
// implementations must be safe for concurrent use and return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnBatchDelivered(event BatchDeliveredEvent)
	OnBatchFailed(event BatchFailedEvent)
	OnRecordRejected(event RecordRejectedEvent)
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// BatchDeliveredEvent describes a publish call accepted by a destination.
type BatchDeliveredEvent struct {
	Destination Destination
	Messages    int
	Bytes       int
	Duration    time.Duration
}

// BatchFailedEvent describes a failed publish call.
// Retryable is false when the deadline expired or attempts are exhausted.
type BatchFailedEvent struct {
	Destination Destination
	Error       error
	Messages    int
	Retryable   bool
}

// RecordRejectedEvent describes a record dropped for exceeding the byte limit.
type RecordRejectedEvent struct {
	Bytes int
	Limit int
}

// BaseEventHandler implements EventHandler with no-ops.
// Embed it to handle only the events you care about.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)       {}
func (BaseEventHandler) OnBatchDelivered(BatchDeliveredEvent) {}
func (BaseEventHandler) OnBatchFailed(BatchFailedEvent)       {}
func (BaseEventHandler) OnRecordRejected(RecordRejectedEvent) {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnBatchDelivered(dest domain.Destination, messages, bytes int, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnBatchDelivered(BatchDeliveredEvent{
		Destination: dest,
		Messages:    messages,
		Bytes:       bytes,
		Duration:    duration,
	})
}

func (e *eventEmitterWrapper) OnBatchFailed(dest domain.Destination, err error, messages int, retryable bool) {
	if e.handler == nil {
		return
	}
	e.handler.OnBatchFailed(BatchFailedEvent{
		Destination: dest,
		Error:       err,
		Messages:    messages,
		Retryable:   retryable,
	})
}

func (e *eventEmitterWrapper) OnRecordRejected(bytes, limit int) {
	if e.handler == nil {
		return
	}
	e.handler.OnRecordRejected(RecordRejectedEvent{Bytes: bytes, Limit: limit})
}
