package domain

import (
	"context"
	"errors"
)

// OutcomeKind classifies the result of one publish call.
type OutcomeKind int

const (
	// OutcomeDelivered means the backend accepted the call.
	OutcomeDelivered OutcomeKind = iota
	// OutcomeFailed means the call failed and may be retried.
	OutcomeFailed
	// OutcomeTimedOut means the transport deadline expired.
	// The publish may have succeeded server-side, so it is never retried.
	OutcomeTimedOut
	// OutcomeSkipped means no publish call was made because the caller's
	// context ended before a publish slot was available.
	OutcomeSkipped
)

// String returns a human-readable representation of the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDelivered:
		return "Delivered"
	case OutcomeFailed:
		return "Failed"
	case OutcomeTimedOut:
		return "TimedOut"
	case OutcomeSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// Outcome is the classified result of publishing one batch.
type Outcome struct {
	Kind OutcomeKind

	// Received is the number of message ids the backend returned
	Received int

	// Expected is the number of messages sent
	Expected int

	// Err is the failure cause for Failed, TimedOut and Skipped outcomes
	Err error
}

// Classify turns the raw result of a publish call into an Outcome.
func Classify(expected int, ids []string, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Kind: OutcomeDelivered, Received: len(ids), Expected: expected}
	case IsDeadlineExceeded(err):
		return Outcome{Kind: OutcomeTimedOut, Expected: expected, Err: err}
	default:
		return Outcome{Kind: OutcomeFailed, Expected: expected, Err: err}
	}
}

// Skipped returns the outcome of a batch that was never sent.
func Skipped(expected int, err error) Outcome {
	return Outcome{Kind: OutcomeSkipped, Expected: expected, Err: err}
}

// IsDeadlineExceeded reports whether err signals a transport deadline expiry.
func IsDeadlineExceeded(err error) bool {
	return errors.Is(err, ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}

// Partial reports whether the backend accepted the call but returned
// a different number of ids than messages sent.
func (o Outcome) Partial() bool {
	return o.Kind == OutcomeDelivered && o.Received != o.Expected
}

// Retryable reports whether the batch belongs in the retry set.
func (o Outcome) Retryable() bool {
	return o.Kind == OutcomeFailed
}
