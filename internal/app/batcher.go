package app

import (
	"bytes"

	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
)

// Default batching limits, matching the Pub/Sub publish request limits.
const (
	DefaultMaxBytes    = 1 << 20 // 1MB
	DefaultMaxMessages = 1000
)

// BatchMode selects how records become messages.
type BatchMode int

const (
	// ModePerRecord turns every record into its own message.
	ModePerRecord BatchMode = iota
	// ModeConcat folds consecutive records into one newline-separated message.
	ModeConcat
)

// String returns a human-readable representation of the mode.
func (m BatchMode) String() string {
	switch m {
	case ModePerRecord:
		return "per-record"
	case ModeConcat:
		return "concat"
	default:
		return "unknown"
	}
}

// BatcherConfig contains the limits used to form batches.
// A non-positive limit disables that limit.
type BatcherConfig struct {
	Mode        BatchMode
	MaxBytes    int
	MaxMessages int
}

// Batcher partitions rendered records into publish batches.
// It holds no per-call state and is safe for concurrent use.
type Batcher struct {
	config BatcherConfig
	tags   domain.Tags
	logger ports.Logger
}

// NewBatcher creates a new batcher with the given configuration.
func NewBatcher(config BatcherConfig, tags domain.Tags, logger ports.Logger) *Batcher {
	return &Batcher{
		config: config,
		tags:   tags,
		logger: logger,
	}
}

// Form converts records into an ordered sequence of batches.
func (b *Batcher) Form(records []domain.Record) domain.BatchPlan {
	if b.config.Mode == ModeConcat {
		return b.formConcat(records)
	}
	return b.formPerRecord(records)
}

// formPerRecord places one message per record, sealing a batch whenever the
// next record would push it over MaxBytes or past MaxMessages messages.
func (b *Batcher) formPerRecord(records []domain.Record) domain.BatchPlan {
	var plan domain.BatchPlan
	limit := b.config.MaxBytes
	maxMessages := b.config.MaxMessages
	current := domain.Batch{}

	for _, rec := range records {
		// A record larger than the limit can never fit
		if limit > 0 && rec.Len() > limit {
			b.logger.Warn("message exceeds backend limit",
				ports.Int("message_bytes", rec.Len()),
				ports.Int("max_bytes", limit),
			)
			plan.Oversized = append(plan.Oversized, rec)
			continue
		}

		overBytes := limit > 0 && current.TotalBytes+rec.Len() > limit
		overCount := maxMessages > 0 && current.Size() >= maxMessages
		if (overBytes || overCount) && !current.Empty() {
			plan.Batches = append(plan.Batches, current)
			current = domain.Batch{}
		}

		current.Add(b.message(rec.Data), 1)
	}

	if !current.Empty() {
		plan.Batches = append(plan.Batches, current)
	}
	return plan
}

// formConcat folds records into one message per batch. The buffer is sealed
// when its record count already exceeds MaxMessages, so a message covers at
// most MaxMessages+1 records.
func (b *Batcher) formConcat(records []domain.Record) domain.BatchPlan {
	var plan domain.BatchPlan
	var buf bytes.Buffer
	count := 0

	seal := func() {
		data := make([]byte, buf.Len())
		copy(data, buf.Bytes())
		if b.config.MaxBytes > 0 && len(data) > b.config.MaxBytes {
			b.logger.Warn("concatenated message exceeds byte limit",
				ports.Int("message_bytes", len(data)),
				ports.Int("max_bytes", b.config.MaxBytes),
				ports.Int("records", count),
			)
		}
		batch := domain.Batch{}
		batch.Add(b.message(data), count)
		plan.Batches = append(plan.Batches, batch)
		buf.Reset()
		count = 0
	}

	for _, rec := range records {
		if b.config.MaxMessages > 0 && count > b.config.MaxMessages {
			seal()
		}
		buf.Write(rec.Data)
		buf.WriteByte('\n')
		count++
	}

	if count > 0 {
		seal()
	}
	return plan
}

func (b *Batcher) message(data []byte) domain.Message {
	return domain.Message{Data: data, Attributes: b.tags}
}
