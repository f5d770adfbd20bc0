package app

import (
	"testing"
	"time"

	"github.com/bft-labs/pubsink/internal/domain"
)

func TestBuffer_SizeTrigger(t *testing.T) {
	b := NewBuffer(3, 0)

	for i := 0; i < 2; i++ {
		if b.Add(domain.AsyncEvent{}) {
			t.Fatalf("add %d should not trigger a flush", i)
		}
	}
	if !b.Add(domain.AsyncEvent{}) {
		t.Fatal("third add should trigger a flush")
	}

	events := b.Drain()
	if len(events) != 3 {
		t.Errorf("drained %d events, want 3", len(events))
	}
	if b.HasPending() {
		t.Error("buffer should be empty after drain")
	}
}

func TestBuffer_TimeTrigger(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBuffer(0, time.Second)
	b.now = func() time.Time { return now }
	b.lastFlush = now

	if b.ShouldFlush() {
		t.Error("empty buffer should never flush")
	}

	b.Add(domain.AsyncEvent{})
	now = now.Add(999 * time.Millisecond)
	if b.ShouldFlush() {
		t.Error("should not flush before the interval")
	}

	now = now.Add(time.Millisecond)
	if !b.ShouldFlush() {
		t.Error("should flush once the interval has elapsed")
	}

	b.Drain()
	b.Add(domain.AsyncEvent{})
	if b.ShouldFlush() {
		t.Error("drain should restart the interval")
	}
}

func TestBuffer_TriggersDisabled(t *testing.T) {
	b := NewBuffer(0, 0)
	for i := 0; i < 100; i++ {
		if b.Add(domain.AsyncEvent{}) {
			t.Fatal("size trigger should be disabled")
		}
	}
	if b.ShouldFlush() {
		t.Error("time trigger should be disabled")
	}
	if b.Len() != 100 {
		t.Errorf("Len() = %d, want 100", b.Len())
	}
}
