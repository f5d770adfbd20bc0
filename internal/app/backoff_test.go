package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_Growth(t *testing.T) {
	b := newBackoff(time.Millisecond, 4*time.Millisecond)
	ctx := context.Background()

	want := []time.Duration{2 * time.Millisecond, 4 * time.Millisecond, 4 * time.Millisecond}
	for i, w := range want {
		if err := b.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		if b.Current() != w {
			t.Errorf("after wait %d current = %v, want %v", i+1, b.Current(), w)
		}
	}

	b.Reset()
	if b.Current() != time.Millisecond {
		t.Errorf("after Reset current = %v, want 1ms", b.Current())
	}
}

func TestBackoff_WaitCancelled(t *testing.T) {
	b := newBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	if b.Current() != time.Hour {
		t.Errorf("cancelled wait changed current to %v", b.Current())
	}
}

func TestNewBackoff_Defaults(t *testing.T) {
	if b := newBackoff(time.Second, 0); b.max != DefaultBackoffMax {
		t.Errorf("max = %v, want %v", b.max, DefaultBackoffMax)
	}
	if b := newBackoff(time.Minute, time.Second); b.max != time.Minute {
		t.Errorf("max = %v, want max raised to initial", b.max)
	}
}
