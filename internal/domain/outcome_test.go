package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		expected      int
		ids           []string
		err           error
		wantKind      OutcomeKind
		wantPartial   bool
		wantRetryable bool
	}{
		{"full delivery", 2, []string{"1", "2"}, nil, OutcomeDelivered, false, false},
		{"partial delivery", 3, []string{"1"}, nil, OutcomeDelivered, true, false},
		{"transport failure", 2, nil, errors.New("unavailable"), OutcomeFailed, false, true},
		{"domain deadline", 2, nil, fmt.Errorf("publish: %w", ErrDeadlineExceeded), OutcomeTimedOut, false, false},
		{"context deadline", 2, nil, context.DeadlineExceeded, OutcomeTimedOut, false, false},
		{"cancelled is a failure", 2, nil, context.Canceled, OutcomeFailed, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Classify(tt.expected, tt.ids, tt.err)
			if o.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", o.Kind, tt.wantKind)
			}
			if o.Partial() != tt.wantPartial {
				t.Errorf("Partial() = %v, want %v", o.Partial(), tt.wantPartial)
			}
			if o.Retryable() != tt.wantRetryable {
				t.Errorf("Retryable() = %v, want %v", o.Retryable(), tt.wantRetryable)
			}
			if o.Expected != tt.expected {
				t.Errorf("Expected = %d, want %d", o.Expected, tt.expected)
			}
		})
	}
}

func TestOutcomeKind_String(t *testing.T) {
	tests := []struct {
		kind OutcomeKind
		want string
	}{
		{OutcomeDelivered, "Delivered"},
		{OutcomeFailed, "Failed"},
		{OutcomeTimedOut, "TimedOut"},
		{OutcomeSkipped, "Skipped"},
		{OutcomeKind(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("OutcomeKind(%d).String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestSkipped(t *testing.T) {
	o := Skipped(3, context.Canceled)
	if o.Kind != OutcomeSkipped || o.Expected != 3 {
		t.Errorf("Skipped = %+v", o)
	}
	if o.Retryable() {
		t.Error("skipped outcome must not be retried")
	}
	if o.Partial() {
		t.Error("skipped outcome reported as partial delivery")
	}
}

func TestRoute_HasDeadLetter(t *testing.T) {
	primary := Destination{Project: "p", Topic: "logs"}
	if (Route{Primary: primary}).HasDeadLetter() {
		t.Error("route without dead letter reports HasDeadLetter")
	}
	if (Route{Primary: primary, DeadLetter: &Destination{}}).HasDeadLetter() {
		t.Error("zero dead letter destination reports HasDeadLetter")
	}
	if !(Route{Primary: primary, DeadLetter: &Destination{Project: "p", Topic: "dlq"}}).HasDeadLetter() {
		t.Error("configured dead letter not reported")
	}
	if got := primary.Key(); got != "projects/p/topics/logs" {
		t.Errorf("Key() = %q", got)
	}
}
