package domain

import "time"

// Field is a single structured key/value attached to a log event.
type Field struct {
	Key   string
	Value string
}

// LogEvent is one log entry produced by the host.
type LogEvent struct {
	// Time is when the event was produced
	Time time.Time

	// Level is the severity name (e.g., "info", "error")
	Level string

	// Logger names the component or file that produced the event
	Logger string

	// Message is the log line itself
	Message string

	// Fields holds extra structured data in insertion order
	Fields []Field
}

// Field returns the value of the named field and whether it was present.
func (e LogEvent) Field(key string) (string, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Continuation is invoked exactly once when the write that carried
// an event has completed. A nil error means the event was accepted.
type Continuation func(err error)

// AsyncEvent pairs a log event with its completion callback.
type AsyncEvent struct {
	Event        LogEvent
	Continuation Continuation
}

// Complete signals the continuation, if any.
func (e AsyncEvent) Complete(err error) {
	if e.Continuation != nil {
		e.Continuation(err)
	}
}

// Record is the rendered wire text of one event.
// It is immutable once rendered.
type Record struct {
	Data []byte
}

// NewRecord creates a record from rendered text.
func NewRecord(text string) Record {
	return Record{Data: []byte(text)}
}

// Len returns the payload size in bytes.
func (r Record) Len() int {
	return len(r.Data)
}
