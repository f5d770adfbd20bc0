package pubsink

import (
	"google.golang.org/api/option"

	"github.com/bft-labs/pubsink/internal/app"
	"github.com/bft-labs/pubsink/internal/domain"
	"github.com/bft-labs/pubsink/internal/ports"
	"github.com/bft-labs/pubsink/pkg/log"
)

// Re-exported types so callers need only this package.
type (
	// Logger is the structured logging interface from pkg/log.
	Logger = log.Logger

	// LogField is a structured log field.
	LogField = log.Field

	// LogEvent is one log entry.
	LogEvent = domain.LogEvent

	// Field is a structured key/value on a LogEvent.
	Field = domain.Field

	// AsyncEvent pairs a LogEvent with a completion callback.
	AsyncEvent = domain.AsyncEvent

	// Destination names a project and topic.
	Destination = domain.Destination

	// Batch is one publish request.
	Batch = domain.Batch

	// Completion is the pending result of a Write.
	Completion = app.Completion

	// Report summarizes one delivered Write.
	Report = app.Report

	// Publisher resolves delivery handles for destinations.
	Publisher = ports.Publisher

	// Handle publishes batches to one destination.
	Handle = ports.Handle

	// EventSource supplies events to the read loop.
	EventSource = ports.EventSource

	// Renderer turns a LogEvent into wire text.
	Renderer = ports.Renderer
)

// Option configures optional behavior of a Sink.
type Option func(*options)

type options struct {
	logger        Logger
	eventHandler  EventHandler
	plugins       []Plugin
	publisher     Publisher
	source        EventSource
	renderer      Renderer
	clientOptions []option.ClientOption
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for sink events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the sink starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithPublisher replaces the Pub/Sub publisher, typically with a fake in tests.
// Credentials, Timeout and client options are then ignored.
func WithPublisher(p Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithSource attaches an event source. Start runs a read loop that
// buffers its events and writes them in groups.
func WithSource(source EventSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithRenderer replaces the renderer built from Config.Layout.
// A custom renderer survives Reload.
func WithRenderer(r Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithClientOptions passes options to the Pub/Sub client, for example
// option.WithEndpoint to reach an emulator.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) {
		o.clientOptions = append(o.clientOptions, opts...)
	}
}

// Errors returned by the sink. Check them with errors.Is.
var (
	ErrAlreadyRunning   = domain.ErrAlreadyRunning
	ErrNotRunning       = domain.ErrNotRunning
	ErrShutdownTimeout  = domain.ErrShutdownTimeout
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrInvalidTags      = domain.ErrInvalidTags
	ErrDeadlineExceeded = domain.ErrDeadlineExceeded
	ErrTargetClosed     = domain.ErrTargetClosed
)
