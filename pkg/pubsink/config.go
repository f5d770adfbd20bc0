package pubsink

import (
	"fmt"
	"time"

	"github.com/bft-labs/pubsink/internal/adapters/gcp"
	"github.com/bft-labs/pubsink/internal/app"
	"github.com/bft-labs/pubsink/internal/domain"
)

// Default values applied by Config.SetDefaults.
const (
	DefaultMaxBytesPerRequest    = app.DefaultMaxBytes
	DefaultMaxMessagesPerRequest = app.DefaultMaxMessages
	DefaultTimeout               = gcp.DefaultTimeout
	DefaultMaxEvents             = 1000
	DefaultFlushInterval         = time.Second
	DefaultPollInterval          = 500 * time.Millisecond
)

// Config holds the configuration for a Sink.
// Use SetDefaults to fill in zero values before Validate.
type Config struct {
	// Project and Topic name the primary destination. Both are required.
	Project string
	Topic   string

	// DeadLetterProject and DeadLetterTopic name the optional dead-letter
	// destination. DeadLetterProject defaults to Project.
	DeadLetterProject string
	DeadLetterTopic   string

	// Attributes is applied to every message, as "key1:value1;key2:value2".
	Attributes string

	// Layout renders events: "json", or a text layout with ${time},
	// ${level}, ${logger}, ${message} and ${field:name} tokens.
	// Empty means the default text layout.
	Layout string

	// MaxBytesPerRequest bounds one publish request in per-record mode.
	// Zero means the default; negative disables the limit.
	MaxBytesPerRequest int

	// MaxMessagesPerRequest caps the messages in one publish request in
	// per-record mode, and seals a concatenated batch once exceeded.
	// Zero means the default; negative disables the limit.
	MaxMessagesPerRequest int

	// ConcatMessages joins records into newline-separated messages
	// instead of publishing one message per record.
	ConcatMessages bool

	// Timeout bounds every publish call. Fixed for the Sink's lifetime.
	Timeout time.Duration

	// MaxAttempts bounds publish calls per batch on the primary destination.
	MaxAttempts int

	// RetryBackoff is the initial delay between retry waves.
	RetryBackoff time.Duration

	// MaxInFlight bounds concurrent publish calls; zero is unbounded.
	MaxInFlight int

	// PublishRate limits publish calls per second; zero is unlimited.
	PublishRate float64

	// CredentialsDir and CredentialsFile locate a service account key.
	// Empty CredentialsFile means application default credentials.
	// Fixed for the Sink's lifetime.
	CredentialsDir  string
	CredentialsFile string

	// MaxEvents, FlushInterval and PollInterval control the read loop
	// when an EventSource is attached.
	MaxEvents     int
	FlushInterval time.Duration
	PollInterval  time.Duration

	// Once stops the read loop when the source first runs dry.
	Once bool
}

// SetDefaults fills in zero values.
func (c *Config) SetDefaults() {
	if c.MaxBytesPerRequest == 0 {
		c.MaxBytesPerRequest = DefaultMaxBytesPerRequest
	}
	if c.MaxMessagesPerRequest == 0 {
		c.MaxMessagesPerRequest = DefaultMaxMessagesPerRequest
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 1
	}
	if c.MaxEvents == 0 {
		c.MaxEvents = DefaultMaxEvents
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.DeadLetterTopic != "" && c.DeadLetterProject == "" {
		c.DeadLetterProject = c.Project
	}
}

// Validate checks the configuration.
// Errors wrap ErrInvalidConfig or ErrInvalidTags.
func (c Config) Validate() error {
	if c.Project == "" || c.Topic == "" {
		return fmt.Errorf("%w: project and topic are required", domain.ErrInvalidConfig)
	}
	if c.DeadLetterTopic == "" && c.DeadLetterProject != "" {
		return fmt.Errorf("%w: dead-letter project set without a dead-letter topic", domain.ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", domain.ErrInvalidConfig)
	}
	if c.MaxInFlight < 0 || c.PublishRate < 0 {
		return fmt.Errorf("%w: max in-flight and publish rate must not be negative", domain.ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", domain.ErrInvalidConfig)
	}
	if _, err := domain.ParseTags(c.Attributes); err != nil {
		return err
	}
	return nil
}

func (c Config) route() domain.Route {
	r := domain.Route{Primary: domain.Destination{Project: c.Project, Topic: c.Topic}}
	if c.DeadLetterTopic != "" {
		r.DeadLetter = &domain.Destination{Project: c.DeadLetterProject, Topic: c.DeadLetterTopic}
	}
	return r
}

func (c Config) targetConfig() app.TargetConfig {
	mode := app.ModePerRecord
	if c.ConcatMessages {
		mode = app.ModeConcat
	}
	return app.TargetConfig{
		Batcher: app.BatcherConfig{
			Mode:        mode,
			MaxBytes:    c.MaxBytesPerRequest,
			MaxMessages: c.MaxMessagesPerRequest,
		},
		Delivery: app.DeliveryConfig{
			MaxAttempts:  c.MaxAttempts,
			RetryBackoff: c.RetryBackoff,
			MaxInFlight:  c.MaxInFlight,
			PublishRate:  c.PublishRate,
		},
		Route:      c.route(),
		Attributes: c.Attributes,
	}
}

func (c Config) agentConfig() app.AgentConfig {
	return app.AgentConfig{
		PollInterval:  c.PollInterval,
		FlushInterval: c.FlushInterval,
		MaxEvents:     c.MaxEvents,
		Once:          c.Once,
	}
}

func (c Config) publisherConfig() gcp.Config {
	return gcp.Config{
		CredentialsDir:  c.CredentialsDir,
		CredentialsFile: c.CredentialsFile,
		Timeout:         c.Timeout,
	}
}
