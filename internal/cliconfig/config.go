package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/pubsink/internal/domain"
)

// Config holds CLI configuration for pubsink.
type Config struct {
	// Source
	File      string
	Follow    bool
	FromStart bool
	Poll      bool
	Layout    string
	Once      bool

	// Buffering
	MaxEvents     int
	FlushInterval time.Duration
	PollInterval  time.Duration

	// Batching
	MaxBytesPerRequest    int
	MaxMessagesPerRequest int
	ConcatMessages        bool
	Attributes            string

	// Routing
	Project           string
	Topic             string
	DeadLetterProject string
	DeadLetterTopic   string

	// Transport
	Timeout         time.Duration
	MaxAttempts     int
	RetryBackoff    time.Duration
	MaxInFlight     int
	PublishRate     float64
	CredentialsDir  string
	CredentialsFile string
	EmulatorHost    string

	// Process
	LogLevel  string
	LogFormat string
	Watch     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Follow:                true,
		MaxEvents:             1000,
		FlushInterval:         time.Second,
		PollInterval:          500 * time.Millisecond,
		MaxBytesPerRequest:    1 << 20, // 1MB
		MaxMessagesPerRequest: 1000,
		Timeout:               3 * time.Second,
		MaxAttempts:           1,
		LogLevel:              "info",
		LogFormat:             "console",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
// Every error wraps domain.ErrInvalidConfig or domain.ErrInvalidTags.
func (c *Config) Validate() error {
	if c.Project == "" {
		return fmt.Errorf("%w: project is required", domain.ErrInvalidConfig)
	}
	if c.Topic == "" {
		return fmt.Errorf("%w: topic is required", domain.ErrInvalidConfig)
	}
	if c.DeadLetterTopic != "" && c.DeadLetterProject == "" {
		c.DeadLetterProject = c.Project
	}
	if c.DeadLetterProject != "" && c.DeadLetterTopic == "" {
		return fmt.Errorf("%w: dead-letter-topic is required with dead-letter-project", domain.ErrInvalidConfig)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max-attempts must be at least 1", domain.ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", domain.ErrInvalidConfig)
	}
	if c.PublishRate < 0 {
		return fmt.Errorf("%w: publish-rate must not be negative", domain.ErrInvalidConfig)
	}

	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log-format must be console or json", domain.ErrInvalidConfig)
	}

	if _, err := domain.ParseTags(c.Attributes); err != nil {
		return err
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if positive.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
