package cliconfig

import (
	"os"
	"time"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "PUBSINK_"

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ApplyEnvConfig applies configuration from environment variables (PUBSINK_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("file", env("FILE"), &cfg.File)
	s.setString("layout", env("LAYOUT"), &cfg.Layout)
	s.setString("attributes", env("ATTRIBUTES"), &cfg.Attributes)
	s.setString("project", env("PROJECT"), &cfg.Project)
	s.setString("topic", env("TOPIC"), &cfg.Topic)
	s.setString("dead-letter-project", env("DEAD_LETTER_PROJECT"), &cfg.DeadLetterProject)
	s.setString("dead-letter-topic", env("DEAD_LETTER_TOPIC"), &cfg.DeadLetterTopic)
	s.setString("credentials-dir", env("CREDENTIALS_DIR"), &cfg.CredentialsDir)
	s.setString("credentials-file", env("CREDENTIALS_FILE"), &cfg.CredentialsFile)
	s.setString("emulator-host", env("EMULATOR_HOST"), &cfg.EmulatorHost)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)

	durations := []struct {
		flag string
		name string
		dst  *time.Duration
	}{
		{"flush-interval", "FLUSH_INTERVAL", &cfg.FlushInterval},
		{"poll", "POLL_INTERVAL", &cfg.PollInterval},
		{"timeout", "TIMEOUT", &cfg.Timeout},
		{"retry-backoff", "RETRY_BACKOFF", &cfg.RetryBackoff},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, env(d.name), d.dst); err != nil {
			return err
		}
	}

	ints := []struct {
		flag string
		name string
		dst  *int
	}{
		{"max-events", "MAX_EVENTS", &cfg.MaxEvents},
		{"max-bytes", "MAX_BYTES_PER_REQUEST", &cfg.MaxBytesPerRequest},
		{"max-messages", "MAX_MESSAGES_PER_REQUEST", &cfg.MaxMessagesPerRequest},
		{"max-attempts", "MAX_ATTEMPTS", &cfg.MaxAttempts},
		{"max-in-flight", "MAX_IN_FLIGHT", &cfg.MaxInFlight},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, env(i.name), i.dst); err != nil {
			return err
		}
	}

	if err := s.setFloatFromString("publish-rate", env("PUBLISH_RATE"), &cfg.PublishRate); err != nil {
		return err
	}

	s.setBoolFromString("follow", env("FOLLOW"), &cfg.Follow)
	s.setBoolFromString("from-start", env("FROM_START"), &cfg.FromStart)
	s.setBoolFromString("poll-files", env("POLL_FILES"), &cfg.Poll)
	s.setBoolFromString("once", env("ONCE"), &cfg.Once)
	s.setBoolFromString("concat", env("CONCAT_MESSAGES"), &cfg.ConcatMessages)
	s.setBoolFromString("watch", env("WATCH"), &cfg.Watch)

	return nil
}

// Load builds the effective configuration: defaults, then the config file
// at path (if it exists), then PUBSINK_* variables. Flags recorded in
// changed keep the values already in base.
func Load(base Config, path string, changed map[string]bool) (Config, error) {
	cfg := base
	if path != "" && FileExists(path) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return cfg, err
		}
		if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
