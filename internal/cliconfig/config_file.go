package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	yaml "go.yaml.in/yaml/v3"
)

// FileConfig mirrors Config but uses strings for durations so the file
// stays readable. The same keys are used for TOML and YAML.
type FileConfig struct {
	File      string `toml:"file" yaml:"file"`
	Follow    *bool  `toml:"follow" yaml:"follow"`
	FromStart *bool  `toml:"from_start" yaml:"from_start"`
	Poll      *bool  `toml:"poll" yaml:"poll"`
	Layout    string `toml:"layout" yaml:"layout"`
	Once      *bool  `toml:"once" yaml:"once"`

	MaxEvents     int    `toml:"max_events" yaml:"max_events"`
	FlushInterval string `toml:"flush_interval" yaml:"flush_interval"`
	PollInterval  string `toml:"poll_interval" yaml:"poll_interval"`

	MaxBytesPerRequest    int    `toml:"max_bytes_per_request" yaml:"max_bytes_per_request"`
	MaxMessagesPerRequest int    `toml:"max_messages_per_request" yaml:"max_messages_per_request"`
	ConcatMessages        *bool  `toml:"concat_messages" yaml:"concat_messages"`
	Attributes            string `toml:"attributes" yaml:"attributes"`

	Project           string `toml:"project" yaml:"project"`
	Topic             string `toml:"topic" yaml:"topic"`
	DeadLetterProject string `toml:"dead_letter_project" yaml:"dead_letter_project"`
	DeadLetterTopic   string `toml:"dead_letter_topic" yaml:"dead_letter_topic"`

	Timeout         string  `toml:"timeout" yaml:"timeout"`
	MaxAttempts     int     `toml:"max_attempts" yaml:"max_attempts"`
	RetryBackoff    string  `toml:"retry_backoff" yaml:"retry_backoff"`
	MaxInFlight     int     `toml:"max_in_flight" yaml:"max_in_flight"`
	PublishRate     float64 `toml:"publish_rate" yaml:"publish_rate"`
	CredentialsDir  string  `toml:"credentials_dir" yaml:"credentials_dir"`
	CredentialsFile string  `toml:"credentials_file" yaml:"credentials_file"`
	EmulatorHost    string  `toml:"emulator_host" yaml:"emulator_host"`

	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
	Watch     *bool  `toml:"watch" yaml:"watch"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &fc)
	default:
		err = toml.Unmarshal(b, &fc)
	}
	if err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns the first existing file among ~/.pubsink/config.toml, config.yaml
// and config.yml, or the TOML path when none exists.
func DefaultConfigPath() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(h, ".pubsink")
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		if p := filepath.Join(dir, name); FileExists(p) {
			return p
		}
	}
	return filepath.Join(dir, "config.toml")
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("file", fc.File, &cfg.File)
	s.setString("layout", fc.Layout, &cfg.Layout)
	s.setString("attributes", fc.Attributes, &cfg.Attributes)
	s.setString("project", fc.Project, &cfg.Project)
	s.setString("topic", fc.Topic, &cfg.Topic)
	s.setString("dead-letter-project", fc.DeadLetterProject, &cfg.DeadLetterProject)
	s.setString("dead-letter-topic", fc.DeadLetterTopic, &cfg.DeadLetterTopic)
	s.setString("credentials-dir", fc.CredentialsDir, &cfg.CredentialsDir)
	s.setString("credentials-file", fc.CredentialsFile, &cfg.CredentialsFile)
	s.setString("emulator-host", fc.EmulatorHost, &cfg.EmulatorHost)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"flush-interval", fc.FlushInterval, &cfg.FlushInterval},
		{"poll", fc.PollInterval, &cfg.PollInterval},
		{"timeout", fc.Timeout, &cfg.Timeout},
		{"retry-backoff", fc.RetryBackoff, &cfg.RetryBackoff},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("max-events", fc.MaxEvents, &cfg.MaxEvents)
	s.setInt("max-bytes", fc.MaxBytesPerRequest, &cfg.MaxBytesPerRequest)
	s.setInt("max-messages", fc.MaxMessagesPerRequest, &cfg.MaxMessagesPerRequest)
	s.setInt("max-attempts", fc.MaxAttempts, &cfg.MaxAttempts)
	s.setInt("max-in-flight", fc.MaxInFlight, &cfg.MaxInFlight)
	s.setFloat("publish-rate", fc.PublishRate, &cfg.PublishRate)

	s.setBool("follow", fc.Follow, &cfg.Follow)
	s.setBool("from-start", fc.FromStart, &cfg.FromStart)
	s.setBool("poll-files", fc.Poll, &cfg.Poll)
	s.setBool("once", fc.Once, &cfg.Once)
	s.setBool("concat", fc.ConcatMessages, &cfg.ConcatMessages)
	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
