package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pubsink/internal/ports"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologAdapter(&buf, FormatJSON, "debug")

	logger.Warn("partial delivery",
		ports.String("destination", "projects/p/topics/t"),
		ports.Int("messages_sent", 3),
		ports.Int64("offset", 42),
		ports.Bool("retryable", false),
		ports.Duration("duration", 1500*time.Millisecond),
		ports.Err(errors.New("boom")),
		ports.Any("tags", []string{"a"}),
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "partial delivery", entry["message"])
	assert.Equal(t, "projects/p/topics/t", entry["destination"])
	assert.EqualValues(t, 3, entry["messages_sent"])
	assert.EqualValues(t, 42, entry["offset"])
	assert.Equal(t, false, entry["retryable"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "duration")
}

func TestZerologAdapter_Level(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"debug", 4},
		{"info", 3},
		{"WARN", 2},
		{"error", 1},
		{"bogus", 3},
		{"", 3},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewZerologAdapter(&buf, FormatJSON, tt.level)
			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")
			assert.Len(t, decodeLines(t, &buf), tt.want)
		})
	}
}

func TestZerologAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologAdapter(&buf, FormatJSON, "info").With(ports.String("component", "agent"))
	logger.Info("started")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "agent", lines[0]["component"])
}

func TestZerologAdapter_Console(t *testing.T) {
	var buf bytes.Buffer
	NewZerologAdapter(&buf, FormatConsole, "info").Info("hello", ports.String("k", "v"))
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "k=")
}

func TestNoopLogger(t *testing.T) {
	var logger ports.Logger = NewNoopLogger()
	logger.Debug("x")
	logger.Info("x")
	logger.Warn("x")
	logger.Error("x", ports.Err(errors.New("ignored")))
}
