package log

import (
	"io"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/pubsink/internal/adapters/log"
)

// Output formats accepted by NewZerolog.
const (
	FormatConsole = string(logAdapter.FormatConsole)
	FormatJSON    = string(logAdapter.FormatJSON)
)

// NewZerolog returns a zerolog-backed Logger writing to w.
// format is "console" or "json"; an unknown level falls back to info.
func NewZerolog(w io.Writer, format, level string) Logger {
	return logAdapter.NewZerologAdapter(w, logAdapter.Format(format), level)
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return logAdapter.NewZerologAdapterWithLogger(logger)
}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	return logAdapter.NewNoopLogger()
}
