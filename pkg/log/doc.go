// Package log is the logging abstraction shared by pubsink and its plugins.
//
// Use the zerolog-backed logger:
//
//	logger := log.NewZerolog(os.Stderr, log.FormatJSON, "debug")
//
// Or wrap a zerolog.Logger you already configured:
//
//	logger := log.NewZerologLogger(zerolog.New(os.Stderr))
//
// Any type with Debug, Info, Warn and Error methods taking ...log.Field
// satisfies [Logger].
package log
