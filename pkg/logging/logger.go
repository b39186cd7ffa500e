// Package logging configures zerolog for the CLI. Logs always go to
// stderr so stdout carries only command output.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON lines.
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// RunID is attached to every event as run_id when set.
	RunID string
}

// DefaultConfig returns the CLI default: info level, pretty, stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: true,
		Output: os.Stderr,
	}
}

// ParseFormat reports whether format selects pretty output.
func ParseFormat(format string) (pretty bool, err error) {
	switch strings.ToLower(format) {
	case "", "pretty", "console":
		return true, nil
	case "json":
		return false, nil
	default:
		return false, fmt.Errorf("unknown log format %q (valid: pretty, json)", format)
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: !isTerminal(out)}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.RunID != "" {
		ctx = ctx.Str("run_id", cfg.RunID)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Log Level Guidelines:
//
// Debug: request flow and internals
//   - Cache hits and misses
//   - Each HTTP attempt (endpoint, request_id)
//   - Resolved match IDs
//
// Info: progress of long operations
//   - Batch progress ("Processing batch 2/7")
//   - Pages collected so far
//   - Fan-out completion per entity
//
// Warn: recoverable conditions
//   - Retry attempts with their backoff
//   - Cache unavailable, continuing uncached
//   - Skipped input rows
//   - A fan-out entity that failed
//
// Error: failures surfaced to the user
//   - Retries exhausted
//   - Batch aborts
//
// Context Fields:
//   - component: emitting package (api-client, batch, pagination, cache)
//   - run_id: per-invocation ID, also the X-Request-Id prefix
//   - endpoint: API path
//   - layer: retry layer (transport, batch)
//   - error_class: client, server, rate_limit, network, decode, unknown
