// Package logging provides structured logging configuration using zerolog.
package logging

import (
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

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service, when set, is added to every entry as the "service" field.
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ConfigFromEnv builds a Config from LOG_LEVEL and LOG_PRETTY.
// getenv is usually os.Getenv.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := DefaultConfig()
	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.Level = LogLevel(strings.ToLower(level))
	}
	switch strings.ToLower(getenv("LOG_PRETTY")) {
	case "1", "true", "yes":
		cfg.Pretty = true
	}
	return cfg
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	// Set as global logger
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

// WithRequestID returns a child of logger tagged with a request id.
func WithRequestID(logger zerolog.Logger, requestID string) zerolog.Logger {
	return logger.With().Str("request_id", requestID).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Freshness decisions (not_cached, no_metadata, stale, fresh)
//   - Metadata writes and parent purges
//   - Conditional requests and ETags
//
// Info: Normal operation events
//   - Server startup/shutdown
//   - Parallel page fetch progress
//   - Requests that succeeded after a retry
//
// Warn: Warning conditions that don't prevent operation
//   - Quota warnings (throttling active)
//   - Cache or metadata errors (fallback to the network)
//   - Failed fetch records
//   - Retry exhaustion
//
// Error: Error conditions requiring attention
//   - Failed requests
//   - Critical quota blocks
//   - Store unavailability at startup
//
// Context Fields:
//   - component: emitting package (news-cache, news-client, news-repository, news-proxy)
//   - url: exact request URL used as cache key
//   - parent_url: first-page URL a record is filed under
//   - created_at: record timestamp
//   - endpoint: API path
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network
//   - requests_remaining: current API quota
//   - request_id: proxy request id
