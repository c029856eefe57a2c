// Package logging configures zerolog for the report commands.
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
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON lines.
	Pretty bool

	// Output is where logs go (default: os.Stderr). Report CSVs and
	// progress lines go to stdout, so logs stay off it.
	Output io.Writer
}

// DefaultConfig returns console logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: true,
		Output: os.Stderr,
	}
}

// ConfigFromEnv reads LOG_LEVEL and LOG_FORMAT ("json" or "console")
// through getenv, starting from DefaultConfig.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := DefaultConfig()
	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.Level = LogLevel(strings.ToLower(level))
	}
	switch strings.ToLower(getenv("LOG_FORMAT")) {
	case "json":
		cfg.Pretty = false
	case "console", "pretty":
		cfg.Pretty = true
	}
	return cfg
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

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

// NewLogger creates a logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow (method, endpoint), rate budget updates, page totals
//
// Info: pages fetched ("Fetching"), report row counts, output file written
//
// Warn: rate limit backoff waits, 4xx/5xx responses, partial fetches,
// groups not found for a pivot department
//
// Error: aborted runs, exhausted rate limit retries, transport failures
//
// Context Fields:
//   - component: idp-client, pagination, report, cli
//   - org: organization host
//   - url / endpoint: request target (endpoint has ids replaced by {id})
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network
//   - remaining / reset_at / wait: rate budget
//   - rows / records / pages: counts
