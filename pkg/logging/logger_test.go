package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Level = %s, want info", cfg.Level)
	}
	if !cfg.Pretty {
		t.Error("default output should be console for interactive runs")
	}
	if cfg.Output == nil {
		t.Error("default output should be stderr")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   LogLevel
		visible []string
		hidden  []string
	}{
		{LevelDebug, []string{"Executing request", "Fetching", "Rate limit reached", "Run aborted"}, nil},
		{LevelInfo, []string{"Fetching", "Rate limit reached", "Run aborted"}, []string{"Executing request"}},
		{LevelWarn, []string{"Rate limit reached", "Run aborted"}, []string{"Executing request", "Fetching"}},
		{LevelError, []string{"Run aborted"}, []string{"Executing request", "Fetching", "Rate limit reached"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			buf := &bytes.Buffer{}
			Setup(Config{Level: tt.level, Output: buf})

			logger := NewLogger("idp-client")
			logger.Debug().Msg("Executing request")
			logger.Info().Msg("Fetching")
			logger.Warn().Msg("Rate limit reached")
			logger.Error().Msg("Run aborted")

			output := buf.String()
			for _, msg := range tt.visible {
				if !strings.Contains(output, msg) {
					t.Errorf("expected %q at level %s", msg, tt.level)
				}
			}
			for _, msg := range tt.hidden {
				if strings.Contains(output, msg) {
					t.Errorf("did not expect %q at level %s", msg, tt.level)
				}
			}
		})
	}
}

func TestNewLogger_JSONFields(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("pagination")
	logger.Info().Str("url", "https://example.okta.com/api/v1/users").Msg("Fetching")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not a JSON line: %v (%q)", err, buf.String())
	}
	if entry["component"] != "pagination" {
		t.Errorf("component = %v, want pagination", entry["component"])
	}
	if entry["url"] != "https://example.okta.com/api/v1/users" {
		t.Errorf("url = %v", entry["url"])
	}
	if entry["message"] != "Fetching" {
		t.Errorf("message = %v, want Fetching", entry["message"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a timestamp")
	}
}

func TestSetup_PrettyOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Pretty: true, Output: buf})

	logger := NewLogger("cli")
	logger.Info().Msg("console line")

	output := buf.String()
	if !strings.Contains(output, "console line") {
		t.Errorf("expected console output to contain message, got %q", output)
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("expected non-JSON console output, got %q", output)
	}
}

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		expectedLevel LogLevel
		expectPretty  bool
	}{
		{
			name:          "defaults",
			env:           map[string]string{},
			expectedLevel: LevelInfo,
			expectPretty:  true,
		},
		{
			name:          "json debug",
			env:           map[string]string{"LOG_LEVEL": "DEBUG", "LOG_FORMAT": "json"},
			expectedLevel: LevelDebug,
			expectPretty:  false,
		},
		{
			name:          "unknown format keeps console",
			env:           map[string]string{"LOG_FORMAT": "xml"},
			expectedLevel: LevelInfo,
			expectPretty:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ConfigFromEnv(func(key string) string { return tt.env[key] })
			if cfg.Level != tt.expectedLevel {
				t.Errorf("Level = %q, want %q", cfg.Level, tt.expectedLevel)
			}
			if cfg.Pretty != tt.expectPretty {
				t.Errorf("Pretty = %v, want %v", cfg.Pretty, tt.expectPretty)
			}
		})
	}
}
