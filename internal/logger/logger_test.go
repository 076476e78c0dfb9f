package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestNew(t *testing.T) {
	cfg := Config{
		Level:  "info",
		Format: "text",
	}
	logger := New(cfg)
	if logger == nil {
		t.Error("Expected logger to not be nil")
	}

	cfg.Format = "json"
	logger = New(cfg)
	if logger == nil {
		t.Error("Expected logger to not be nil")
	}

	// Invalid level falls back to info
	cfg.Level = "invalid"
	logger = New(cfg)
	if logger == nil {
		t.Error("Expected logger to not be nil")
	}
}

func TestWithComponent(t *testing.T) {
	logger := Default()
	componentLogger := logger.WithComponent("test-component")

	if componentLogger == nil {
		t.Error("Expected component logger to not be nil")
	}

	componentLogger2 := componentLogger.WithComponent("nested-component")
	if componentLogger2 == nil {
		t.Error("Expected nested component logger to not be nil")
	}
}

func TestWithJob(t *testing.T) {
	logger := Default()
	jobLogger := logger.WithJob("job-123", "yt-hd")

	if jobLogger == nil {
		t.Error("Expected job logger to not be nil")
	}
}

func TestWithSource(t *testing.T) {
	logger := Default()
	srcLogger := logger.WithSource("yt", "dQw4w9WgXcQ")

	if srcLogger == nil {
		t.Error("Expected source logger to not be nil")
	}
}

func TestLogLevels(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error"}

	for _, level := range levels {
		logger := New(Config{Level: level, Format: "text"})
		if logger == nil {
			t.Errorf("Expected logger to not be nil for level %s", level)
		}
		if !logger.Enabled(context.Background(), parseLevel(level)) {
			t.Errorf("Expected level %s to be enabled", level)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
