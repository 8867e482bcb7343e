package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatConsole} {
		t.Run(string(format), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Format = format

			logger, err := NewLogger(cfg)
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			logger.Info("test info message")
		})
	}
}

func TestNewLoggerInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if _, err := NewLogger(cfg); err == nil {
		t.Error("expected error for invalid level")
	}

	cfg = DefaultConfig()
	cfg.Format = "xml"
	if _, err := NewLogger(cfg); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestVerbosity(t *testing.T) {
	tests := []struct {
		level     string
		verbosity int
		want      zapcore.Level
	}{
		{"info", 0, zapcore.InfoLevel},
		{"debug", 0, zapcore.DebugLevel},
		{"info", 2, zapcore.Level(-2)},
		{"error", 0, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		cfg := Config{Level: tt.level, Verbosity: tt.verbosity, Format: FormatJSON}
		got, err := cfg.level()
		if err != nil {
			t.Fatalf("level() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("level(%s, %d) = %v, want %v", tt.level, tt.verbosity, got, tt.want)
		}
	}
}

func TestNewLogrBridge(t *testing.T) {
	core, logs := observer.New(zapcore.Level(-2))
	logger := NewLogr(zap.New(core))

	logger.Info("hello", "galaxy", "andromeda")
	logger.V(2).Info("cluster call")
	logger.V(3).Info("too verbose")
	logger.Error(errors.New("boom"), "failed")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ContextMap()["galaxy"] != "andromeda" {
		t.Errorf("fields = %v", entries[0].ContextMap())
	}
	if entries[2].Level != zapcore.ErrorLevel {
		t.Errorf("error entry level = %v", entries[2].Level)
	}
}
