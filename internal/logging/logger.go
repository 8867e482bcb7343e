package logging

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoding
type Format string

const (
	// FormatJSON is for production deployments
	FormatJSON Format = "json"

	// FormatConsole is for development
	FormatConsole Format = "console"
)

// Config holds the configuration for the logger
type Config struct {
	// Level is the minimum enabled level (debug, info, warn, error)
	Level string `mapstructure:"level" json:"level"`

	// Verbosity enables logr V-levels up to this value. V(1) is debug;
	// the engine logs individual cluster calls at V(2).
	Verbosity int `mapstructure:"verbosity" json:"verbosity"`

	// Format is the log encoding, json or console
	Format Format `mapstructure:"format" json:"format"`

	// OutputPaths is a list of URLs or file paths to write logging output to
	OutputPaths []string `mapstructure:"output_paths" json:"output_paths"`

	// DisableCaller disables automatic caller information
	DisableCaller bool `mapstructure:"disable_caller" json:"disable_caller"`

	// DisableStacktrace disables automatic stacktrace capturing
	DisableStacktrace bool `mapstructure:"disable_stacktrace" json:"disable_stacktrace"`
}

// DefaultConfig returns the configuration used when none is given
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      FormatJSON,
		OutputPaths: []string{"stdout"},
	}
}

// level returns the zap level for cfg. logr V(n) maps to zap level -n, so
// a verbosity above one goes below zap's debug level.
func (c Config) level() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	if c.Verbosity > 0 && zapcore.Level(-c.Verbosity) < level {
		level = zapcore.Level(-c.Verbosity)
	}
	return level, nil
}

// Validate checks the configuration
func (c Config) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.Format {
	case FormatJSON, FormatConsole:
	default:
		return fmt.Errorf("invalid log format %q", c.Format)
	}
	return nil
}

// NewLogger creates a zap logger from cfg
func NewLogger(cfg Config) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := cfg.level()

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Format == FormatConsole {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Format == FormatConsole,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: cfg.DisableStacktrace,
		Encoding:          string(cfg.Format),
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// NewLogr bridges a zap logger into the logr interface used by every
// library package
func NewLogr(z *zap.Logger) logr.Logger {
	return zapr.NewLogger(z)
}

// Setup builds the zap logger for cfg and its logr view. Callers should
// Sync the zap logger before exiting.
func Setup(cfg Config) (logr.Logger, *zap.Logger, error) {
	z, err := NewLogger(cfg)
	if err != nil {
		return logr.Discard(), nil, err
	}
	return NewLogr(z), z, nil
}
