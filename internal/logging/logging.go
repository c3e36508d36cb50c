// Package logging builds the zap loggers used by the command line tools.
package logging

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

var errFormat = errors.New("logging: unknown format")

// Option adjusts the zap configuration before the logger is built.
type Option func(*zap.Config) error

// WithLevel sets the minimum level. Accepted names are the zap level
// names: debug, info, warn, error, dpanic, panic and fatal.
func WithLevel(level string) Option {
	return func(cfg *zap.Config) error {
		lvl, err := ParseLevel(level)
		if err != nil {
			return err
		}

		cfg.Level = zap.NewAtomicLevelAt(lvl)

		return nil
	}
}

// WithFormat selects the JSON or console encoder.
func WithFormat(format string) Option {
	return func(cfg *zap.Config) error {
		switch strings.ToLower(format) {
		case "", FormatJSON:
			cfg.Encoding = FormatJSON
			cfg.EncoderConfig = zap.NewProductionEncoderConfig()
		case FormatConsole:
			cfg.Encoding = FormatConsole
			cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		default:
			return fmt.Errorf("%w: %q", errFormat, format)
		}

		return nil
	}
}

// WithFields attaches fields to every entry. Empty keys are ignored.
func WithFields(fields map[string]any) Option {
	return func(cfg *zap.Config) error {
		if cfg.InitialFields == nil {
			cfg.InitialFields = map[string]any{}
		}

		for k, v := range fields {
			if k == "" {
				continue
			}

			cfg.InitialFields[k] = v
		}

		return nil
	}
}

// WithOutput replaces the output sinks. Paths follow zap: "stderr",
// "stdout" or a file name.
func WithOutput(paths ...string) Option {
	return func(cfg *zap.Config) error {
		cfg.OutputPaths = paths
		return nil
	}
}

// New builds a production logger writing to stderr, so stdout stays free
// for result tables.
func New(opts ...Option) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Sampling = nil

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return cfg.Build()
}

// ParseLevel converts a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logging: %w", err)
	}

	return lvl, nil
}
