package slogobs

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Option configures an Observer.
type Option func(*config)

type config struct {
	format Format
	level  slog.Level
	output io.Writer
	colors bool
	// logger, when set, bypasses the custom handler entirely.
	logger *slog.Logger
	// closer is closed by Observer.Close; set by WithRotatingFile.
	closer io.Closer
}

// RotationConfig controls log file rotation.
type RotationConfig struct {
	// MaxSizeMB is the size at which the file is rotated. Default 100.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept. Default 3.
	MaxBackups int
	// MaxAgeDays is the age after which rotated files are removed. Default 28.
	MaxAgeDays int
	Compress   bool
}

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithLevel sets the minimum level written.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput sets the writer records go to. Default os.Stderr, so that
// command output on stdout stays machine-readable.
func WithOutput(output io.Writer) Option {
	return func(c *config) {
		c.output = output
	}
}

// WithColors forces ANSI colors on or off for the compact and pretty formats.
func WithColors(enabled bool) Option {
	return func(c *config) {
		c.colors = enabled
	}
}

// WithLogger routes everything through an existing logger. It takes
// precedence over the format, level, output and colors options.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithRotatingFile writes records to path, rotating it according to rotation.
// Zero fields of rotation take their documented defaults. The file is closed
// by Observer.Close.
func WithRotatingFile(path string, rotation RotationConfig) Option {
	return func(c *config) {
		if rotation.MaxSizeMB == 0 {
			rotation.MaxSizeMB = 100
		}
		if rotation.MaxBackups == 0 {
			rotation.MaxBackups = 3
		}
		if rotation.MaxAgeDays == 0 {
			rotation.MaxAgeDays = 28
		}
		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rotation.MaxSizeMB,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAgeDays,
			Compress:   rotation.Compress,
			LocalTime:  true,
		}
		c.output = file
		c.closer = file
	}
}

func defaultConfig() *config {
	return &config{
		format: FormatFromEnv(),
		level:  LevelFromEnv(),
		output: os.Stderr,
	}
}

func applyOptions(opts ...Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
