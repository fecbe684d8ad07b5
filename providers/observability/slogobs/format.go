package slogobs

import (
	"log/slog"
	"os"
	"strings"
)

// Format selects how the Handler renders records.
type Format string

const (
	// FormatCompact writes one line per record with attributes as a JSON
	// object: 2026-01-02 15:04:05  INFO tunnel run started → {"tunnel.run_id":"..."}
	FormatCompact Format = "compact"

	// FormatPretty writes the message line followed by one indented
	// "key: value" line per attribute, sorted by key.
	FormatPretty Format = "pretty"

	// FormatJSON writes one JSON object per record.
	FormatJSON Format = "json"
)

// Environment variables read when no explicit option is given. The generic
// names are consulted only when the prefixed ones are unset.
const (
	EnvLogFormat        = "JSONTUNNEL_LOG_FORMAT"
	EnvLogLevel         = "JSONTUNNEL_LOG_LEVEL"
	envGenericLogFormat = "LOG_FORMAT"
	envGenericLogLevel  = "LOG_LEVEL"
)

// LevelTrace sits below slog.LevelDebug and carries full prompts and outputs.
const LevelTrace = slog.LevelDebug - 4

// ParseFormat maps a case-insensitive name to a Format, defaulting to
// FormatCompact.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPretty:
		return FormatPretty
	case FormatJSON:
		return FormatJSON
	default:
		return FormatCompact
	}
}

// FormatFromEnv reads JSONTUNNEL_LOG_FORMAT, then LOG_FORMAT.
func FormatFromEnv() Format {
	return ParseFormat(firstEnv(EnvLogFormat, envGenericLogFormat))
}

// ParseLogLevel maps a case-insensitive level name to a slog.Level,
// defaulting to INFO. "trace" maps to LevelTrace.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromEnv reads JSONTUNNEL_LOG_LEVEL, then LOG_LEVEL.
func LevelFromEnv() slog.Level {
	return ParseLogLevel(firstEnv(EnvLogLevel, envGenericLogLevel))
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// String returns the format name.
func (f Format) String() string {
	return string(f)
}
