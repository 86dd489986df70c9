package slogobs

import (
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	// FormatText is slog's key=value text output.
	FormatText Format = "text"
	// FormatJSON emits one JSON object per record.
	FormatJSON Format = "json"
)

const (
	envLogFormat = "BUPPLE_ENGINE_LOG_FORMAT"
	envLogLevel  = "BUPPLE_ENGINE_LOG_LEVEL"
)

// ParseFormat maps a format name to a Format, defaulting to FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// FormatFromEnv reads BUPPLE_ENGINE_LOG_FORMAT.
func FormatFromEnv() Format {
	return ParseFormat(os.Getenv(envLogFormat))
}

// LevelFromEnv reads BUPPLE_ENGINE_LOG_LEVEL.
func LevelFromEnv() slog.Level {
	return ParseLevel(os.Getenv(envLogLevel))
}

func (f Format) String() string {
	return string(f)
}
