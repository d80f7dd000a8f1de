// Package logging builds the slog loggers used across buildml.
//
// Logs go to stderr so that command output on stdout stays machine-readable.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// levelSilent is above every standard level.
const levelSilent = slog.Level(100)

// NewLogger creates a logger writing to w at level. format is "json" for
// slog's JSON handler; anything else selects the text handler.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewDiscardLogger creates a logger that drops everything.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: levelSilent}))
}

// LevelFromString parses a configured level name. Unknown names select info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "off", "none", "silent":
		return levelSilent
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity maps repeated -v flags to a level, falling back to
// configured when no flag was given.
func LevelFromVerbosity(verbosity int, configured slog.Level) slog.Level {
	switch {
	case verbosity <= 0:
		return configured
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
