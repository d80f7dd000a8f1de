package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, "text")

	logger.Debug("hidden")
	logger.Info("ingest started", "trace", "build.trace")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="ingest started"`)
	assert.Contains(t, out, "trace=build.trace")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug, "JSON")

	logger.Warn("unknown process", "process", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "unknown process", entry["msg"])
	assert.Equal(t, 7.0, entry["process"])
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"off", levelSilent},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromString(tt.in))
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, LevelFromVerbosity(0, slog.LevelWarn))
	assert.Equal(t, slog.LevelInfo, LevelFromVerbosity(1, slog.LevelWarn))
	assert.Equal(t, slog.LevelDebug, LevelFromVerbosity(2, slog.LevelWarn))
	assert.Equal(t, slog.LevelDebug, LevelFromVerbosity(5, slog.LevelError))
}
