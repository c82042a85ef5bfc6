package logger

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		input  string
		want   slog.Leveler
		wantOk bool
	}{
		{"", nil, true},
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"Warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", nil, false},
	}
	for _, tt := range tests {
		got, ok := level(tt.input)
		assert.Equal(t, tt.wantOk, ok, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(b)), "\n")
}

func TestNewFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer := New(&Options{Level: "warn", File: path, Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")
	require.NoError(t, closer())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, "value", record["key"])
}

func TestNewFallbacks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	options := &Options{Level: "loud", File: path, Format: "xml"}
	logger, closer := New(options)
	t.Cleanup(func() { closer() })

	assert.Empty(t, options.Level)
	assert.Equal(t, "text", options.Format)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "could not parse logger format")
	assert.Contains(t, lines[1], "could not parse logger level")
}

func TestNewDiscard(t *testing.T) {
	logger, closer := New(&Options{File: os.DevNull})
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
	assert.NoError(t, closer())
}
