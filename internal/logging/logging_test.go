package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	logger.Debug("hidden")
	logger.Info("reminder fired", slog.Int64("reminder_id", 7))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "reminder fired", entry["msg"])
	assert.EqualValues(t, 7, entry["reminder_id"])
}
