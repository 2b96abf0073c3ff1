package obs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "info", "json")

	l.Debug("hidden")
	l.Info("position updated", "entity_id", "u1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "position updated", line["msg"])
	assert.Equal(t, "u1", line["entity_id"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "debug", "text")

	l.Debug("snapshot served", "count", 3)

	assert.Contains(t, buf.String(), "msg=\"snapshot served\"")
	assert.Contains(t, buf.String(), "count=3")
}
