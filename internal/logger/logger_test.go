package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	loc := time.FixedZone("MSK", 3*60*60)

	log, err := NewWithWriter(&buf, Config{Level: "info", Location: loc})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("visible")
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "visible", entry["msg"])

	ts, ok := entry["ts"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	require.NoError(t, err)
	_, offset := parsed.Zone()
	assert.Equal(t, 3*60*60, offset)
}

func TestNewWithWriter_InvalidLevel(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, Config{Level: "debug"})
	require.NoError(t, err)

	assert.Equal(t, "", RequestIDFromContext(context.Background()))

	ctx := ContextWithRequestID(context.Background(), "rid-1")
	assert.Equal(t, "rid-1", RequestIDFromContext(ctx))

	FromContext(ctx, log).Info("scoped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rid-1", entry["request_id"])

	assert.Same(t, log, FromContext(context.Background(), log))
}
