package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spyagency/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestJSONOutputCarriesServiceAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.Logging{Level: "info", Format: "json", Service: "spyagency"}, &buf)

	ctx := WithRequestID(context.Background(), "req-1")
	From(ctx, l).Info("hello")
	l.Debug("filtered")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "spyagency", rec["service"])
	assert.Equal(t, "req-1", rec["request_id"])
}

func TestRequestIDMissing(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
}
