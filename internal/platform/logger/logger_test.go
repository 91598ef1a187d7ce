package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Config{Level: slog.LevelInfo, Component: "api", JSON: true})

	ctx := context.WithValue(context.Background(), chiMiddleware.RequestIDKey, "req-42")
	log.InfoContext(ctx, "hello", "user_id", 7)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "api", rec["component"])
	assert.Equal(t, "req-42", rec["request_id"])
	assert.EqualValues(t, 7, rec["user_id"])
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Config{Level: slog.LevelWarn})

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.NotContains(t, buf.String(), "request_id")
}
