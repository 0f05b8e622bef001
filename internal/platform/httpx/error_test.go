package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	err := NewError("BAD_REQUEST", "validation\nfailed", http.StatusBadRequest).
		WithDetails(map[string]any{"fields": map[string]string{"email": "email_invalid"}})

	WriteError(context.Background(), rec, err)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "BAD_REQUEST", payload["error"])
	assert.Equal(t, "validation failed", payload["message"])
	assert.EqualValues(t, 400, payload["status"])
	assert.Contains(t, payload, "fields")
	assert.NotContains(t, payload, "request_id")
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	err := NewError("INTERNAL_SERVER_ERROR", "boom", 0)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "INTERNAL_SERVER_ERROR: boom", err.Error())
}

func TestWriteErrorDetailsCannotOverrideEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, BadRequest("validation").WithDetails(map[string]any{"error": "spoofed", "fields": map[string]string{}}))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, CodeBadRequest, payload["error"])
	assert.Contains(t, payload, "fields")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestTooManyRequestsSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, TooManyRequests("rate_limited", 90500*time.Millisecond))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "91", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	WriteError(context.Background(), rec, Internal("internal_error"))
	assert.Empty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteErrorRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	rec := httptest.NewRecorder()
	WriteError(ctx, rec, NotFound("no route"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "req-1", payload["request_id"])
	assert.Equal(t, CodeNotFound, payload["error"])
}
