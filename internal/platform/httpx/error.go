package httpx

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"finitefield.org/shopper-web/internal/platform/requestctx"
)

// Envelope codes used by the site's JSON endpoints.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

const (
	codeLimit    = 80
	messageLimit = 512
)

// Error is the JSON error envelope: {"error": code, "message": ..., "status": ...}
// plus any details merged at the top level.
type Error struct {
	Code       string
	Message    string
	Status     int
	Details    map[string]any
	RetryAfter time.Duration
}

// NewError builds an envelope. A zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: clean(code, codeLimit), Message: clean(message, messageLimit), Status: status}
}

// BadRequest is a 400 envelope.
func BadRequest(message string) Error {
	return NewError(CodeBadRequest, message, http.StatusBadRequest)
}

// NotFound is a 404 envelope.
func NotFound(message string) Error {
	return NewError(CodeNotFound, message, http.StatusNotFound)
}

// TooManyRequests is a 429 envelope; retryAfter becomes the Retry-After header.
func TooManyRequests(message string, retryAfter time.Duration) Error {
	e := NewError(CodeTooManyRequests, message, http.StatusTooManyRequests)
	e.RetryAfter = retryAfter
	return e
}

// Internal is a 500 envelope. Callers log the cause; it is never returned.
func Internal(message string) Error {
	return NewError(CodeInternal, message, http.StatusInternalServerError)
}

// WithDetails returns a copy carrying extra top-level fields.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	e.Details = merged
	return e
}

func (e Error) Error() string {
	return e.Code + ": " + e.Message
}

// WriteError renders e. The request and trace IDs from ctx are attached, and
// details never overwrite the envelope keys.
func WriteError(ctx context.Context, w http.ResponseWriter, e Error) {
	if e.Status == 0 {
		e.Status = http.StatusInternalServerError
	}
	payload := make(map[string]any, len(e.Details)+5)
	for k, v := range e.Details {
		payload[k] = v
	}
	payload["error"] = e.Code
	payload["message"] = e.Message
	payload["status"] = e.Status
	if id := clean(middleware.GetReqID(ctx), codeLimit); id != "" {
		payload["request_id"] = id
	}
	if id := clean(requestctx.TraceID(ctx), 64); id != "" {
		payload["trace_id"] = id
	}
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(e.RetryAfter.Seconds()))))
	}
	WriteJSON(w, e.Status, payload)
}

// WriteJSON writes payload with no-store caching.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// clean flattens newlines and truncates to limit bytes.
func clean(value string, limit int) string {
	value = strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(value))
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
