package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finitefield.org/shopper-web/internal/contact"
	"finitefield.org/shopper-web/internal/i18n"
)

type stubSubmitter struct {
	mu   sync.Mutex
	got  []contact.Submission
	err  error
	id   string
	lang string
}

func (s *stubSubmitter) Submit(_ context.Context, sub contact.Submission) (contact.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, sub)
	if s.err != nil {
		return contact.Receipt{}, s.err
	}
	return contact.Receipt{ID: s.id, Lang: string(sub.Lang)}, nil
}

func validForm(lang string) url.Values {
	return url.Values{
		"name":    {"Ana Pérez"},
		"email":   {"ana@example.com"},
		"message": {"I need help with a wedding outfit."},
		"company": {""},
		"lang":    {lang},
	}
}

func postForm(h http.Handler, target string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestContactSubmitJSON(t *testing.T) {
	stub := &stubSubmitter{id: "01HZX3T5J6K7M8N9P0Q1R2S3T4"}
	h := NewRouter(WithContact(NewContactHandlers(stub)))

	rec := postForm(h, "/api/contact", validForm("fr"), map[string]string{
		"X-Requested-With": "fetch",
		"Accept":           "text/html, application/json",
		"X-Forwarded-For":  "203.0.113.9, 10.0.0.1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, stub.id, body["id"])

	require.Len(t, stub.got, 1)
	assert.Equal(t, i18n.FR, stub.got[0].Lang)
	assert.Equal(t, "203.0.113.9", stub.got[0].IP)
	assert.Equal(t, "Ana Pérez", stub.got[0].Name)
}

func TestContactSubmitJSONBody(t *testing.T) {
	stub := &stubSubmitter{id: "id-1"}
	h := NewRouter(WithContact(NewContactHandlers(stub)))

	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{"name":"Ana","email":"ana@example.com","message":"Hello there, friends","lang":"es"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, i18n.ES, stub.got[0].Lang)
}

func TestContactSubmitFormRedirects(t *testing.T) {
	stub := &stubSubmitter{id: "id-1"}
	h := NewRouter(WithContact(NewContactHandlers(stub)))

	form := validForm("")
	form.Del("lang")
	rec := postForm(h, "/es/contact/", form, map[string]string{"Accept": "text/html,application/xhtml+xml"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/es/contact/success/", rec.Header().Get("Location"))
	assert.Equal(t, i18n.ES, stub.got[0].Lang, "path locale is used when the form omits lang")

	rec = postForm(h, "/api/contact", validForm("de"), map[string]string{"Accept": "text/html"})
	assert.Equal(t, "/en/contact/success/", rec.Header().Get("Location"))
}

func TestContactSubmitErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"rate limited", contact.ErrRateLimited, http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "rate_limited"},
		{"delivery", fmt.Errorf("%w: upstream 500", contact.ErrDelivery), http.StatusBadRequest, "BAD_REQUEST", "email_send_failed"},
		{"not configured", contact.ErrNotConfigured, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal_error"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewRouter(WithContact(NewContactHandlers(&stubSubmitter{err: tc.err})))
			rec := postForm(h, "/api/contact", validForm("en"), map[string]string{"Accept": "text/html"})
			require.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tc.code, body["error"])
			assert.Equal(t, tc.message, body["message"])
			assert.NotContains(t, rec.Body.String(), "upstream")
		})
	}
}

type recordingMailer struct {
	mu    sync.Mutex
	sent  []contact.Email
	fails bool
}

func (m *recordingMailer) Send(_ context.Context, e contact.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails {
		return errors.New("provider down")
	}
	m.sent = append(m.sent, e)
	return nil
}

func TestContactEndToEndRateLimit(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	mailer := &recordingMailer{}
	svc := contact.NewService(
		contact.NewLimiter(contact.NewMemoryStore(clock), contact.DefaultRateMax, contact.DefaultRateWindow, clock),
		contact.WithMailer(mailer, contact.Recipients{From: "site@closet.example", To: []string{"owner@closet.example"}}),
		contact.WithClock(clock),
	)
	h := NewRouter(WithContact(NewContactHandlers(svc)))
	headers := map[string]string{"X-Requested-With": "fetch", "X-Forwarded-For": "198.51.100.20"}

	for i := 0; i < 5; i++ {
		rec := postForm(h, "/api/contact", validForm("en"), headers)
		require.Equal(t, http.StatusOK, rec.Code, "submission %d", i+1)
	}
	rec := postForm(h, "/api/contact", validForm("en"), headers)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "600", rec.Header().Get("Retry-After"))
	assert.Len(t, mailer.sent, 5)

	other := postForm(h, "/api/contact", validForm("en"), map[string]string{"X-Requested-With": "fetch", "X-Forwarded-For": "198.51.100.21"})
	assert.Equal(t, http.StatusOK, other.Code)

	now = now.Add(contact.DefaultRateWindow + time.Second)
	rec = postForm(h, "/api/contact", validForm("en"), headers)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContactValidationDetails(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	svc := contact.NewService(
		contact.NewLimiter(contact.NewMemoryStore(clock), contact.DefaultRateMax, contact.DefaultRateWindow, clock),
		contact.WithMailer(&recordingMailer{}, contact.Recipients{From: "a@closet.example", To: []string{"b@closet.example"}}),
	)
	h := NewRouter(WithContact(NewContactHandlers(svc)))

	form := url.Values{"name": {"A"}, "email": {"nope"}, "message": {"short"}, "company": {"ACME"}}
	rec := postForm(h, "/api/contact", form, map[string]string{"X-Requested-With": "fetch"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "validation", body["message"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok, "fields missing in %v", body)
	assert.Equal(t, map[string]any{
		"name":    "name_length",
		"email":   "email_invalid",
		"message": "message_length",
	}, fields)

	failing := contact.NewService(
		contact.NewLimiter(contact.NewMemoryStore(clock), contact.DefaultRateMax, contact.DefaultRateWindow, clock),
		contact.WithMailer(&recordingMailer{fails: true}, contact.Recipients{From: "a@closet.example", To: []string{"b@closet.example"}}),
	)
	rec = postForm(NewRouter(WithContact(NewContactHandlers(failing))), "/api/contact", validForm("en"), map[string]string{"X-Requested-With": "fetch"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email_send_failed", decodeBody(t, rec)["message"])
}
