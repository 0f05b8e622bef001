package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/shopper-web/internal/contact"
	"finitefield.org/shopper-web/internal/i18n"
	mw "finitefield.org/shopper-web/internal/middleware"
	"finitefield.org/shopper-web/internal/platform/httpx"
	"finitefield.org/shopper-web/internal/platform/observability"
)

const maxContactBody = 64 << 10

// ContactSubmitter accepts contact submissions.
type ContactSubmitter interface {
	Submit(ctx context.Context, sub contact.Submission) (contact.Receipt, error)
}

// ContactHandlers serves the contact form endpoint.
type ContactHandlers struct {
	service ContactSubmitter
}

// NewContactHandlers wires the contact endpoint.
func NewContactHandlers(service ContactSubmitter) *ContactHandlers {
	return &ContactHandlers{service: service}
}

type contactPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Company string `json:"company"`
	Lang    string `json:"lang"`
}

// Submit handles POST /api/contact and /{lang}/contact. Form posts from a
// browser are redirected to the success page; scripted posts get JSON.
func (h *ContactHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)

	payload, err := decodeContact(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("validation"))
		return
	}

	lang, ok := i18n.Normalize(payload.Lang)
	if !ok {
		lang, ok = i18n.Normalize(chi.URLParam(r, mw.LangParam))
	}
	if !ok {
		lang = i18n.Default
	}

	receipt, err := h.service.Submit(ctx, contact.Submission{
		Name:    payload.Name,
		Email:   payload.Email,
		Message: payload.Message,
		Company: payload.Company,
		Lang:    lang,
		IP:      mw.ClientIP(r),
	})
	if err != nil {
		writeContactError(ctx, w, err)
		return
	}

	if mw.WantsHTML(r) {
		http.Redirect(w, r, "/"+receipt.Lang+"/contact/success/", http.StatusSeeOther)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": receipt.ID})
}

func decodeContact(r *http.Request) (contactPayload, error) {
	var p contactPayload
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		err := json.NewDecoder(r.Body).Decode(&p)
		return p, err
	}
	if err := r.ParseMultipartForm(maxContactBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return p, err
	}
	p.Name = r.PostFormValue("name")
	p.Email = r.PostFormValue("email")
	p.Message = r.PostFormValue("message")
	p.Company = r.PostFormValue("company")
	p.Lang = r.PostFormValue("lang")
	return p, nil
}

func writeContactError(ctx context.Context, w http.ResponseWriter, err error) {
	outcome := contact.Outcome(err)
	switch outcome {
	case "rate_limited":
		var retry time.Duration
		var rlErr *contact.RateLimitError
		if errors.As(err, &rlErr) {
			retry = rlErr.RetryAfter
		}
		httpx.WriteError(ctx, w, httpx.TooManyRequests(outcome, retry))
	case "validation":
		var vErr *contact.ValidationError
		errors.As(err, &vErr)
		httpx.WriteError(ctx, w, httpx.BadRequest(outcome).WithDetails(map[string]any{"fields": vErr.Public()}))
	case "email_send_failed":
		httpx.WriteError(ctx, w, httpx.BadRequest(outcome))
	default:
		observability.FromContext(ctx).Error("contact submission failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.Internal("internal_error"))
	}
}
