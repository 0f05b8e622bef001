package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"finitefield.org/shopper-web/internal/oauth"
	"finitefield.org/shopper-web/internal/platform/observability"
)

const oauthFailurePage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Authentication failed</title></head>
<body><p>Authentication failed. Please close this window and try again.</p></body></html>
`

// OAuthHandlers runs the CMS editor's GitHub sign-in.
type OAuthHandlers struct {
	client *oauth.Client
}

// NewOAuthHandlers wires the OAuth endpoints.
func NewOAuthHandlers(client *oauth.Client) *OAuthHandlers {
	return &OAuthHandlers{client: client}
}

// Start redirects to GitHub with a fresh state cookie.
func (h *OAuthHandlers) Start(w http.ResponseWriter, r *http.Request) {
	if !h.client.Configured() {
		http.Error(w, "OAuth is not configured", http.StatusInternalServerError)
		return
	}
	state, err := oauth.NewState()
	if err != nil {
		observability.FromContext(r.Context()).Error("oauth state", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	oauth.SetStateCookie(w, r, state)
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, h.client.AuthURL(state), http.StatusFound)
}

// Callback verifies state, exchanges the code and hands the token to the
// editor window. The state cookie is single use.
func (h *OAuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	code, err := oauth.VerifyCallback(r)
	oauth.ClearStateCookie(w, r)
	switch {
	case errors.Is(err, oauth.ErrMissingCode):
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}

	token, err := h.client.Exchange(r.Context(), code)
	if err != nil {
		logger.Warn("oauth exchange failed", zap.Error(err))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(oauthFailurePage))
		return
	}
	if err := oauth.WriteSuccess(w, token); err != nil {
		logger.Error("oauth success page", zap.Error(err))
	}
}
