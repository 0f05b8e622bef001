// Package oauth implements the GitHub authorization code handshake used by the
// content editor. The access token is handed to the opener window and never
// stored.
package oauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"finitefield.org/shopper-web/internal/platform/config"
)

const (
	// StateCookie holds the anti-forgery state between start and callback.
	StateCookie     = "oauth_state"
	stateBytes      = 16
	stateMaxAge     = 10 * time.Minute
	defaultScope    = "repo,user"
	provider        = "github"
	exchangeTimeout = 10 * time.Second
)

var (
	ErrMissingCode   = errors.New("oauth: missing code")
	ErrStateMismatch = errors.New("oauth: state mismatch")
	ErrNotConfigured = errors.New("oauth: client not configured")
)

// Client wraps the OAuth2 configuration of the GitHub app.
type Client struct {
	cfg  *oauth2.Config
	http *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithEndpoint overrides the GitHub endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(c *Client) { c.cfg.Endpoint = endpoint }
}

// WithHTTPClient sets the client used for the token exchange.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// New builds a client from the configured GitHub app.
func New(cfg config.OAuthConfig, opts ...Option) *Client {
	scope := strings.TrimSpace(cfg.Scope)
	if scope == "" {
		scope = defaultScope
	}
	c := &Client{
		cfg: &oauth2.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: cfg.ClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  strings.TrimSpace(cfg.RedirectURL),
			Scopes:       []string{scope},
		},
		http: &http.Client{Timeout: exchangeTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Configured reports whether both client credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

// AuthURL returns the authorize URL carrying state.
func (c *Client) AuthURL(state string) string {
	return c.cfg.AuthCodeURL(state)
}

// Exchange trades code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrMissingCode
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("oauth: exchange code: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("oauth: empty access token")
	}
	return tok.AccessToken, nil
}

// NewState returns 16 random bytes hex encoded.
func NewState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("oauth: generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SetStateCookie stores state for the callback. Secure is set when the request
// arrived over TLS or through an https proxy.
func SetStateCookie(w http.ResponseWriter, r *http.Request, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearStateCookie expires the state cookie.
func ClearStateCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// VerifyCallback checks the code and the state echoed by GitHub against the
// cookie and returns the code.
func VerifyCallback(r *http.Request) (string, error) {
	q := r.URL.Query()
	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		return "", ErrMissingCode
	}
	cookie, err := r.Cookie(StateCookie)
	if err != nil || cookie.Value == "" {
		return "", ErrStateMismatch
	}
	state := q.Get("state")
	if subtle.ConstantTimeCompare([]byte(state), []byte(cookie.Value)) != 1 {
		return "", ErrStateMismatch
	}
	return code, nil
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

var successPage = template.Must(template.New("oauth").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Authorizing…</title></head>
<body>
<script>
  const receiveMessage = (message) => {
    window.opener.postMessage({{.Message}}, message.origin);
    window.removeEventListener("message", receiveMessage, false);
    window.close();
  };
  window.addEventListener("message", receiveMessage, false);
  window.opener.postMessage({{.Handshake}}, "*");
</script>
</body></html>
`))

// SuccessMessage is the message posted to the opener for token.
func SuccessMessage(token string) (string, error) {
	payload, err := json.Marshal(struct {
		Token    string `json:"token"`
		Provider string `json:"provider"`
	}{Token: token, Provider: provider})
	if err != nil {
		return "", err
	}
	return "authorization:" + provider + ":success:" + string(payload), nil
}

// WriteSuccess renders the page that hands token to the opener window.
func WriteSuccess(w http.ResponseWriter, token string) error {
	msg, err := SuccessMessage(token)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	return successPage.Execute(w, struct {
		Message   string
		Handshake string
	}{Message: msg, Handshake: "authorizing:" + provider})
}
