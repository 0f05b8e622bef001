package contact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

const defaultMailerTimeout = 10 * time.Second

// Email is an outgoing notification.
type Email struct {
	From    string
	To      []string
	BCC     []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// ResendMailer sends through the Resend API client.
type ResendMailer struct {
	apiKey string
	client *resend.Client
}

type resendSettings struct {
	baseURL string
	http    *http.Client
}

// ResendOption customises a ResendMailer.
type ResendOption func(*resendSettings)

// WithResendBaseURL points the client at another API root.
func WithResendBaseURL(base string) ResendOption {
	return func(s *resendSettings) {
		s.baseURL = strings.TrimSpace(base)
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ResendOption {
	return func(s *resendSettings) {
		if client != nil {
			s.http = client
		}
	}
}

// NewResendMailer returns a mailer authenticated with apiKey.
func NewResendMailer(apiKey string, opts ...ResendOption) *ResendMailer {
	settings := resendSettings{http: &http.Client{Timeout: defaultMailerTimeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	apiKey = strings.TrimSpace(apiKey)
	client := resend.NewCustomClient(settings.http, apiKey)
	if settings.baseURL != "" {
		if u, err := url.Parse(strings.TrimSuffix(settings.baseURL, "/") + "/"); err == nil {
			client.BaseURL = u
		}
	}
	return &ResendMailer{apiKey: apiKey, client: client}
}

func (m *ResendMailer) Send(ctx context.Context, email Email) error {
	if m.apiKey == "" {
		return errors.New("contact: resend api key missing")
	}
	req := &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Bcc:     email.BCC,
		ReplyTo: email.ReplyTo,
		Subject: email.Subject,
		Text:    email.Text,
		Html:    email.HTML,
	}
	if _, err := m.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("contact: resend send: %w", err)
	}
	return nil
}

// Recipients addresses the notification email.
type Recipients struct {
	From string
	To   []string
	BCC  []string
}

// SplitAddresses splits a comma separated list and drops blanks.
func SplitAddresses(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var emailHTML = template.Must(template.New("contact").Parse(`<div>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  <p><strong>Language:</strong> {{.Lang}}</p>
  {{- if .IP}}
  <p><strong>IP:</strong> {{.IP}}</p>
  {{- end}}
  <hr />
  <p><strong>Message:</strong></p>
  <pre style="white-space:pre-wrap;word-wrap:break-word;font-family:ui-monospace,Menlo,monospace;">{{.Message}}</pre>
</div>
`))

// ComposeEmail builds the owner notification for s.
func ComposeEmail(s Submission, to Recipients) (Email, error) {
	var html bytes.Buffer
	if err := emailHTML.Execute(&html, s); err != nil {
		return Email{}, err
	}
	text := fmt.Sprintf("New contact form submission\n\nName: %s\nEmail: %s\nLanguage: %s\nIP: %s\n\nMessage:\n%s",
		s.Name, s.Email, s.Lang, s.IP, s.Message)
	return Email{
		From:    to.From,
		To:      to.To,
		BCC:     to.BCC,
		ReplyTo: s.Email,
		Subject: fmt.Sprintf("[Contact][%s] %s", s.Lang, s.Name),
		Text:    text,
		HTML:    html.String(),
	}, nil
}
