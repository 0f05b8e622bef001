package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultEnvironment      = "local"
	defaultContentDir       = "content"
	defaultCollections      = "none"
	defaultOAuthScope       = "repo,user"
	defaultRateMax          = 5
	defaultRateWindow       = 10 * time.Minute
	defaultRateStore        = "memory"
	defaultSecretsFallback  = ".secrets.local"
	defaultRemoteCMSTimeout = 5 * time.Second
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Site      SiteConfig
	Content   ContentConfig
	Firestore FirestoreConfig
	OAuth     OAuthConfig
	Email     EmailConfig
	Contact   ContactConfig
	Secrets   SecretsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SiteConfig describes the public site.
type SiteConfig struct {
	URL            string
	Environment    string
	Dev            bool
	AssetsDir      string
	MeasurementID  string
	DefaultOGImage string
}

// ContentConfig selects the storage tiers used by the content resolver.
type ContentConfig struct {
	Dir                string
	Legacy             bool
	CollectionsBackend string
	CollectionsDir     string
	CMSBaseURL         string
	CMSTimeout         time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// OAuthConfig holds the CMS GitHub OAuth application.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	RedirectURL  string
}

// EmailConfig configures contact notifications.
type EmailConfig struct {
	ResendAPIKey string
	From         string
	To           string
	BCC          []string
}

// ContactConfig controls contact submission throttling and fan-out.
type ContactConfig struct {
	RateMax    int
	RateWindow time.Duration
	RateStore  string
	Topic      string
}

// SecretsConfig controls Secret Manager access.
type SecretsConfig struct {
	ProjectID    string
	FallbackFile string
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom secret resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the site configuration from defaults, .env overrides, environment
// variables and optional secret lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	environment := strings.ToLower(stringWithDefault(lookup, "SITE_ENV", defaultEnvironment))
	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "SITE_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:  durationWithDefault(lookup, "SITE_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SITE_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SITE_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Site: SiteConfig{
			URL:            strings.TrimRight(stringWithDefault(lookup, "SITE_URL", ""), "/"),
			Environment:    environment,
			Dev:            boolWithDefault(lookup, "SITE_DEV", environment == defaultEnvironment),
			AssetsDir:      stringWithDefault(lookup, "SITE_ASSETS_DIR", "public"),
			MeasurementID:  stringWithDefault(lookup, "SITE_GA_MEASUREMENT_ID", ""),
			DefaultOGImage: stringWithDefault(lookup, "SITE_OG_IMAGE", ""),
		},
		Content: ContentConfig{
			Dir:                stringWithDefault(lookup, "SITE_CONTENT_DIR", defaultContentDir),
			Legacy:             boolWithDefault(lookup, "SITE_CONTENT_LEGACY", true),
			CollectionsBackend: strings.ToLower(stringWithDefault(lookup, "SITE_COLLECTIONS_BACKEND", defaultCollections)),
			CollectionsDir:     stringWithDefault(lookup, "SITE_COLLECTIONS_DIR", ""),
			CMSBaseURL:         strings.TrimRight(stringWithDefault(lookup, "SITE_CMS_BASE_URL", ""), "/"),
			CMSTimeout:         durationWithDefault(lookup, "SITE_CMS_TIMEOUT", defaultRemoteCMSTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "SITE_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "SITE_FIRESTORE_EMULATOR_HOST", ""),
		},
		OAuth: OAuthConfig{
			ClientID:     stringWithDefault(lookup, "SITE_GITHUB_CLIENT_ID", ""),
			ClientSecret: stringWithDefault(lookup, "SITE_GITHUB_CLIENT_SECRET", ""),
			Scope:        stringWithDefault(lookup, "SITE_GITHUB_OAUTH_SCOPE", defaultOAuthScope),
			RedirectURL:  stringWithDefault(lookup, "SITE_GITHUB_REDIRECT_URL", ""),
		},
		Email: EmailConfig{
			ResendAPIKey: stringWithDefault(lookup, "SITE_RESEND_API_KEY", ""),
			From:         stringWithDefault(lookup, "SITE_EMAIL_FROM", ""),
			To:           stringWithDefault(lookup, "SITE_EMAIL_TO", ""),
			BCC:          csvWithDefault(lookup, "SITE_EMAIL_BCC"),
		},
		Contact: ContactConfig{
			RateMax:    intWithDefault(lookup, "SITE_CONTACT_RATE_MAX", defaultRateMax),
			RateWindow: durationWithDefault(lookup, "SITE_CONTACT_RATE_WINDOW", defaultRateWindow),
			RateStore:  strings.ToLower(stringWithDefault(lookup, "SITE_CONTACT_RATE_STORE", defaultRateStore)),
			Topic:      stringWithDefault(lookup, "SITE_CONTACT_TOPIC", ""),
		},
		Secrets: SecretsConfig{
			ProjectID:    stringWithDefault(lookup, "SITE_GCP_PROJECT_ID", ""),
			FallbackFile: stringWithDefault(lookup, "SITE_SECRETS_FALLBACK_FILE", defaultSecretsFallback),
		},
	}

	// Firestore and Secret Manager share the GCP project unless told otherwise.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Secrets.ProjectID
	}
	if cfg.Secrets.ProjectID == "" {
		cfg.Secrets.ProjectID = cfg.Firestore.ProjectID
	}

	secretFields := []*string{
		&cfg.OAuth.ClientSecret,
		&cfg.Email.ResendAPIKey,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OAuthEnabled reports whether the CMS OAuth routes can be served.
func (c Config) OAuthEnabled() bool {
	return c.OAuth.ClientID != "" && c.OAuth.ClientSecret != ""
}

// EmailEnabled reports whether contact notifications can be delivered.
func (c Config) EmailEnabled() bool {
	return c.Email.ResendAPIKey != "" && c.Email.From != "" && c.Email.To != ""
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Site.URL != "" {
		if u, err := url.Parse(cfg.Site.URL); err != nil || u.Scheme == "" || u.Host == "" {
			missing = append(missing, "Site.URL")
		}
	}
	if strings.TrimSpace(cfg.Content.Dir) == "" {
		missing = append(missing, "Content.Dir")
	}
	switch cfg.Content.CollectionsBackend {
	case "none":
	case "dir":
		if cfg.Content.CollectionsDir == "" {
			missing = append(missing, "Content.CollectionsDir")
		}
	case "http":
		if cfg.Content.CMSBaseURL == "" {
			missing = append(missing, "Content.CMSBaseURL")
		}
	case "firestore":
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
	default:
		missing = append(missing, "Content.CollectionsBackend")
	}
	if cfg.Contact.RateMax <= 0 {
		missing = append(missing, "Contact.RateMax")
	}
	if cfg.Contact.RateWindow <= 0 {
		missing = append(missing, "Contact.RateWindow")
	}
	switch cfg.Contact.RateStore {
	case "memory":
	case "firestore":
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
	default:
		missing = append(missing, "Contact.RateStore")
	}
	if cfg.Contact.Topic != "" && cfg.Secrets.ProjectID == "" {
		missing = append(missing, "Secrets.ProjectID")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
