package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if !cfg.Site.Dev {
		t.Errorf("expected local environment to default to dev mode")
	}
	if cfg.Content.Dir != "content" || !cfg.Content.Legacy {
		t.Errorf("unexpected content defaults: %+v", cfg.Content)
	}
	if cfg.Content.CollectionsBackend != "none" {
		t.Errorf("expected collections backend none, got %s", cfg.Content.CollectionsBackend)
	}
	if cfg.OAuth.Scope != "repo,user" {
		t.Errorf("unexpected oauth scope: %s", cfg.OAuth.Scope)
	}
	if cfg.Contact.RateMax != 5 || cfg.Contact.RateWindow != 10*time.Minute {
		t.Errorf("unexpected contact rate defaults: %+v", cfg.Contact)
	}
	if len(cfg.Email.BCC) != 0 {
		t.Errorf("expected no bcc, got %v", cfg.Email.BCC)
	}
	if cfg.OAuthEnabled() || cfg.EmailEnabled() {
		t.Errorf("expected optional integrations to be disabled")
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"PORT":                       "9000",
		"SITE_PORT":                  "9090",
		"SITE_URL":                   "https://shopper.example.com/",
		"SITE_ENV":                   "prod",
		"SITE_CONTENT_LEGACY":        "false",
		"SITE_COLLECTIONS_BACKEND":   "dir",
		"SITE_COLLECTIONS_DIR":       "collections",
		"SITE_GITHUB_CLIENT_ID":      "gh-client",
		"SITE_GITHUB_CLIENT_SECRET":  "sm://github/secret",
		"SITE_RESEND_API_KEY":        "secret://resend/key",
		"SITE_EMAIL_FROM":            "site@example.com",
		"SITE_EMAIL_TO":              "owner@example.com",
		"SITE_EMAIL_BCC":             "a@example.com, b@example.com",
		"SITE_CONTACT_RATE_MAX":      "3",
		"SITE_CONTACT_RATE_WINDOW":   "1m",
		"SITE_GCP_PROJECT_ID":        "shopper-prod",
	}
	secrets := map[string]string{
		"secret://github/secret": "gh-secret",
		"secret://resend/key":    "re_123",
	}
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if v, ok := secrets[ref]; ok {
			return v, nil
		}
		return "", errSecretResolverNotConfigured
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected SITE_PORT to win, got %s", cfg.Server.Port)
	}
	if cfg.Site.URL != "https://shopper.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Site.URL)
	}
	if cfg.Site.Dev {
		t.Errorf("expected prod to disable dev mode")
	}
	if cfg.Content.Legacy {
		t.Errorf("expected legacy tier disabled")
	}
	if cfg.OAuth.ClientSecret != "gh-secret" || cfg.Email.ResendAPIKey != "re_123" {
		t.Errorf("secrets not resolved: %+v %+v", cfg.OAuth, cfg.Email)
	}
	if len(cfg.Email.BCC) != 2 || cfg.Email.BCC[1] != "b@example.com" {
		t.Errorf("unexpected bcc: %v", cfg.Email.BCC)
	}
	if cfg.Firestore.ProjectID != "shopper-prod" {
		t.Errorf("expected firestore project to default to gcp project, got %s", cfg.Firestore.ProjectID)
	}
	if !cfg.OAuthEnabled() || !cfg.EmailEnabled() {
		t.Errorf("expected integrations enabled")
	}
}

func TestLoadSecretFailure(t *testing.T) {
	env := map[string]string{"SITE_RESEND_API_KEY": "secret://missing"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected ref %s", secretErr.Ref)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"SITE_COLLECTIONS_BACKEND": "http",
		"SITE_CONTACT_RATE_STORE":  "redis",
		"SITE_URL":                 "not a url",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"Site.URL": true, "Content.CMSBaseURL": true, "Contact.RateStore": true}
	for _, f := range vErr.Fields() {
		delete(want, f)
	}
	if len(want) != 0 {
		t.Errorf("missing fields not reported: %v (got %v)", want, vErr.Fields())
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nexport SITE_PORT=7070\nSITE_EMAIL_FROM=\"site@example.com\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(path), WithEnvMap(map[string]string{"SITE_EMAIL_FROM": "override@example.com"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from .env, got %s", cfg.Server.Port)
	}
	if cfg.Email.From != "override@example.com" {
		t.Errorf("expected env map to override .env, got %s", cfg.Email.From)
	}
}
