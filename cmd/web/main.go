package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/shopper-web/internal/platform/config"
	"finitefield.org/shopper-web/internal/platform/observability"
	"finitefield.org/shopper-web/internal/platform/secrets"
)

const defaultSecretsFallback = ".secrets.local"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd wires the sub-commands. Running the binary without a
// sub-command starts the web server.
func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:          "web",
		Short:        "Multilingual personal shopper site",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.AddCommand(serve, newValidateCmd(), newRenderCmd())
	return root
}

// loadConfig resolves secret references through Secret Manager, falling back
// to the local secrets file.
func loadConfig(ctx context.Context, logger *zap.Logger) (config.Config, *secrets.Fetcher, error) {
	fallback := strings.TrimSpace(os.Getenv("SITE_SECRETS_FALLBACK_FILE"))
	if fallback == "" {
		fallback = defaultSecretsFallback
	}
	fetcher := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(strings.TrimSpace(os.Getenv("SITE_GCP_PROJECT_ID"))),
		secrets.WithFallbackFile(fallback),
	)
	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		_ = fetcher.Close()
		return config.Config{}, nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, fetcher, nil
}

// newLogger builds the process logger before configuration is available, so
// it reads the environment name directly.
func newLogger() (*zap.Logger, error) {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("SITE_ENV")))
	logger, err := observability.NewLogger(env == "" || env == "local")
	if err != nil {
		return nil, fmt.Errorf("initialise logger: %w", err)
	}
	return logger.Named("web"), nil
}
