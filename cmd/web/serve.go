package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/shopper-web/internal/cms"
	"finitefield.org/shopper-web/internal/contact"
	"finitefield.org/shopper-web/internal/handlers"
	"finitefield.org/shopper-web/internal/i18n"
	mw "finitefield.org/shopper-web/internal/middleware"
	"finitefield.org/shopper-web/internal/oauth"
	"finitefield.org/shopper-web/internal/platform/config"
	pfirestore "finitefield.org/shopper-web/internal/platform/firestore"
	"finitefield.org/shopper-web/internal/platform/observability"
	"finitefield.org/shopper-web/templates"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	ctx = observability.WithLogger(ctx, logger)

	cfg, fetcher, err := loadConfig(ctx, logger)
	if err != nil {
		logger.Error("configuration", zap.Error(err))
		return err
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	bundle, err := i18n.DefaultBundle()
	if err != nil {
		return fmt.Errorf("load dictionaries: %w", err)
	}

	resolver, err := newResolver(cfg, firestoreProvider, logger)
	if err != nil {
		return err
	}

	var templateFS fs.FS = templates.FS
	if cfg.Site.Dev {
		templateFS = os.DirFS("templates")
	}
	renderer, err := handlers.NewRenderer(templateFS, handlers.TemplateFuncs(bundle), cfg.Site.Dev)
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	site := handlers.NewSiteHandlers(resolver, renderer, bundle,
		handlers.WithSiteURL(cfg.Site.URL),
		handlers.WithDefaultOGImage(cfg.Site.DefaultOGImage),
		handlers.WithAnalytics(handlers.AnalyticsFromConfig(cfg.Site)),
	)

	contactService, closeContact, err := newContactService(ctx, cfg, firestoreProvider, logger)
	if err != nil {
		return err
	}
	defer closeContact()

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger),
			middleware.Compress(5),
		),
		handlers.WithSite(site),
		handlers.WithContact(handlers.NewContactHandlers(contactService)),
		handlers.WithOAuth(handlers.NewOAuthHandlers(oauth.New(cfg.OAuth))),
		handlers.WithAssets(mw.AssetsWithCache(os.DirFS(filepath.Join(cfg.Site.AssetsDir, "assets")))),
		handlers.WithRobotsOrigin(cfg.Site.URL),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		serverLogger.Info("site listening",
			zap.Bool("dev", cfg.Site.Dev),
			zap.String("collections", cfg.Content.CollectionsBackend),
			zap.Bool("oauth", cfg.OAuthEnabled()),
			zap.Bool("email", cfg.EmailEnabled()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received; draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

func newResolver(cfg config.Config, provider *pfirestore.Provider, logger *zap.Logger) (*cms.Resolver, error) {
	validator, err := cms.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("compile content schemas: %w", err)
	}
	source, err := collectionSource(cfg.Content, provider)
	if err != nil {
		return nil, err
	}
	cmsLogger := logger.Named("cms")
	tiers := cms.NewChain(cms.ChainConfig{
		ContentDir:  cfg.Content.Dir,
		Legacy:      cfg.Content.Legacy,
		Collections: source,
		Validator:   validator,
		Dev:         cfg.Site.Dev,
		Logger:      cmsLogger,
	})
	return cms.NewResolver(tiers, cms.WithLogger(cmsLogger)), nil
}

// collectionSource returns nil when the collection tier is disabled.
func collectionSource(cfg config.ContentConfig, provider *pfirestore.Provider) (cms.CollectionSource, error) {
	switch cfg.CollectionsBackend {
	case "", "none":
		return nil, nil
	case "dir":
		dir := cfg.CollectionsDir
		if dir == "" {
			dir = filepath.Join(cfg.Dir, "collections")
		}
		return cms.NewDirSource(dir), nil
	case "http":
		return cms.NewRemoteSource(cfg.CMSBaseURL, &http.Client{Timeout: cfg.CMSTimeout}), nil
	case "firestore":
		return cms.NewFirestoreSource(provider, ""), nil
	default:
		return nil, fmt.Errorf("unknown collections backend %q", cfg.CollectionsBackend)
	}
}

// newContactService assembles the limiter, mailer and notifier. The returned
// func releases the Pub/Sub client.
func newContactService(ctx context.Context, cfg config.Config, provider *pfirestore.Provider, logger *zap.Logger) (*contact.Service, func(), error) {
	var store contact.Store
	switch cfg.Contact.RateStore {
	case "firestore":
		store = contact.NewFirestoreStore(provider, "", nil)
	default:
		store = contact.NewMemoryStore(nil)
	}
	limiter := contact.NewLimiter(store, cfg.Contact.RateMax, cfg.Contact.RateWindow, nil)

	contactLogger := logger.Named("contact")
	opts := []contact.Option{contact.WithLogger(contactLogger)}
	if cfg.EmailEnabled() {
		opts = append(opts, contact.WithMailer(
			contact.NewResendMailer(cfg.Email.ResendAPIKey),
			contact.Recipients{
				From: cfg.Email.From,
				To:   contact.SplitAddresses(cfg.Email.To),
				BCC:  cfg.Email.BCC,
			},
		))
	} else {
		contactLogger.Warn("email delivery not configured; submissions will fail")
	}

	closer := func() {}
	if cfg.Contact.Topic != "" {
		client, err := pubsub.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("initialise pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Contact.Topic)
		notifier, err := contact.NewPubSubNotifier(topic)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		opts = append(opts, contact.WithNotifier(notifier))
		closer = func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				contactLogger.Warn("pubsub close error", zap.Error(err))
			}
		}
	}
	return contact.NewService(limiter, opts...), closer, nil
}
