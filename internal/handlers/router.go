package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	mw "finitefield.org/shopper-web/internal/middleware"
	"finitefield.org/shopper-web/internal/platform/httpx"
)

const defaultTimeout = 30 * time.Second

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	site        *SiteHandlers
	contact     *ContactHandlers
	oauth       *OAuthHandlers
	assets      http.Handler
	siteURL     string
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

// NewRouter constructs the chi router with shared middleware and the site's
// route groups. Paths are matched without their trailing slash.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.StripSlashes,
			mw.Fetch,
			middleware.Timeout(defaultTimeout),
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	for _, m := range cfg.middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	notFound := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NotFound(fmt.Sprintf("no route for %s", req.URL.Path)))
	})
	if cfg.site != nil {
		notFound = cfg.site.NotFound
	}
	r.NotFound(notFound)

	r.Get("/healthz", Healthz)
	r.Get("/robots.txt", Robots(cfg.siteURL))
	r.Get("/", RootRedirect)
	if cfg.assets != nil {
		r.Handle("/assets/*", http.StripPrefix("/assets", cfg.assets))
	}
	if cfg.oauth != nil {
		r.Get("/oauth", cfg.oauth.Start)
		r.Get("/oauth/callback", cfg.oauth.Callback)
	}
	if cfg.contact != nil {
		r.Post("/api/contact", cfg.contact.Submit)
	}

	r.Route("/{"+mw.LangParam+"}", func(lang chi.Router) {
		lang.Use(mw.Locale(notFound))
		if cfg.site != nil {
			cfg.site.Routes(lang)
		}
		if cfg.contact != nil {
			lang.Post("/contact", cfg.contact.Submit)
		}
	})
	return r
}

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(m ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, m...)
	}
}

// WithSite mounts the localized pages.
func WithSite(h *SiteHandlers) Option {
	return func(cfg *routerConfig) { cfg.site = h }
}

// WithContact mounts the contact endpoints.
func WithContact(h *ContactHandlers) Option {
	return func(cfg *routerConfig) { cfg.contact = h }
}

// WithOAuth mounts /oauth and /oauth/callback.
func WithOAuth(h *OAuthHandlers) Option {
	return func(cfg *routerConfig) { cfg.oauth = h }
}

// WithAssets serves static files under /assets/.
func WithAssets(h http.Handler) Option {
	return func(cfg *routerConfig) { cfg.assets = h }
}

// WithRobotsOrigin sets the origin advertised by robots.txt.
func WithRobotsOrigin(u string) Option {
	return func(cfg *routerConfig) { cfg.siteURL = u }
}
