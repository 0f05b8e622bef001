package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	mw "finitefield.org/shopper-web/internal/middleware"
)

const (
	langCookieMaxAge   = 365 * 24 * 60 * 60
	robotsCacheControl = "public, max-age=3600"
)

// RootRedirect sends / to the visitor's locale home. A valid lang cookie
// wins; otherwise Accept-Language is negotiated and remembered.
func RootRedirect(w http.ResponseWriter, r *http.Request) {
	loc, fromCookie := mw.PreferredLocale(r)
	if !fromCookie {
		http.SetCookie(w, &http.Cookie{
			Name:     mw.LangCookie,
			Value:    loc.String(),
			Path:     "/",
			MaxAge:   langCookieMaxAge,
			SameSite: http.SameSiteLaxMode,
		})
	}
	w.Header().Set("Vary", "Accept-Language, Cookie")
	http.Redirect(w, r, "/"+loc.String()+"/", http.StatusFound)
}

// Robots serves robots.txt pointing crawlers at the sitemaps. The origin is
// siteURL when configured, else the request origin.
func Robots(siteURL string) http.HandlerFunc {
	siteURL = strings.TrimRight(siteURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		origin := siteURL
		if origin == "" {
			origin = requestOrigin(r)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", robotsCacheControl)
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s/sitemap-index.xml\nSitemap: %s/sitemap.xml\n", origin, origin)
	}
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}
