package middleware

import (
	"net/http"
	"strings"
)

// Fetch marks requests sent by the contact form script (or htmx) so handlers
// can answer with JSON instead of a redirect.
func Fetch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithFetch(r.Context(), isFetch(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isFetch(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(r.Header.Get("X-Requested-With"))) {
	case "fetch", "xmlhttprequest":
		return true
	}
	return false
}

// WantsHTML reports whether the response should be a page navigation rather
// than JSON: the client accepts text/html and did not flag itself as fetch.
func WantsHTML(r *http.Request) bool {
	if IsFetch(r.Context()) || isFetch(r) {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
