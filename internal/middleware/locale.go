package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"finitefield.org/shopper-web/internal/i18n"
)

// LangParam is the chi URL parameter carrying the locale prefix.
const LangParam = "lang"

// Locale validates the {lang} path segment. Only the exact lower-case codes
// are routable; anything else is handed to notFound.
func Locale(notFound http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := i18n.Locale(chi.URLParam(r, LangParam))
			if !loc.Valid() {
				notFound.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Language", loc.String())
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), loc)))
		})
	}
}
