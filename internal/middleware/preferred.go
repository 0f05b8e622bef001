package middleware

import (
	"net/http"

	"finitefield.org/shopper-web/internal/i18n"
)

// LangCookie remembers the visitor's language between visits.
const LangCookie = "lang"

// PreferredLocale picks the locale for requests without a path prefix: a
// valid lang cookie wins, otherwise Accept-Language is negotiated. The second
// result reports whether the cookie supplied the answer.
func PreferredLocale(r *http.Request) (i18n.Locale, bool) {
	if c, err := r.Cookie(LangCookie); err == nil {
		if loc, ok := i18n.Normalize(c.Value); ok {
			return loc, true
		}
	}
	return i18n.Negotiate(r.Header.Get("Accept-Language")), false
}

// PathLocale returns the locale of the first path segment when it is a
// supported code.
func PathLocale(path string) (i18n.Locale, bool) {
	seg := path
	if len(seg) > 0 && seg[0] == '/' {
		seg = seg[1:]
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] == '/' {
			seg = seg[:i]
			break
		}
	}
	loc := i18n.Locale(seg)
	return loc, loc.Valid()
}
