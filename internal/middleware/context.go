package middleware

import (
	"context"

	"finitefield.org/shopper-web/internal/i18n"
	"finitefield.org/shopper-web/internal/platform/requestctx"
)

// WithLocale stores the resolved page locale.
func WithLocale(ctx context.Context, loc i18n.Locale) context.Context {
	return requestctx.WithLocale(ctx, loc.String())
}

// LocaleFrom returns the locale stored by Locale, or the default.
func LocaleFrom(ctx context.Context) i18n.Locale {
	if loc := i18n.Locale(requestctx.Locale(ctx)); loc.Valid() {
		return loc
	}
	return i18n.Default
}

// WithFetch marks the request as a script-initiated fetch.
func WithFetch(ctx context.Context, is bool) context.Context {
	return requestctx.WithFetch(ctx, is)
}

// IsFetch reports whether Fetch flagged this request.
func IsFetch(ctx context.Context) bool {
	return requestctx.Fetch(ctx)
}
