package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type stateKey struct{}

var noopLogger = zap.NewNop()

// TraceInfo captures trace metadata propagated through request context.
type TraceInfo struct {
	TraceID string
	SpanID  string
	Sampled bool
}

// state holds every request-scoped value under a single context key. Setters
// copy it, so a parent context never sees a child's values.
type state struct {
	logger *zap.Logger
	trace  TraceInfo
	locale string
	fetch  bool
}

func load(ctx context.Context) state {
	if ctx == nil {
		return state{}
	}
	if s, ok := ctx.Value(stateKey{}).(*state); ok {
		return *s
	}
	return state{}
}

func store(ctx context.Context, s state) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, stateKey{}, &s)
}

// WithLogger stores the request logger. A nil logger stores the no-op logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	s := load(ctx)
	if logger == nil {
		logger = noopLogger
	}
	s.logger = logger
	return store(ctx, s)
}

// Logger returns the stored logger or the no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if l := load(ctx).logger; l != nil {
		return l
	}
	return noopLogger
}

// NoopLogger exposes the shared noop logger instance.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores trace metadata.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	s := load(ctx)
	s.trace = info
	return store(ctx, s)
}

// TraceID returns the stored trace identifier, if any.
func TraceID(ctx context.Context) string {
	return load(ctx).trace.TraceID
}

// WithLocale records the locale code the request is served in.
func WithLocale(ctx context.Context, code string) context.Context {
	s := load(ctx)
	s.locale = code
	return store(ctx, s)
}

// Locale returns the recorded locale code or "".
func Locale(ctx context.Context) string {
	return load(ctx).locale
}

// WithFetch marks a script-initiated request.
func WithFetch(ctx context.Context, fetch bool) context.Context {
	s := load(ctx)
	s.fetch = fetch
	return store(ctx, s)
}

// Fetch reports whether the request was marked by WithFetch.
func Fetch(ctx context.Context) bool {
	return load(ctx).fetch
}
