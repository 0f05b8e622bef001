package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerDefaultsToNoop(t *testing.T) {
	if Logger(context.Background()) != NoopLogger() {
		t.Fatalf("expected noop logger for empty context")
	}
	//nolint:staticcheck // nil context
	if Logger(nil) != NoopLogger() {
		t.Fatalf("expected noop logger for nil context")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if Logger(ctx) != logger {
		t.Fatalf("expected stored logger")
	}
}

func TestTraceID(t *testing.T) {
	ctx := WithTrace(context.Background(), TraceInfo{TraceID: "abc", SpanID: "def"})
	if got := TraceID(ctx); got != "abc" {
		t.Fatalf("expected trace id abc, got %q", got)
	}
	if got := TraceID(context.Background()); got != "" {
		t.Fatalf("expected empty trace id, got %q", got)
	}
}

func TestValuesAreIndependentPerContext(t *testing.T) {
	logger := zap.NewExample()
	parent := WithLogger(context.Background(), logger)
	child := WithLocale(WithTrace(parent, TraceInfo{TraceID: "t1"}), "fr")

	if Logger(child) != logger {
		t.Fatalf("child lost the parent logger")
	}
	if Locale(child) != "fr" || TraceID(child) != "t1" {
		t.Fatalf("unexpected child values: %q %q", Locale(child), TraceID(child))
	}
	if Locale(parent) != "" || TraceID(parent) != "" {
		t.Fatalf("parent observed child values")
	}
}

func TestFetchFlag(t *testing.T) {
	if Fetch(context.Background()) {
		t.Fatalf("expected no fetch flag by default")
	}
	if !Fetch(WithFetch(context.Background(), true)) {
		t.Fatalf("expected fetch flag")
	}
}
