package observe

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withTestTracer installs an in-memory tracer provider globally for the
// duration of the test and returns its exporter.
func withTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(orig)
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func TestCorrelationID(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID without a span = %q; want empty", got)
	}

	withTestTracer(t)
	ctx, span := StartSpan(context.Background(), "score-attempt")
	defer span.End()

	cid := CorrelationID(ctx)
	if len(cid) != 32 {
		t.Fatalf("correlation ID length = %d; want 32 hex chars", len(cid))
	}
	if strings.Trim(cid, "0123456789abcdef") != "" {
		t.Errorf("correlation ID %q contains non-hex characters", cid)
	}
}

func TestStartSpan_RecordsNamedSpan(t *testing.T) {
	exp := withTestTracer(t)

	_, span := StartSpan(context.Background(), "score-attempt")
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans; want 1", len(spans))
	}
	if spans[0].Name != "score-attempt" {
		t.Errorf("span name = %q; want score-attempt", spans[0].Name)
	}
}

func TestLogger(t *testing.T) {
	withTestTracer(t)

	var buf strings.Builder
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(orig) })

	// Without a span the logger carries no trace attributes.
	Logger(context.Background()).Info("plain")
	if s := buf.String(); strings.Contains(s, "trace_id") {
		t.Errorf("log without span contains trace_id: %s", s)
	}
	buf.Reset()

	ctx, span := StartSpan(context.Background(), "attempt")
	defer span.End()
	Logger(ctx).Info("traced")

	logged := buf.String()
	if !strings.Contains(logged, "trace_id=") || !strings.Contains(logged, "span_id=") {
		t.Errorf("log within span missing trace attributes: %s", logged)
	}
	if want := "trace_id=" + CorrelationID(ctx); !strings.Contains(logged, want) {
		t.Errorf("log trace_id does not match span: %s", logged)
	}
}
