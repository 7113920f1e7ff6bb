package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the FluencyBoost tracer.
const tracerName = "github.com/fluencyboost/fluencyboost"

// Tracer returns the tracer for this module from the globally registered
// [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span named name under the current span in ctx. The
// caller must end the returned span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// spanContext returns the span context in ctx and whether it carries a
// valid trace ID.
func spanContext(ctx context.Context) (trace.SpanContext, bool) {
	sc := trace.SpanContextFromContext(ctx)
	return sc, sc.HasTraceID()
}

// CorrelationID returns the hex trace ID of the active span in ctx, or the
// empty string outside a span. The trace ID doubles as the request
// correlation identifier in logs and response headers.
func CorrelationID(ctx context.Context) string {
	sc, ok := spanContext(ctx)
	if !ok {
		return ""
	}
	return sc.TraceID().String()
}

// Logger returns the default [slog.Logger] with trace_id and span_id
// attributes taken from the active span in ctx. Outside a span it returns
// the default logger unchanged, so call sites do not need to care whether
// tracing is enabled.
func Logger(ctx context.Context) *slog.Logger {
	sc, ok := spanContext(ctx)
	if !ok {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
