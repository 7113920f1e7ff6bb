// Package observe provides application-wide observability primitives for
// FluencyBoost: OpenTelemetry metrics, a Prometheus exporter bridge, and HTTP
// middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all FluencyBoost metrics.
const meterName = "github.com/fluencyboost/fluencyboost"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// RecognitionDuration tracks how long a recording attempt waits for a
	// recognition result, in seconds. Use with attribute:
	//   attribute.String("outcome", "result" | "timeout" | "error" | "cancelled")
	RecognitionDuration metric.Float64Histogram

	// ScoreDistribution tracks final attempt scores (0-100).
	ScoreDistribution metric.Float64Histogram

	// Attempts counts scored attempts. Use with attribute:
	//   attribute.String("tier", "success" | "close" | "retry")
	Attempts metric.Int64Counter

	// RecognitionErrors counts recognition failures that produced zero-score
	// feedback without a ledger entry. Use with attribute:
	//   attribute.String("kind", ...)
	RecognitionErrors metric.Int64Counter

	// ActiveSessions tracks the number of live practice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// recognitionBuckets defines histogram bucket boundaries (in seconds) sized
// for a listen window that tops out at the 10 s recording timeout.
var recognitionBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2, 3, 5, 7.5, 10, 15,
}

// scoreBuckets defines histogram bucket boundaries for the 0-100 score scale,
// aligned on the feedback tier thresholds.
var scoreBuckets = []float64{
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RecognitionDuration, err = m.Float64Histogram("fluencyboost.recognition.duration",
		metric.WithDescription("Time spent waiting for a recognition result."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(recognitionBuckets...),
	); err != nil {
		return nil, err
	}

	if met.ScoreDistribution, err = m.Float64Histogram("fluencyboost.attempt.score",
		metric.WithDescription("Distribution of final attempt scores."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Attempts, err = m.Int64Counter("fluencyboost.attempts.total",
		metric.WithDescription("Number of scored pronunciation attempts."),
	); err != nil {
		return nil, err
	}

	if met.RecognitionErrors, err = m.Int64Counter("fluencyboost.recognition.errors.total",
		metric.WithDescription("Number of recognition failures (timeout, permission, generic)."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("fluencyboost.sessions.active",
		metric.WithDescription("Number of live practice sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("fluencyboost.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
	defaultMetricsErr  error
)

// DefaultMetrics returns the process-wide [Metrics] instance backed by the
// global OTel meter provider. The first call creates the instruments; later
// calls return the same instance.
func DefaultMetrics() (*Metrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = NewMetrics(otel.GetMeterProvider())
	})
	return defaultMetrics, defaultMetricsErr
}

// RecordAttempt records a scored attempt with its tier attribute plus the
// score histogram sample. All Record helpers are nil-safe so callers can run
// without metrics wired (tests, library use).
func (m *Metrics) RecordAttempt(ctx context.Context, score float64, tier string) {
	if m == nil {
		return
	}
	m.Attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
	m.ScoreDistribution.Record(ctx, score)
}

// RecordRecognition records the duration of one listen with its outcome.
func (m *Metrics) RecordRecognition(ctx context.Context, seconds float64, outcome string) {
	if m == nil {
		return
	}
	m.RecognitionDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordRecognitionError counts a recognition failure of the given kind.
func (m *Metrics) RecordRecognitionError(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.RecognitionErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// SessionStarted increments the active-session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded decrements the active-session gauge.
func (m *Metrics) SessionEnded(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(ctx, -1)
}
