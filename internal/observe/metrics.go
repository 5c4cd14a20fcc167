// Package observe provides application-wide observability primitives for
// Revisor: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
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

// meterName is the instrumentation scope name used for all Revisor metrics.
const meterName = "github.com/hipnotiq/revisor"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	meter metric.Meter

	// --- Latency histograms ---

	// DiffDuration tracks word-diff computation latency per line.
	DiffDuration metric.Float64Histogram

	// SuggestionDuration tracks suggestion pipeline latency. Use with
	// attribute: attribute.String("stage", ...)
	SuggestionDuration metric.Float64Histogram

	// SubmitDuration tracks reprocess submission round-trip latency.
	SubmitDuration metric.Float64Histogram

	// --- Counters ---

	// LedgerOps counts ledger mutations. Use with attribute:
	//   attribute.String("op", ...) — "update", "remove", "regen", "remake", "confirm"
	LedgerOps metric.Int64Counter

	// Submissions counts reprocess submissions by status. Use with attribute:
	//   attribute.String("status", ...) — "accepted", "rejected"
	Submissions metric.Int64Counter

	// --- Error counters ---

	// BackendErrors counts generation-backend errors. Use with attribute:
	//   attribute.String("op", ...)
	BackendErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions reports the number of live review sessions. It is an
	// asynchronous instrument read from a registered callback (see
	// [Metrics.ObserveActiveSessions]) so the value cannot drift from the
	// session map, whether sessions end by explicit close or idle expiry.
	ActiveSessions metric.Int64ObservableUpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Diff
// computation sits in the sub-millisecond range while LLM suggestions can
// take whole seconds, so the spread is wide.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{meter: m}

	// Histograms.
	if met.DiffDuration, err = m.Float64Histogram("revisor.diff.duration",
		metric.WithDescription("Latency of word-diff computation per line."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SuggestionDuration, err = m.Float64Histogram("revisor.suggestion.duration",
		metric.WithDescription("Latency of the correction suggestion pipeline by stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SubmitDuration, err = m.Float64Histogram("revisor.submit.duration",
		metric.WithDescription("Round-trip latency of reprocess submissions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.LedgerOps, err = m.Int64Counter("revisor.ledger.ops",
		metric.WithDescription("Total ledger mutations by operation."),
	); err != nil {
		return nil, err
	}
	if met.Submissions, err = m.Int64Counter("revisor.submissions",
		metric.WithDescription("Total reprocess submissions by status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.BackendErrors, err = m.Int64Counter("revisor.backend.errors",
		metric.WithDescription("Total generation-backend errors by operation."),
	); err != nil {
		return nil, err
	}

	// Gauges (observed asynchronously).
	if met.ActiveSessions, err = m.Int64ObservableUpDownCounter("revisor.active_sessions",
		metric.WithDescription("Number of live review sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("revisor.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// ObserveActiveSessions registers count as the source for the
// revisor.active_sessions gauge. The callback runs on every metric
// collection, so the reported value always matches the live session map.
// The returned [metric.Registration] unregisters the callback.
func (m *Metrics) ObserveActiveSessions(count func() int64) (metric.Registration, error) {
	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(m.ActiveSessions, count())
		return nil
	}, m.ActiveSessions)
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordLedgerOp is a convenience method that records a ledger mutation
// counter increment.
func (m *Metrics) RecordLedgerOp(ctx context.Context, op string) {
	m.LedgerOps.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)),
	)
}

// RecordSubmission is a convenience method that records a submission counter
// increment with the standard status attribute.
func (m *Metrics) RecordSubmission(ctx context.Context, status string) {
	m.Submissions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordBackendError is a convenience method that records a backend error
// counter increment.
func (m *Metrics) RecordBackendError(ctx context.Context, op string) {
	m.BackendErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("op", op)),
	)
}
