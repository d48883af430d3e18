// Package observe provides the observability primitives for streamscribe:
// OpenTelemetry metrics, tracing, and HTTP middleware that ties them
// together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and bridged to
// Prometheus via [InitProvider], so they remain scrapeable at the standard
// /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with their own [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all streamscribe
// metrics.
const meterName = "github.com/streamscribe/streamscribe"

// Metrics holds all OpenTelemetry metric instruments for the gateway.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// EngineDuration tracks recognition latency. Use with attributes:
	//   attribute.String("engine", ...), attribute.String("task", ...), attribute.String("status", ...)
	EngineDuration metric.Float64Histogram

	// WindowsProcessed counts processing cycles. Use with attribute:
	//   attribute.String("decision", "speech"|"silence")
	WindowsProcessed metric.Int64Counter

	// SegmentsEmitted counts transcript segments delivered to clients.
	SegmentsEmitted metric.Int64Counter

	// SegmentsSuppressed counts transcripts rejected by the filter. Use with
	// attribute: attribute.String("reason", ...)
	SegmentsSuppressed metric.Int64Counter

	// EngineErrors counts failed recognition calls. Use with attribute:
	//   attribute.String("engine", ...)
	EngineErrors metric.Int64Counter

	// ActiveSessions tracks the number of live WebSocket sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// recognition latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EngineDuration, err = m.Float64Histogram("streamscribe.engine.duration",
		metric.WithDescription("Latency of recognition engine calls by engine, task, and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.WindowsProcessed, err = m.Int64Counter("streamscribe.windows.processed",
		metric.WithDescription("Total processing cycles by speech decision."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsEmitted, err = m.Int64Counter("streamscribe.segments.emitted",
		metric.WithDescription("Total transcript segments delivered to clients."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsSuppressed, err = m.Int64Counter("streamscribe.segments.suppressed",
		metric.WithDescription("Total transcripts rejected by the filter, by reason."),
	); err != nil {
		return nil, err
	}
	if met.EngineErrors, err = m.Int64Counter("streamscribe.engine.errors",
		metric.WithDescription("Total failed recognition calls by engine."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("streamscribe.active_sessions",
		metric.WithDescription("Number of live WebSocket sessions."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("streamscribe.http.request.duration",
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordEngineCall records one recognition call's latency with the standard
// attribute set.
func (m *Metrics) RecordEngineCall(ctx context.Context, engine, task, status string, seconds float64) {
	m.EngineDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("engine", engine),
			attribute.String("task", task),
			attribute.String("status", status),
		),
	)
}

// RecordWindow records one processing cycle with its speech decision.
func (m *Metrics) RecordWindow(ctx context.Context, decision string) {
	m.WindowsProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("decision", decision)),
	)
}

// RecordSuppressed records one filtered-out transcript with its rejection
// reason.
func (m *Metrics) RecordSuppressed(ctx context.Context, reason string) {
	m.SegmentsSuppressed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordEngineError records one failed recognition call.
func (m *Metrics) RecordEngineError(ctx context.Context, engine string) {
	m.EngineErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("engine", engine)),
	)
}
