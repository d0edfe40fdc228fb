// Package observe provides application-wide observability primitives for
// tasmee: OpenTelemetry metrics, tracing, structured logging, and HTTP
// middleware that ties them together.
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
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all tasmee metrics.
const meterName = "github.com/msaudi/tasmee"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// AlignmentDuration tracks the processing latency of one transcript
	// update through the alignment engine.
	AlignmentDuration metric.Float64Histogram

	// SegmentationDuration tracks passage segmentation latency.
	SegmentationDuration metric.Float64Histogram

	// WordMatches counts words marked correct. Use with attributes:
	//   attribute.String("strictness", ...), attribute.Bool("perfect", ...)
	WordMatches metric.Int64Counter

	// WordAttempts counts failed attempts registered on expected words.
	WordAttempts metric.Int64Counter

	// HintsShown counts hint escalations by ladder level.
	HintsShown metric.Int64Counter

	// SessionsCompleted counts completed passages. Use with attribute:
	//   attribute.Bool("perfect_run", ...)
	SessionsCompleted metric.Int64Counter

	// ActiveSessions tracks the number of live practice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// in-memory text processing: alignment of one update typically lands well
// under a millisecond.
var latencyBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AlignmentDuration, err = m.Float64Histogram("tasmee.alignment.duration",
		metric.WithDescription("Latency of one transcript update through the alignment engine."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentationDuration, err = m.Float64Histogram("tasmee.segmentation.duration",
		metric.WithDescription("Latency of passage segmentation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.WordMatches, err = m.Int64Counter("tasmee.word.matches",
		metric.WithDescription("Total words matched correct by strictness and perfect flag."),
	); err != nil {
		return nil, err
	}
	if met.WordAttempts, err = m.Int64Counter("tasmee.word.attempts",
		metric.WithDescription("Total failed attempts registered on expected words."),
	); err != nil {
		return nil, err
	}
	if met.HintsShown, err = m.Int64Counter("tasmee.hints.shown",
		metric.WithDescription("Total hint escalations by ladder level."),
	); err != nil {
		return nil, err
	}
	if met.SessionsCompleted, err = m.Int64Counter("tasmee.sessions.completed",
		metric.WithDescription("Total completed passages by perfect-run flag."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("tasmee.active_sessions",
		metric.WithDescription("Number of live practice sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("tasmee.http.request.duration",
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

// RecordMatch is a convenience method that records a correct-word counter
// increment with the standard attribute set.
func (m *Metrics) RecordMatch(ctx context.Context, strictness string, perfect bool) {
	m.WordMatches.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("strictness", strictness),
			attribute.Bool("perfect", perfect),
		),
	)
}

// RecordAttempts records n failed attempts.
func (m *Metrics) RecordAttempts(ctx context.Context, n int64) {
	if n > 0 {
		m.WordAttempts.Add(ctx, n)
	}
}

// RecordHint records one hint escalation at the given ladder level.
func (m *Metrics) RecordHint(ctx context.Context, level int) {
	m.HintsShown.Add(ctx, 1,
		metric.WithAttributes(attribute.String("level", strconv.Itoa(level))),
	)
}

// RecordCompletion records one completed passage.
func (m *Metrics) RecordCompletion(ctx context.Context, perfectRun bool) {
	m.SessionsCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("perfect_run", perfectRun)),
	)
}
