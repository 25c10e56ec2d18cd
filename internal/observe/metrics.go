// Package observe expone las metricas de la aplicacion con OpenTelemetry.
// Un exportador de Prometheus las publica en /metrics.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "diary-companion"

// Metrics agrupa los instrumentos. Un *Metrics nil ignora todas las llamadas.
type Metrics struct {
	Utterances       metric.Int64Counter
	GuidedSelections metric.Int64Counter
	RemoteFailures   metric.Int64Counter
	AuthAttempts     metric.Int64Counter
	HTTPDuration     metric.Float64Histogram
}

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Utterances, err = m.Int64Counter("diary.utterances",
		metric.WithDescription("Free text replies by cascade strategy."),
	); err != nil {
		return nil, err
	}
	if met.GuidedSelections, err = m.Int64Counter("diary.guided.selections",
		metric.WithDescription("Guided dialogue options selected, by target node."),
	); err != nil {
		return nil, err
	}
	if met.RemoteFailures, err = m.Int64Counter("diary.remote.failures",
		metric.WithDescription("Failed remote completion calls."),
	); err != nil {
		return nil, err
	}
	if met.AuthAttempts, err = m.Int64Counter("diary.auth.attempts",
		metric.WithDescription("Login attempts by result."),
	); err != nil {
		return nil, err
	}
	if met.HTTPDuration, err = m.Float64Histogram("diary.http.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

func (m *Metrics) RecordUtterance(ctx context.Context, strategy string) {
	if m == nil {
		return
	}
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("strategy", strategy)))
}

func (m *Metrics) RecordGuidedSelection(ctx context.Context, node string) {
	if m == nil {
		return
	}
	m.GuidedSelections.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node)))
}

func (m *Metrics) RecordRemoteFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.RemoteFailures.Add(ctx, 1)
}

// RecordAuthAttempt usa result = "created", "ok", "invalid", "malformed" o "rate_limited".
func (m *Metrics) RecordAuthAttempt(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.AuthAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordHTTP(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
