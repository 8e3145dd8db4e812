// Package metrics records probe and cycle measurements with OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder receives measurements from the probe pipeline.
//
// Implementations must be safe for concurrent use: Probe is called from
// every probe goroutine of a cycle.
type Recorder interface {
	Probe(ctx context.Context, status string, latency time.Duration)
	Cycle(ctx context.Context, alert string, duration time.Duration)
	Breach(ctx context.Context, alert, level string)
}

type otelRecorder struct {
	probeTotal    metric.Int64Counter
	probeDuration metric.Float64Histogram
	cycleDuration metric.Float64Histogram
	breaches      metric.Int64Counter
}

// New creates a Recorder backed by meter. Names carry no unit or _total
// suffix; the Prometheus exporter appends those.
func New(meter metric.Meter) (Recorder, error) {
	probeTotal, err := meter.Int64Counter(
		"healthalert.probes",
		metric.WithDescription("Probes completed, by classified status"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	probeDuration, err := meter.Float64Histogram(
		"healthalert.probe.duration",
		metric.WithDescription("Probe latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cycleDuration, err := meter.Float64Histogram(
		"healthalert.cycle.duration",
		metric.WithDescription("Full alert cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	breaches, err := meter.Int64Counter(
		"healthalert.threshold.breaches",
		metric.WithDescription("Cycles whose event matched a breached threshold"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	return &otelRecorder{
		probeTotal:    probeTotal,
		probeDuration: probeDuration,
		cycleDuration: cycleDuration,
		breaches:      breaches,
	}, nil
}

func (r *otelRecorder) Probe(ctx context.Context, status string, latency time.Duration) {
	opt := metric.WithAttributes(attribute.String("status", status))
	r.probeTotal.Add(ctx, 1, opt)
	r.probeDuration.Record(ctx, float64(latency.Milliseconds()), opt)
}

func (r *otelRecorder) Cycle(ctx context.Context, alert string, duration time.Duration) {
	r.cycleDuration.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(attribute.String("alert", alert)))
}

func (r *otelRecorder) Breach(ctx context.Context, alert, level string) {
	r.breaches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("alert", alert),
		attribute.String("level", level),
	))
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) Probe(context.Context, string, time.Duration) {}
func (Noop) Cycle(context.Context, string, time.Duration) {}
func (Noop) Breach(context.Context, string, string)       {}
