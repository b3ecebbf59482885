// internal/common/observability/metrics.go
package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability exposes OpenTelemetry instruments through a Prometheus
// registry so /metrics serves both collector sets.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	rescores      otelmetric.Int64Counter
	rescoredDeals otelmetric.Int64Counter
}

// New builds the meter provider on reg and installs it globally.
func New(serviceName string, reg prometheus.Registerer) (*Observability, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)
	o := &Observability{meterProvider: provider, meter: meter}

	if o.jobCounter, err = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	); err != nil {
		return nil, err
	}
	if o.jobDuration, err = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if o.rescores, err = meter.Int64Counter(
		"risk.rescore.passes",
		otelmetric.WithDescription("Rescoring passes over the deal set"),
	); err != nil {
		return nil, err
	}
	if o.rescoredDeals, err = meter.Int64Counter(
		"risk.rescore.deals",
		otelmetric.WithDescription("Deals rescored"),
	); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

// RecordRescore counts one rescoring pass of n deals.
func (o *Observability) RecordRescore(ctx context.Context, trigger string, n int) {
	attrs := otelmetric.WithAttributes(attribute.String("trigger", trigger))
	o.rescores.Add(ctx, 1, attrs)
	o.rescoredDeals.Add(ctx, int64(n), attrs)
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
