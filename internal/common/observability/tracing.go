// internal/common/observability/tracing.go
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type TracingOptions struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
	// Exporter replaces the Jaeger exporter; spans are exported synchronously.
	Exporter sdktrace.SpanExporter
}

// InitTracing installs a global tracer provider. A disabled configuration
// still yields a working provider that exports nothing.
func InitTracing(opts TracingOptions) (*sdktrace.TracerProvider, error) {
	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))
	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	switch {
	case opts.Exporter != nil:
		tpOpts = append(tpOpts, sdktrace.WithSyncer(opts.Exporter))
	case opts.Enabled:
		if opts.JaegerEndpoint == "" {
			return nil, fmt.Errorf("tracing enabled without jaeger endpoint")
		}
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(opts.JaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("create jaeger exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// WithSpan starts a span and returns the context and its end function.
func WithSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, func()) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func() { span.End() }
}
