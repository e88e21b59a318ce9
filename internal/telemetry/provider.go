// Package telemetry wires OpenTelemetry tracing for the backend.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Options selects where spans go. Values come from config.Config.
type Options struct {
	ServiceName string
	Endpoint    string
	Enabled     bool
	Network     string
}

// Tracing owns the tracer provider installed by Setup. A Tracing with no
// provider is a no-op.
type Tracing struct {
	provider *sdktrace.TracerProvider
}

// Setup installs an OTLP/HTTP tracer provider as the global provider when
// opts.Enabled is set and opts.Endpoint is non-empty. Otherwise it returns
// a no-op Tracing and leaves the globals untouched.
func Setup(ctx context.Context, opts Options) (*Tracing, error) {
	if !opts.Enabled || opts.Endpoint == "" {
		return &Tracing{}, nil
	}
	if opts.ServiceName == "" {
		return &Tracing{}, fmt.Errorf("telemetry: service name is required")
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(opts.Endpoint),
	)
	if err != nil {
		return &Tracing{}, fmt.Errorf("telemetry: exporter: %w", err)
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(opts.ServiceName)}
	if opts.Network != "" {
		attrs = append(attrs, attribute.String("stellar.network", opts.Network))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return &Tracing{}, fmt.Errorf("telemetry: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &Tracing{provider: tp}, nil
}

// Enabled reports whether spans are being exported.
func (t *Tracing) Enabled() bool {
	return t != nil && t.provider != nil
}

// Shutdown flushes pending spans. It is safe on a no-op Tracing.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
