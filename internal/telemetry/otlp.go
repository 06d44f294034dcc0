// Package telemetry exports run traces over OTLP/HTTP when
// OTEL_EXPORTER_OTLP_ENDPOINT is set.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const defaultService = "longsim"

// Provider owns the tracer provider of an enabled exporter. A nil Provider
// is valid and means tracing is disabled.
type Provider struct {
	provider *sdktrace.TracerProvider
}

// Setup creates an OTLP exporter and installs it as the global tracer
// provider. It returns nil when OTEL_EXPORTER_OTLP_ENDPOINT is empty.
func Setup(ctx context.Context) (*Provider, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	p := newProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(p.provider)
	return p, nil
}

func newProvider(opt sdktrace.TracerProviderOption) *Provider {
	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = defaultService
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)
	return &Provider{provider: sdktrace.NewTracerProvider(opt, sdktrace.WithResource(res))}
}

// Tracer returns a named tracer, falling back to the global provider when
// tracing is disabled.
func (p *Provider) Tracer(name string) oteltrace.Tracer {
	if p == nil {
		return otel.Tracer(name)
	}
	return p.provider.Tracer(name)
}

// Shutdown flushes pending spans and closes the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
