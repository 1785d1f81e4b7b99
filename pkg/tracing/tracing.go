// Package tracing configures the OpenTelemetry tracer provider that the
// catalog services report spans to.
package tracing

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shelfmates/shelfmates/pkg/config"
	"github.com/shelfmates/shelfmates/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ShutdownFunc flushes pending spans and stops the exporter.
type ShutdownFunc func(ctx context.Context) error

// Setup installs a global tracer provider exporting over OTLP/HTTP to
// cfg.TracingEndpoint. Without an endpoint the global no-op provider is left
// in place and the returned ShutdownFunc does nothing.
func Setup(ctx context.Context, cfg *config.Config) (ShutdownFunc, error) {
	if cfg.TracingEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.TracingEndpoint))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create trace exporter")
	}

	tp := NewProvider(cfg, sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// NewProvider returns a tracer provider tagged with the service's name,
// version, host, and environment.
func NewProvider(cfg *config.Config, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.TracingServiceName),
		attribute.String("service.version", version.Version),
		attribute.String("host.name", cfg.Hostname),
		attribute.String("deployment.environment", cfg.Environment),
	)
	return sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)...)
}

// End records err on the span, if any, and ends it. Call it deferred with a
// pointer to the named error result.
func End(span trace.Span, err *error) {
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
