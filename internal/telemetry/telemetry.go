// Package telemetry bootstraps Sentry error reporting and OpenTelemetry
// tracing once at process start.
package telemetry

import (
	"context"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry owns the tracer used to span each relay and the Sentry
// middleware attached to the gin recovery chain.
type Telemetry struct {
	Tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// Init configures Sentry (if dsn is set) and an OTel tracer provider
// (exporting via OTLP/HTTP if endpoint is set, otherwise a no-op provider
// that still satisfies the trace.Tracer interface).
func Init(ctx context.Context, dsn, otlpEndpoint, serviceName string) (*Telemetry, error) {
	if dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			return nil, err
		}
	}

	if otlpEndpoint == "" {
		return &Telemetry{Tracer: otel.Tracer(serviceName)}, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(otlpEndpoint))
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return &Telemetry{Tracer: provider.Tracer(serviceName), provider: provider}, nil
}

// Shutdown flushes any pending spans and Sentry events.
func (t *Telemetry) Shutdown(ctx context.Context) {
	if t.provider != nil {
		_ = t.provider.Shutdown(ctx)
	}
	sentry.Flush(2 * time.Second)
}

// SentryMiddleware attaches request context to captured panics/errors when
// Sentry is configured; it is a harmless pass-through otherwise.
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}
