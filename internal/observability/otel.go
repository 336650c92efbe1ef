// Package observability wires OpenTelemetry tracing for the pipeline service:
// an OTLP/gRPC exporter, a resource describing the process and the global
// tracer provider and propagators. HTTP spans come from otelgin, service
// spans from the services package and SQL spans from the GORM plugin; all of
// them end up on the provider installed here.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/smm-pipeline/internal/config"
)

// ServiceNamespace groups the pipeline's services in trace backends.
const ServiceNamespace = "smm"

// ShutdownFunc flushes pending spans and releases the exporter.
type ShutdownFunc func(context.Context) error

// Info describes the running build for the trace resource.
type Info struct {
	Version     string
	Environment string
}

// Test seams.
var (
	newClient = otlptracegrpc.NewClient

	newExporter = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	newResource = func(ctx context.Context, serviceName string, info Info) (*resource.Resource, error) {
		attrs := []resource.Option{
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
				semconv.ServiceNamespace(ServiceNamespace),
				semconv.ServiceVersion(info.Version),
			),
		}
		if info.Environment != "" {
			attrs = append(attrs, resource.WithAttributes(semconv.DeploymentEnvironment(info.Environment)))
		}
		return resource.New(ctx, attrs...)
	}
)

func noop(context.Context) error { return nil }

// Setup installs a batching tracer provider exporting to cfg.Endpoint. When
// tracing is disabled it changes nothing and returns a no-op shutdown. On
// error the global provider and propagator are left untouched.
func Setup(ctx context.Context, cfg config.OTELConfig, info Info) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return noop, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}

	exp, err := newExporter(ctx, newClient(opts...))
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg.ServiceName, info)
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// sampleRatio clamps r to [0, 1].
func sampleRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
