package apm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/swap-quoter/internal/config"
	"github.com/fd1az/swap-quoter/internal/logger"
)

// Exporter names accepted in telemetry.exporter.
const (
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
	ExporterZipkin   = "zipkin"
	ExporterConsole  = "console"
)

// TraceProvider flushes and stops the installed tracer provider.
type TraceProvider interface {
	Stop() error
}

type noopProvider struct{}

func (noopProvider) Stop() error { return nil }

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

// NewTraceProvider installs the global tracer provider described by cfg.
// With telemetry disabled it installs nothing and returns a no-op.
func NewTraceProvider(ctx context.Context, cfg config.TelemetryConfig, log logger.LoggerInterface) (TraceProvider, error) {
	if !cfg.Enabled {
		return noopProvider{}, nil
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("apm: %s exporter: %w", cfg.Exporter, err)
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("otel.exporter", cfg.Exporter),
		))
	if err != nil {
		return nil, fmt.Errorf("apm: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(ctx, "tracing enabled", "exporter", cfg.Exporter, "endpoint", cfg.OTLPEndpoint)
	return &traceProvider{tp}, nil
}

func newExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ExporterOTLPGRPC:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpointURL(cfg.OTLPEndpoint),
			otlptracegrpc.WithHeaders(cfg.Headers()),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ExporterOTLPHTTP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint),
			otlptracehttp.WithHeaders(cfg.Headers()),
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case ExporterZipkin:
		return zipkin.New(cfg.OTLPEndpoint)
	case ExporterConsole:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown exporter %q", cfg.Exporter)
	}
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return o.tp.Shutdown(ctx)
}
