// Package metrics sets up the OTEL meter provider and the quoter's
// instruments. Prometheus scraping is always available; an OTLP gRPC reader
// is added when telemetry is enabled.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/swap-quoter/internal/config"
)

// MetricProvider is a meter provider that can be shut down.
type MetricProvider interface {
	metric.MeterProvider
	Shutdown(ctx context.Context) error
}

// NewMetricProvider builds and installs the global meter provider.
func NewMetricProvider(ctx context.Context, cfg config.TelemetryConfig) (MetricProvider, error) {
	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("metrics: prometheus exporter: %w", err)
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithReader(promExporter),
		sdkmetric.WithResource(resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))),
	}

	if cfg.Enabled && cfg.OTLPEndpoint != "" && cfg.Exporter == "otlp-grpc" {
		grpcOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpointURL(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers()),
		}
		if cfg.OTLPInsecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("metrics: otlp exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// NewPrometheusServer returns an unstarted server exposing /metrics.
func NewPrometheusServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
