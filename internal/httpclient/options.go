// Package httpclient provides a JSON HTTP client instrumented with OTEL
// tracing and request metrics, used for upstream REST collaborators.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	providerName  string
	baseURL       string
	timeout       time.Duration
	headers       http.Header
	roundTripper  http.RoundTripper
	meterProvider metric.MeterProvider
	tracer        trace.Tracer
}

// Option configures a Client.
type Option func(*options)

// WithProviderName labels metrics and spans with the upstream's name.
func WithProviderName(name string) Option {
	return func(o *options) {
		o.providerName = name
	}
}

// WithBaseURL resolves relative request paths against url.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.headers.Add(key, value)
	}
}

// WithRoundTripper replaces the base transport (tests use httptest's).
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.roundTripper = rt
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}
