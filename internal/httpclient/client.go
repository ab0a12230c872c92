package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultDialKeepAlive   = 10 * time.Second
	defaultMaxConnsPerHost = 16
	defaultIdleConnTimeout = 2 * time.Minute
	maxErrorBody           = 4 << 10
)

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpclient: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client performs JSON requests against one upstream.
type Client struct {
	http     *http.Client
	baseURL  string
	headers  http.Header
	name     string
	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// New creates an instrumented client.
func New(opts ...Option) (*Client, error) {
	o := &options{headers: make(http.Header), timeout: defaultTimeout, providerName: "default"}
	for _, opt := range opts {
		opt(o)
	}

	base := o.roundTripper
	if base == nil {
		base = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			DialContext:     (&net.Dialer{KeepAlive: defaultDialKeepAlive}).DialContext,
			MaxConnsPerHost: defaultMaxConnsPerHost,
			IdleConnTimeout: defaultIdleConnTimeout,
		}
	}
	transport := otelhttp.NewTransport(base,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	mp := o.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter("httpclient")

	requests, err := meter.Int64Counter("http_client_requests_total",
		metric.WithDescription("Upstream HTTP requests by provider and outcome"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("http_client_request_duration_seconds",
		metric.WithDescription("Upstream HTTP request latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer("httpclient")
	}

	return &Client{
		http:     &http.Client{Transport: transport, Timeout: o.timeout},
		baseURL:  strings.TrimSuffix(o.baseURL, "/"),
		headers:  o.headers,
		name:     o.providerName,
		tracer:   tracer,
		requests: requests,
		latency:  latency,
	}, nil
}

// GetJSON issues GET path?query and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.resolve(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	ctx, span := c.tracer.Start(ctx, "http.get", trace.WithAttributes(
		attribute.String("http.url", target),
		attribute.String("provider", c.name),
	))
	defer span.End()

	start := time.Now()
	err := c.getJSON(ctx, target, out)
	c.record(ctx, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("httpclient: build request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpclient: decode %s response: %w", c.name, err)
	}
	return nil
}

func (c *Client) resolve(path string) string {
	if c.baseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) record(ctx context.Context, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider", c.name),
		attribute.Bool("success", err == nil),
	)
	c.requests.Add(ctx, 1, attrs)
	c.latency.Record(ctx, time.Since(start).Seconds(), attrs)
}
