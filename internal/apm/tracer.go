// Package apm wires OpenTelemetry tracing into the quoter's components.
package apm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans for one instrumentation scope, resolved against the
// global provider at start time so tests can swap it.
type Tracer struct {
	scope string
}

func NewTracer(scope string) *Tracer {
	return &Tracer{scope: scope}
}

// Start opens a span named op carrying attrs.
func (t *Tracer) Start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := otel.Tracer(t.scope).Start(ctx, op, trace.WithAttributes(attrs...))
	return ctx, &Span{span: span}
}

// Span is a started operation. A nil *Span is a no-op.
type Span struct {
	span   trace.Span
	failed bool
}

func (s *Span) Set(attrs ...attribute.KeyValue) {
	if s != nil {
		s.span.SetAttributes(attrs...)
	}
}

func (s *Span) Event(name string, attrs ...attribute.KeyValue) {
	if s != nil {
		s.span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// Fail records err and marks the span failed; nil errors are ignored.
func (s *Span) Fail(err error) {
	if s == nil || err == nil {
		return
	}
	s.failed = true
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End closes the span, marking it Ok unless Fail was called.
func (s *Span) End() {
	if s == nil {
		return
	}
	if !s.failed {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
