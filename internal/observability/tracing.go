package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTracerName is the tracer name used when none is configured.
const DefaultTracerName = "github.com/AnatoleLucet/reactive"

// Tracer starts a span per scheduler flush. A nil *Tracer starts nothing.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer resolves name from the global tracer provider.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// NewTracerFromProvider resolves name from provider.
func NewTracerFromProvider(provider trace.TracerProvider, name string) *Tracer {
	return &Tracer{tracer: provider.Tracer(name)}
}

// FlushSpan is the span of a single flush.
type FlushSpan struct {
	span trace.Span
}

func (t *Tracer) StartFlush(runtimeID string, queued int) *FlushSpan {
	if t == nil {
		return nil
	}

	_, span := t.tracer.Start(
		context.Background(),
		"reactive.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("reactive.runtime_id", runtimeID),
			attribute.Int("reactive.queued", queued),
		),
	)

	return &FlushSpan{span: span}
}

// End records how many watchers ran and whether the flush failed.
func (s *FlushSpan) End(ran int, err error) {
	if s == nil {
		return
	}

	s.span.SetAttributes(attribute.Int("reactive.watchers_run", ran))
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}

	s.span.End()
}
