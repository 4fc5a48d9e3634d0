package sink

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/psantana5/exectime/pkg/timing"
)

// TracingSink turns each result into a span named after its label. The span
// is created after the fact with the result's own start and end stamps.
type TracingSink struct {
	tracer trace.Tracer
}

// NewTracing creates a sink emitting spans through tracer.
func NewTracing(tracer trace.Tracer) *TracingSink {
	return &TracingSink{tracer: tracer}
}

// Write implements timing.Sink.
func (s *TracingSink) Write(r timing.Result) {
	_, span := s.tracer.Start(context.Background(), r.Label,
		trace.WithTimestamp(r.StartedAt),
		trace.WithAttributes(
			attribute.String("exectime.label", r.Label),
			attribute.String("exectime.outcome", string(r.Outcome)),
			attribute.Float64("exectime.duration_ms", r.Milliseconds()),
		),
	)
	if r.Failed() {
		if r.Err != nil {
			span.RecordError(r.Err, trace.WithTimestamp(r.CompletedAt))
		}
		span.SetAttributes(attribute.Bool("exectime.canceled", r.Canceled))
		span.SetStatus(codes.Error, r.ErrorMessage())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(r.CompletedAt))
}
