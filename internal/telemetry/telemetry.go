// Package telemetry wires the engine's pipeline to OpenTelemetry tracing.
// internal/cygraph opens one span for parsing ("cygraph.parse") and one for
// execution ("cygraph.execute"); transform, CSR load and algorithm runs have
// no spans of their own.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/orneryd/cygraph"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan opens a span named stage under ctx; the caller must call the
// returned end func exactly once (typically deferred).
func StartSpan(ctx context.Context, stage string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, span := tracer().Start(ctx, stage, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}
}
