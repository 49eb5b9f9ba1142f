// Package tracing exports run traces over OTLP/HTTP. Each run is a root
// span and each step a child span, so a fleet of image builds can be
// inspected in whatever backend collects the traces. Tracing is a side
// channel: no otel types leak into the core runner, and a disabled
// endpoint means zero instrumentation.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"goldrun"
	"goldrun/internal/support/buildinfo"
)

const tracerName = "goldrun"

// Setup installs a global tracer provider exporting to the given OTLP
// HTTP endpoint. The returned shutdown flushes pending spans.
func Setup(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", "goldrun"),
		attribute.String("service.version", buildinfo.Version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// StartRun opens the root span for a run. End it with the report's
// outcome once the run finishes.
func StartRun(ctx context.Context, plan string) (context.Context, func(outcome goldrun.Outcome)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "run "+plan,
		trace.WithAttributes(attribute.String("goldrun.plan", plan)))
	return ctx, func(outcome goldrun.Outcome) {
		span.SetAttributes(attribute.String("goldrun.outcome", string(outcome)))
		if outcome != goldrun.OutcomeCompleted {
			span.SetStatus(codes.Error, string(outcome))
		}
		span.End()
	}
}

// Wrap decorates each step's action with a child span. Span parentage
// comes from the context the runner passes into actions, so wrapped
// steps nest under the StartRun span.
func Wrap(steps []goldrun.Step) []goldrun.Step {
	tracer := otel.Tracer(tracerName)
	wrapped := make([]goldrun.Step, len(steps))
	for i, s := range steps {
		inner := s.Action
		ignorable := s.Ignorable
		wrapped[i] = goldrun.Step{
			Label:     s.Label,
			Ignorable: s.Ignorable,
			Action: func(ctx context.Context) (string, error) {
				ctx, span := tracer.Start(ctx, s.Label,
					trace.WithAttributes(attribute.Bool("goldrun.step.ignorable", ignorable)))
				defer span.End()

				out, err := inner(ctx)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				return out, err
			},
		}
	}
	return wrapped
}
