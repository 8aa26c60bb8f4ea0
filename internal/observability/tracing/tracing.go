// Package tracing wraps each suspension point of the Reconcile Orchestrator
// (spec.md §5) in an OpenTelemetry span: the places a reconcile calls out to
// something slower or less reliable than the object store itself — a
// metrics backend query, an advisor consultation, an A/B statistical
// evaluation. With no SDK configured the global TracerProvider is the
// no-op one OpenTelemetry ships by default, so every span here costs
// nothing until a real exporter is wired into main.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/false-systems/kulta/internal/controller"

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartReconcile opens the span for one full Reconcile invocation. The
// strategy kind is set on the span later, via SetStrategy, once the
// rollout has been fetched and dispatched.
func StartReconcile(ctx context.Context, namespace, name string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "rollout.reconcile",
		trace.WithAttributes(
			attribute.String("rollout.namespace", namespace),
			attribute.String("rollout.name", name),
		),
	)
}

// SetStrategy records the dispatched strategy kind on span.
func SetStrategy(span trace.Span, kind string) {
	span.SetAttributes(attribute.String("rollout.strategy", kind))
}

// StartMetricAnalysis opens the span around a Metric Analyzer query, the
// suspension point spec.md §4.7 describes waiting on an external metrics
// backend.
func StartMetricAnalysis(ctx context.Context, metric string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "rollout.metric_analysis",
		trace.WithAttributes(attribute.String("rollout.metric", metric)),
	)
}

// StartAdvisorConsultation opens the span around a call to an external
// advisor endpoint (spec.md §4.9).
func StartAdvisorConsultation(ctx context.Context, level string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "rollout.advisor_consultation",
		trace.WithAttributes(attribute.String("rollout.advisor_level", level)),
	)
}

// StartABEvaluation opens the span around an A/B experiment's statistical
// conclusion check (spec.md §4.10).
func StartABEvaluation(ctx context.Context, experiment string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "rollout.ab_evaluation",
		trace.WithAttributes(attribute.String("rollout.experiment", experiment)),
	)
}

// End records err on span (if non-nil) and closes it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
