// Package observability provides OpenTelemetry tracing and metrics for build
// runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("wmorder"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanUnit)
//	defer span.End()
//
// Metrics:
//
//	metrics, err := observability.NewBuildMetrics(observability.Meter("wmorder"))
//	metrics.RecordUnitEnd(ctx, "LIB", "ok", duration)
//
// Telemetry wraps both providers as a component.Component so the exporters
// are flushed when the application stops.
package observability
