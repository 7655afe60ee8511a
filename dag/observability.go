package dag

import (
	"context"
	"time"

	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/logger"
	"github.com/kbukum/wmorder/observability"
	"github.com/kbukum/wmorder/unit"
)

// WithTracing wraps an Invoker with OpenTelemetry span creation.
// Each build creates a span named observability.SpanUnit.
func WithTracing(inv Invoker) Invoker {
	return &tracingInvoker{inner: inv}
}

type tracingInvoker struct {
	inner Invoker
}

func (t *tracingInvoker) Invoke(ctx context.Context, u unit.Unit) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanUnit)
	defer span.End()

	observability.SetSpanAttribute(ctx, observability.AttrUnit, u.Dir)
	observability.SetSpanAttribute(ctx, observability.AttrKind, u.Kind.String())
	observability.SetSpanAttribute(ctx, observability.AttrOutput, u.Output)
	if runID := logger.RunIDFromContext(ctx); runID != "" {
		observability.SetSpanAttribute(ctx, observability.AttrRunID, runID)
	}

	err := t.inner.Invoke(ctx, u)
	if err != nil {
		observability.SetSpanError(ctx, err)
		if appErr, ok := errors.AsAppError(err); ok {
			if code, ok := appErr.Details["exit_code"].(int); ok {
				observability.SetSpanAttribute(ctx, observability.AttrExitCode, code)
			}
			if attempts, ok := appErr.Details["attempts"].(int); ok {
				observability.SetSpanAttribute(ctx, observability.AttrAttempts, attempts)
			}
		}
	}
	return err
}

// WithMetrics wraps an Invoker with metric recording.
// Records active units, build count, duration and failures.
func WithMetrics(inv Invoker, metrics *observability.BuildMetrics) Invoker {
	if metrics == nil {
		return inv
	}
	return &metricsInvoker{inner: inv, metrics: metrics}
}

type metricsInvoker struct {
	inner   Invoker
	metrics *observability.BuildMetrics
}

func (m *metricsInvoker) Invoke(ctx context.Context, u unit.Unit) error {
	m.metrics.RecordUnitStart(ctx)
	start := time.Now()
	err := m.inner.Invoke(ctx, u)
	duration := time.Since(start)

	status := string(StatusSucceeded)
	if err != nil {
		status = string(StatusFailed)
		code := string(errors.ErrCodeInternal)
		if appErr, ok := errors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		m.metrics.RecordFailure(ctx, code)
	}
	m.metrics.RecordUnitEnd(ctx, u.Kind.String(), status, duration)
	return err
}

// WithLogging wraps an Invoker with build logging.
// Logs: unit, kind, duration, and success/error status.
func WithLogging(inv Invoker, log *logger.Logger) Invoker {
	return &loggingInvoker{inner: inv, log: log}
}

type loggingInvoker struct {
	inner Invoker
	log   *logger.Logger
}

func (l *loggingInvoker) Invoke(ctx context.Context, u unit.Unit) error {
	log := l.log.WithContext(ctx)
	fields := logger.Fields(
		logger.FieldUnit, u.Dir,
		logger.FieldKind, u.Kind.String(),
		logger.FieldOutput, u.Output,
	)
	log.Info("building unit", fields)

	start := time.Now()
	err := l.inner.Invoke(ctx, u)
	fields = logger.MergeWithDuration(fields, time.Since(start))

	if err != nil {
		log.Error("unit build failed", logger.MergeWithError(fields, err))
	} else {
		log.Info("unit built", fields)
	}
	return err
}
