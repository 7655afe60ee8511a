package dag

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/wmorder/errors"
	"github.com/kbukum/wmorder/logger"
	"github.com/kbukum/wmorder/observability"
	"github.com/kbukum/wmorder/unit"
)

var libFoo = unit.Unit{Dir: "/src/foo", Kind: unit.Library, Output: "libfoo"}

func failing(code int) Invoker {
	return InvokerFunc(func(_ context.Context, u unit.Unit) error {
		return errors.BuildFailure(u.Dir, code, nil)
	})
}

func TestWithTracing(t *testing.T) {
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx := logger.ContextWithRunID(context.Background(), "run-7")
	if err := WithTracing(Noop).Invoke(ctx, libFoo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := WithTracing(failing(3)).Invoke(ctx, libFoo); err == nil {
		t.Fatal("expected error to pass through")
	}

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	attrs := map[string]string{}
	for _, kv := range spans[1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[observability.AttrUnit] != "/src/foo" || attrs[observability.AttrKind] != "LIB" {
		t.Errorf("unexpected attributes: %v", attrs)
	}
	if attrs[observability.AttrRunID] != "run-7" {
		t.Errorf("expected run id attribute, got %v", attrs)
	}
	if attrs[observability.AttrExitCode] != "3" {
		t.Errorf("expected exit code 3, got %q", attrs[observability.AttrExitCode])
	}
	if spans[0].Status().Code == codes.Error || spans[1].Status().Code != codes.Error {
		t.Errorf("unexpected span statuses: %v / %v", spans[0].Status(), spans[1].Status())
	}
}

func TestWithMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := observability.NewBuildMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = WithMetrics(Noop, metrics).Invoke(ctx, libFoo)
	_ = WithMetrics(failing(1), metrics).Invoke(ctx, libFoo)

	if inv := WithMetrics(Noop, nil); inv == nil {
		t.Error("expected nil metrics to return the inner invoker")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	var failures int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != observability.MetricFailuresTotal {
				continue
			}
			for _, dp := range md.Data.(metricdata.Sum[int64]).DataPoints {
				failures += dp.Value
				if code, _ := dp.Attributes.Value("code"); code.AsString() != string(errors.ErrCodeBuildFailure) {
					t.Errorf("expected BUILD_FAILURE code, got %q", code.AsString())
				}
			}
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 failure recorded, got %d", failures)
	}
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Writer: &buf}, "wmorder")

	_ = WithLogging(Noop, log).Invoke(context.Background(), libFoo)
	_ = WithLogging(failing(2), log).Invoke(context.Background(), libFoo)

	out := buf.String()
	for _, want := range []string{"building unit", "unit built", "unit build failed", `"unit":"/src/foo"`, `"duration_ms"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output:\n%s", want, out)
		}
	}
}
