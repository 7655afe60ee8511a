package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/wmorder/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (local, ci).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows plain HTTP to the collector.
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "local",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("telemetry").Info("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric instrument names.
const (
	MetricUnitsTotal    = "build.units.total"
	MetricUnitDuration  = "build.unit.duration"
	MetricUnitsActive   = "build.units.active"
	MetricFailuresTotal = "build.failures.total"
)

// BuildMetrics holds the instruments recorded while units are built.
type BuildMetrics struct {
	unitsTotal    metric.Int64Counter
	unitDuration  metric.Float64Histogram
	unitsActive   metric.Int64UpDownCounter
	failuresTotal metric.Int64Counter
}

// NewBuildMetrics creates the build instruments on the given meter.
func NewBuildMetrics(meter metric.Meter) (*BuildMetrics, error) {
	unitsTotal, err := meter.Int64Counter(MetricUnitsTotal,
		metric.WithDescription("Units whose build finished, by kind and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricUnitsTotal, err)
	}

	unitDuration, err := meter.Float64Histogram(MetricUnitDuration,
		metric.WithDescription("Duration of a single unit build in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricUnitDuration, err)
	}

	unitsActive, err := meter.Int64UpDownCounter(MetricUnitsActive,
		metric.WithDescription("Units currently being built"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricUnitsActive, err)
	}

	failuresTotal, err := meter.Int64Counter(MetricFailuresTotal,
		metric.WithDescription("Failed unit builds by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricFailuresTotal, err)
	}

	return &BuildMetrics{
		unitsTotal:    unitsTotal,
		unitDuration:  unitDuration,
		unitsActive:   unitsActive,
		failuresTotal: failuresTotal,
	}, nil
}

// RecordUnitStart increments the active unit count.
func (m *BuildMetrics) RecordUnitStart(ctx context.Context) {
	m.unitsActive.Add(ctx, 1)
}

// RecordUnitEnd decrements active units and records the finished build.
func (m *BuildMetrics) RecordUnitEnd(ctx context.Context, kind, status string, duration time.Duration) {
	m.unitsActive.Add(ctx, -1)
	m.unitsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	m.unitDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordFailure counts a failed unit build by error code.
func (m *BuildMetrics) RecordFailure(ctx context.Context, code string) {
	m.failuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
	))
}
