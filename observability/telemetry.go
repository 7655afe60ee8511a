package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/multierr"

	"github.com/kbukum/wmorder/component"
)

// Config is the telemetry section of the application configuration.
type Config struct {
	Tracing    bool          `mapstructure:"tracing" json:"tracing"`
	Metrics    bool          `mapstructure:"metrics" json:"metrics"`
	Endpoint   string        `mapstructure:"endpoint" json:"endpoint" validate:"required_if=Tracing true,required_if=Metrics true"`
	Insecure   bool          `mapstructure:"insecure" json:"insecure"`
	SampleRate float64       `mapstructure:"sample_rate" json:"sample_rate" validate:"gte=0,lte=1"`
	Interval   time.Duration `mapstructure:"interval" json:"interval" validate:"gte=0"`
}

// ApplyDefaults fills unset telemetry settings.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.Interval == 0 {
		c.Interval = 15 * time.Second
	}
}

// Enabled reports whether any exporter is configured.
func (c Config) Enabled() bool { return c.Tracing || c.Metrics }

// Telemetry owns the tracer and meter providers for one process. It is
// registered as a component so its exporters are flushed on shutdown.
type Telemetry struct {
	cfg     Config
	service string
	version string
	env     string

	mu      sync.Mutex
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *BuildMetrics
}

var (
	_ component.Component   = (*Telemetry)(nil)
	_ component.Describable = (*Telemetry)(nil)
)

// NewTelemetry creates the telemetry component. Nothing is exported until
// Start is called.
func NewTelemetry(cfg Config, service, version, environment string) *Telemetry {
	return &Telemetry{cfg: cfg, service: service, version: version, env: environment}
}

// Name implements component.Component.
func (t *Telemetry) Name() string { return "telemetry" }

// Describe implements component.Describable.
func (t *Telemetry) Describe() component.Description {
	return component.Description{
		Name:    "Telemetry",
		Type:    "otlp",
		Details: fmt.Sprintf("%s tracing=%t metrics=%t", t.cfg.Endpoint, t.cfg.Tracing, t.cfg.Metrics),
	}
}

// Start initializes the enabled providers and the build instruments.
func (t *Telemetry) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cfg.Tracing {
		tp, err := InitTracer(ctx, TracerConfig{
			ServiceName:    t.service,
			ServiceVersion: t.version,
			Environment:    t.env,
			Endpoint:       t.cfg.Endpoint,
			Insecure:       t.cfg.Insecure,
			SampleRate:     t.cfg.SampleRate,
		})
		if err != nil {
			return err
		}
		t.tp = tp
	}

	if t.cfg.Metrics {
		mp, err := InitMeter(ctx, &MeterConfig{
			ServiceName:    t.service,
			ServiceVersion: t.version,
			Environment:    t.env,
			Endpoint:       t.cfg.Endpoint,
			Insecure:       t.cfg.Insecure,
			Interval:       t.cfg.Interval,
		})
		if err != nil {
			return err
		}
		t.mp = mp
	}

	metrics, err := NewBuildMetrics(Meter(defaultTracerName))
	if err != nil {
		return err
	}
	t.metrics = metrics
	return nil
}

// Stop flushes and shuts down both providers, combining their errors.
func (t *Telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.tp != nil {
		err = multierr.Append(err, t.tp.Shutdown(ctx))
		t.tp = nil
	}
	if t.mp != nil {
		err = multierr.Append(err, t.mp.Shutdown(ctx))
		t.mp = nil
	}
	return err
}

// Health implements component.Component.
func (t *Telemetry) Health(_ context.Context) component.Health {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.metrics == nil {
		return component.Health{Name: t.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}

// Metrics returns the build instruments, or nil before Start.
func (t *Telemetry) Metrics() *BuildMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}
