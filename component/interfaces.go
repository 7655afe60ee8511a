package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a resource with a run-long lifetime, such as the history
// database or the telemetry exporters.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start opens the resource.
	Start(ctx context.Context) error

	// Stop flushes and releases the resource.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description is a one-line self report logged when a component starts.
type Description struct {
	// Name is the human-readable display name. If empty, Name() is used.
	Name string
	// Type categorizes the component: "sqlite", "otlp", ...
	Type string
	// Details is a short configuration summary, e.g. a file path or endpoint.
	Details string
}

// Describable is optionally implemented by Components to describe
// themselves in the startup log.
type Describable interface {
	Describe() Description
}
