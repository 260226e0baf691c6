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

// Component is a lifecycle-managed piece of infrastructure, such as the
// HTTP transport or the reachability service.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description summarizes a component for the CLI's status output.
type Description struct {
	// Name is the display name; the component's Name() is used when empty.
	Name string
	// Type categorizes the component, e.g. "transport" or "reachability".
	Type string
	// Details is a one-line summary of the configuration.
	Details string
}

// Describable is optionally implemented by components that can describe themselves.
type Describable interface {
	Describe() Description
}
