package httpclient

import (
	"context"
	"fmt"

	"github.com/kbukum/courier/component"
)

// Component manages a Transport's lifecycle in a component.Registry.
// The transport is created in Start.
type Component struct {
	transport *Transport
	config    Config
	opts      []Option
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a transport component.
func NewComponent(cfg Config, opts ...Option) *Component {
	return &Component{config: cfg, opts: opts}
}

func (c *Component) Name() string {
	if c.config.Name == "" {
		return "http"
	}
	return c.config.Name
}

func (c *Component) Start(_ context.Context) error {
	t, err := New(c.config, c.opts...)
	if err != nil {
		return err
	}
	c.transport = t
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	if c.transport != nil {
		return c.transport.Close(ctx)
	}
	return nil
}

// Health is unhealthy before Start and degraded while the breaker is open.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.transport == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	case !c.transport.IsAvailable(ctx):
		h.Status = component.StatusDegraded
		h.Message = "circuit breaker open"
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("timeout=%s", c.config.Timeout)
	if c.config.Timeout == 0 {
		details = fmt.Sprintf("timeout=%s", defaultTimeout)
	}
	if c.config.CircuitBreaker != nil {
		details += " breaker=on"
	}
	if c.config.RateLimiter != nil {
		details += fmt.Sprintf(" rate=%g/s", c.config.RateLimiter.Rate)
	}
	return component.Description{
		Name:    c.Name(),
		Type:    "transport",
		Details: details,
	}
}

// Transport returns the transport. It is nil before Start.
func (c *Component) Transport() *Transport {
	return c.transport
}
