package httpclient

import (
	"time"

	"github.com/kbukum/courier/errors"
	"github.com/kbukum/courier/resilience"
	"github.com/kbukum/courier/security"
	"github.com/kbukum/courier/validation"
	"github.com/kbukum/courier/version"
)

const defaultTimeout = 30 * time.Second

// TLSConfig is the client TLS configuration.
type TLSConfig = security.TLSConfig

// Config configures the HTTP transport.
type Config struct {
	// Name identifies the transport in logs and health output. Defaults to "http".
	Name string `yaml:"name" mapstructure:"name"`

	// Timeout bounds a whole exchange, including reading the body. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// UserAgent is sent unless the exchange sets its own. Defaults to courier/<version>.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Headers are sent with every exchange; exchange headers win.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Cookies keeps a cookie jar across exchanges.
	Cookies bool `yaml:"cookies" mapstructure:"cookies"`

	TLS  *TLSConfig  `yaml:"tls" mapstructure:"tls"`
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`

	// CircuitBreaker trips on consecutive network failures. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimiter paces exchanges. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"rate_limiter" mapstructure:"rate_limiter"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "http"
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = version.UserAgent()
	}
	if c.CircuitBreaker != nil && c.CircuitBreaker.Name == "" {
		c.CircuitBreaker.Name = c.Name
	}
	if c.RateLimiter != nil && c.RateLimiter.Name == "" {
		c.RateLimiter.Name = c.Name
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return errors.InvalidConfig("tls", err)
		}
	}
	if err := c.Auth.validate(); err != nil {
		return errors.InvalidConfig("auth", err)
	}
	return nil
}

// DefaultCircuitBreakerConfig returns the resilience defaults named for a transport.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}
