package commands

import (
	"net"

	"github.com/kbukum/courier/apiclient"
	"github.com/kbukum/courier/config"
	"github.com/kbukum/courier/errors"
	"github.com/kbukum/courier/httpclient"
	"github.com/kbukum/courier/observability"
	"github.com/kbukum/courier/validation"
	"github.com/kbukum/courier/version"
)

const serviceName = "courier"

// Config is the request command's configuration file.
//
//	name: courier
//	logging:
//	  level: warn
//	client:
//	  base_url: https://httpbin.org
//	  retries: 2
//	http:
//	  timeout: 10s
//	  rate_limiter:
//	    rate: 5
//	    burst: 5
//	tracing:
//	  enabled: true
//	  endpoint: localhost:4318
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Client  apiclient.Config           `yaml:"client" mapstructure:"client"`
	HTTP    httpclient.Config          `yaml:"http" mapstructure:"http"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

func (c *Config) ApplyDefaults() {
	applyServiceDefaults(&c.ServiceConfig)
	c.Client.ApplyDefaults()
	c.HTTP.ApplyDefaults()

	fill := func(name, ver, env *string) {
		if *name == "" {
			*name = c.Name
		}
		if *ver == "" {
			*ver = c.Version
		}
		if *env == "" {
			*env = c.Environment
		}
	}
	fill(&c.Tracing.ServiceName, &c.Tracing.ServiceVersion, &c.Tracing.Environment)
	fill(&c.Metrics.ServiceName, &c.Metrics.ServiceVersion, &c.Metrics.Environment)
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Client.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&c.Tracing); err != nil {
		return errors.InvalidConfig("tracing", err)
	}
	if err := validation.Validate(&c.Metrics); err != nil {
		return errors.InvalidConfig("metrics", err)
	}
	return nil
}

// ServeConfig is the serve command's configuration file.
type ServeConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Addr string `yaml:"addr" mapstructure:"addr" validate:"required"`
}

func (c *ServeConfig) ApplyDefaults() {
	applyServiceDefaults(&c.ServiceConfig)
	if c.Addr == "" {
		c.Addr = "127.0.0.1:8080"
	}
}

func (c *ServeConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return errors.InvalidConfig("serve", err)
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.InvalidConfig("serve", err)
	}
	return nil
}

func applyServiceDefaults(c *config.ServiceConfig) {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.ApplyDefaults()
}

// load reads cfg from the config file and environment, then applies the
// persistent flag overrides. Logs go to stderr at warn so stdout carries
// only the result.
func (o *globalOptions) load(cfg any) error {
	tracing := observability.DefaultTracerConfig(serviceName)
	metrics := observability.DefaultMeterConfig(serviceName)

	opts := []config.LoaderOption{
		config.WithDefault("logging.output", "stderr"),
		config.WithDefault("logging.level", "warn"),
		config.WithDefault("tracing.endpoint", tracing.Endpoint),
		config.WithDefault("tracing.insecure", tracing.Insecure),
		config.WithDefault("tracing.sample_rate", tracing.SampleRate),
		config.WithDefault("metrics.endpoint", metrics.Endpoint),
		config.WithDefault("metrics.insecure", metrics.Insecure),
		config.WithDefault("metrics.interval", metrics.Interval),
	}
	if o.configFile != "" {
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		opts = append(opts, config.WithEnvFile(o.envFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return err
	}

	switch c := cfg.(type) {
	case *Config:
		if o.baseURL != "" {
			c.Client.BaseURL = o.baseURL
		}
		o.applyVerbose(&c.ServiceConfig)
	case *ServeConfig:
		o.applyVerbose(&c.ServiceConfig)
	}
	return nil
}

func (o *globalOptions) applyVerbose(c *config.ServiceConfig) {
	if o.verbose {
		c.Logging.Level = "debug"
	}
}
