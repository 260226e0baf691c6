package bootstrap

import "github.com/kbukum/courier/config"

// Config is satisfied by any struct embedding config.ServiceConfig by value:
//
//	type CLIConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Client apiclient.Config `yaml:"client" mapstructure:"client"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
