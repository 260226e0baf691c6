// Package config loads YAML configuration with viper, applies .env files
// with godotenv, and lets prefixed environment variables override any key.
//
// # Usage
//
//	var cfg struct {
//	    config.ServiceConfig `mapstructure:",squash"`
//	    Client apiclient.Config `mapstructure:"client"`
//	}
//	err := config.LoadConfig("courier", &cfg, config.WithConfigFile("courier.yml"))
//
// COURIER_CLIENT_WORKERS=8 then overrides client.workers.
package config
