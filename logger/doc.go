// Package logger provides structured logging on top of zerolog.
//
// Loggers are values: the client, the transport and the reachability service
// each receive one and derive component-scoped children from it.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.New(cfg.Logging, "courier").WithComponent("apiclient")
//	log.Debug("attempt failed", logger.Fields(logger.FieldAttempt, 2))
package logger
