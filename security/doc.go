// Package security builds client TLS configuration for the HTTP transport.
//
//	cfg := security.TLSConfig{CAFile: "/etc/courier/ca.pem", MinVersion: "1.3"}
//	tlsConfig, err := cfg.Build()
package security
