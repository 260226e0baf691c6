// Package version reports build information for the CLI and the transport's
// User-Agent header.
//
//	go build -ldflags "-X github.com/kbukum/courier/version.Version=1.0.0"
package version
