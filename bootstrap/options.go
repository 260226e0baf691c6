package bootstrap

import (
	"time"

	"github.com/kbukum/courier/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
}

func resolveOptions(opts []Option) appOptions {
	o := appOptions{gracefulTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger replaces the logger built from the config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds how long shutdown may take.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = d }
}
