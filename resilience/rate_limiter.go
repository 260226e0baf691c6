package resilience

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned by Execute when no token is available.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Name identifies this limiter in logs.
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is the number of exchanges allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the bucket size. Defaults to the rate rounded up.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// OnLimit is called when a call has to wait or is rejected.
	OnLimit func(name string) `yaml:"-" mapstructure:"-"`
}

// RateLimiter paces outgoing exchanges with a token bucket.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter. A non-positive rate disables limiting.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	limit := rate.Inf
	if config.Rate > 0 {
		limit = rate.Limit(config.Rate)
		if config.Burst <= 0 {
			config.Burst = int(config.Rate)
			if float64(config.Burst) < config.Rate {
				config.Burst++
			}
		}
	}
	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(limit, config.Burst),
	}
}

// Allow reports whether one call may proceed now, consuming a token if so.
func (rl *RateLimiter) Allow() bool {
	if rl.limiter.Allow() {
		return true
	}
	rl.limited()
	return false
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limiter.Allow() {
		return nil
	}
	rl.limited()
	return rl.limiter.Wait(ctx)
}

// Execute runs fn if a token is available, otherwise returns ErrRateLimited.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// ExecuteWait blocks for a token, then runs fn.
func (rl *RateLimiter) ExecuteWait(ctx context.Context, fn func() error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// Rate returns the configured rate; zero means unlimited.
func (rl *RateLimiter) Rate() float64 {
	return rl.config.Rate
}

// Burst returns the bucket size.
func (rl *RateLimiter) Burst() int {
	return rl.config.Burst
}

func (rl *RateLimiter) limited() {
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
}
