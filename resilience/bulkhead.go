package resilience

import (
	"context"
	"errors"
	"time"
)

// Bulkhead errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead in logs.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxConcurrent is the number of slots.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait bounds the wait for a slot. Zero fails immediately when full,
	// a negative value waits until a slot frees or the context is done.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`

	OnReject  func(name string) `yaml:"-" mapstructure:"-"`
	OnAcquire func(name string) `yaml:"-" mapstructure:"-"`
	OnRelease func(name string) `yaml:"-" mapstructure:"-"`
}

// Bulkhead limits how many calls run at once.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a bulkhead. MaxConcurrent defaults to 10.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.enter(ctx); err != nil {
		return err
	}
	defer b.leave()
	return fn()
}

// Go runs fn on a new goroutine once a slot is free. It blocks only for the
// slot; the returned error is non-nil when no slot could be acquired, in
// which case fn never runs.
func (b *Bulkhead) Go(ctx context.Context, fn func()) error {
	if err := b.enter(ctx); err != nil {
		return err
	}
	go func() {
		defer b.leave()
		fn()
	}()
	return nil
}

// ExecuteWithResult runs a function that returns a value inside the bulkhead.
func ExecuteWithResult[T any](b *Bulkhead, ctx context.Context, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

func (b *Bulkhead) enter(ctx context.Context) error {
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return err
	}
	if b.config.OnAcquire != nil {
		b.config.OnAcquire(b.config.Name)
	}
	return nil
}

func (b *Bulkhead) leave() {
	<-b.sem
	if b.config.OnRelease != nil {
		b.config.OnRelease(b.config.Name)
	}
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	switch {
	case b.config.MaxWait == 0:
		return ErrBulkheadFull
	case b.config.MaxWait < 0:
		select {
		case b.sem <- struct{}{}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Available returns the number of free slots.
func (b *Bulkhead) Available() int {
	return b.config.MaxConcurrent - len(b.sem)
}

// InUse returns the number of occupied slots.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// MaxConcurrent returns the slot count.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
