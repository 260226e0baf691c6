package apiclient

import (
	"context"
	"sync"

	"github.com/kbukum/courier/resilience"
)

// Retry re-subscribes to p after a transport failure, up to retries extra
// times. Every attempt is a fresh subscription, so headers are rebuilt.
// Other failures and the final transport failure are passed through.
//
// cfg supplies the delay between attempts; its MaxAttempts is replaced and
// its RetryIf is narrowed to transport errors.
func Retry[T any](p Publisher[T], retries int, cfg resilience.RetryConfig) Publisher[T] {
	if retries < 0 {
		retries = 0
	}
	cfg.MaxAttempts = retries + 1
	retryIf := cfg.RetryIf
	cfg.RetryIf = func(err error) bool {
		return IsTransport(err) && (retryIf == nil || retryIf(err))
	}

	return PublisherFunc[T](func(sub Subscriber[T]) {
		ctx, cancel := context.WithCancel(context.Background())
		s := &retrySubscription[T]{
			upstream: p,
			cfg:      cfg,
			ctx:      ctx,
			cancel:   cancel,
			sub:      sub,
		}
		sub.OnSubscribe(s)
	})
}

type retrySubscription[T any] struct {
	upstream Publisher[T]
	cfg      resilience.RetryConfig
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	sub     Subscriber[T]
	started bool
	done    bool
}

func (s *retrySubscription[T]) Request(n int64) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.started {
		return
	}
	s.started = true
	go s.run()
}

func (s *retrySubscription[T]) run() {
	v, err := resilience.Retry(s.ctx, s.cfg, func(int) (T, error) {
		return First(s.ctx, s.upstream)
	})

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	sub := s.finish()
	s.mu.Unlock()

	if err != nil {
		sub.OnComplete(err)
		return
	}
	sub.OnNext(v)
	sub.OnComplete(nil)
}

// Cancel stops the current attempt and prevents any further one, including
// one waiting out the backoff.
func (s *retrySubscription[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.finish()
	}
}

func (s *retrySubscription[T]) finish() Subscriber[T] {
	sub := s.sub
	s.sub = nil
	s.done = true
	s.cancel()
	return sub
}
