package apiclient

import (
	"context"
	"errors"
	"sync"
)

// Publisher is a cold source: nothing happens until a subscriber signals
// demand through its Subscription.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T])
}

// Subscriber receives at most one value followed by exactly one completion.
// OnComplete(nil) means the publisher finished normally.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(v T)
	OnComplete(err error)
}

// Subscription links a subscriber to its publisher.
type Subscription interface {
	// Request signals demand for n more values. Non-positive n is ignored.
	Request(n int64)
	// Cancel stops the publisher. It is idempotent and one-way.
	Cancel()
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc[T any] func(s Subscriber[T])

func (f PublisherFunc[T]) Subscribe(s Subscriber[T]) { f(s) }

var errNoValue = errors.New("apiclient: publisher completed without a value")

// First subscribes to p, demands one value and blocks until p completes.
// When ctx ends first the subscription is cancelled and a cancelled error is
// returned.
func First[T any](ctx context.Context, p Publisher[T]) (T, error) {
	s := &awaitSubscriber[T]{done: make(chan struct{})}
	p.Subscribe(s)

	select {
	case <-s.done:
		return s.result()
	case <-ctx.Done():
		s.cancel()
		var zero T
		return zero, cancelledError(ctx.Err())
	}
}

type awaitSubscriber[T any] struct {
	mu    sync.Mutex
	sub   Subscription
	value T
	has   bool
	err   error
	once  sync.Once
	done  chan struct{}
}

func (s *awaitSubscriber[T]) OnSubscribe(sub Subscription) {
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	sub.Request(1)
}

func (s *awaitSubscriber[T]) OnNext(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		s.value, s.has = v, true
	}
}

func (s *awaitSubscriber[T]) OnComplete(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *awaitSubscriber[T]) result() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		var zero T
		return zero, s.err
	}
	if !s.has {
		var zero T
		return zero, errNoValue
	}
	return s.value, nil
}

func (s *awaitSubscriber[T]) cancel() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// funcSubscriber forwards the single outcome of a publisher to fn.
type funcSubscriber[T any] struct {
	onSubscribe func(Subscription)
	fn          func(T, error)

	mu    sync.Mutex
	value T
	has   bool
	done  bool
}

func (s *funcSubscriber[T]) OnSubscribe(sub Subscription) {
	if s.onSubscribe != nil {
		s.onSubscribe(sub)
	}
}

func (s *funcSubscriber[T]) OnNext(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		s.value, s.has = v, true
	}
}

func (s *funcSubscriber[T]) OnComplete(err error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	v, has := s.value, s.has
	s.mu.Unlock()

	if err == nil && !has {
		err = errNoValue
	}
	s.fn(v, err)
}
