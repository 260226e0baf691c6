package apiclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/courier/deserialize"
)

// Execute runs req and delivers the decoded result to completion exactly
// once, on the client's completion executor.
//
// Transport failures are retried up to retries more times. Cancelling ctx or
// the returned Operation resolves it with ErrCancelled unless a result was
// already delivered. progress may be nil.
func Execute[T any](ctx context.Context, c *Client, req Request, retries int, d deserialize.Deserializer[T], progress ProgressFunc, completion func(T, error)) *Operation {
	op := c.newOperation(ctx, req, progress)

	deliver := func(v T, err error) {
		if !op.claim() {
			return
		}
		op.finish(err)
		c.executor.Execute(func() {
			defer close(op.done)
			completion(v, err)
		})
	}
	fail := func(err error) {
		var zero T
		deliver(zero, err)
	}

	if !c.register(op) {
		fail(cancelledError(fmt.Errorf("client is closed")))
		return op
	}
	// Armed after register so a cancellation that fires at once still
	// finds the operation in the table when it deregisters.
	op.watch(ctx, func() { fail(cancelledError(context.Cause(ctx))) })
	if ctx.Err() != nil {
		fail(cancelledError(context.Cause(ctx)))
		return op
	}
	if c.unreachable() {
		fail(unreachableNetworkError())
		return op
	}
	if err := req.Validate(); err != nil {
		fail(invalidRequestError(err))
		return op
	}

	pub := Retry(c.publisher(op, req), retries, c.retryConfig(op))
	pub.Subscribe(&funcSubscriber[*Envelope]{
		onSubscribe: func(sub Subscription) {
			op.attach(sub)
			sub.Request(1)
		},
		fn: func(env *Envelope, err error) {
			if err != nil {
				fail(err)
				return
			}
			if err := c.workers.Go(op.ctx, func() {
				deliver(decode(env, req.ErrorKeyPath, d))
			}); err != nil {
				fail(cancelledError(err))
			}
		},
	})
	return op
}

// ExecuteRequest runs r with the deserializer it declares.
func ExecuteRequest[T any](ctx context.Context, c *Client, r DeserializableRequest[T], retries int, progress ProgressFunc, completion func(T, error)) *Operation {
	return Execute(ctx, c, r.APIRequest(), retries, r.Deserializer(), progress, completion)
}

// decode gates env and decodes the admitted payload. A panicking
// deserializer is reported as a deserialization error.
func decode[T any](env *Envelope, errorKeyPath []string, d deserialize.Deserializer[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, deserializationError(fmt.Errorf("deserializer panicked: %v", r))
		}
	}()

	payload, err := Gate(env, errorKeyPath)
	if err != nil {
		return v, err
	}
	v, err = d.Deserialize(payload)
	if err != nil {
		var zero T
		return zero, deserializationError(err)
	}
	return v, nil
}

type result[T any] struct {
	value T
	err   error
}

// Do runs req and blocks until it resolves. Cancelling ctx cancels the
// operation itself and returns its cancelled error.
func Do[T any](ctx context.Context, c *Client, req Request, retries int, d deserialize.Deserializer[T], progress ProgressFunc) (T, error) {
	ch := make(chan result[T], 1)
	op := Execute(ctx, c, req, retries, d, progress, func(v T, err error) {
		ch <- result[T]{v, err}
	})

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		op.Cancel()
		r := <-ch
		return r.value, r.err
	}
}

// DoRequest is Do with the deserializer r declares.
func DoRequest[T any](ctx context.Context, c *Client, r DeserializableRequest[T], retries int, progress ProgressFunc) (T, error) {
	return Do(ctx, c, r.APIRequest(), retries, r.Deserializer(), progress)
}

// ResponsePublisher is the publisher form of Execute. It is cold: each
// subscription runs its own operation once demand arrives, and cancelling
// the subscription cancels that operation.
func ResponsePublisher[T any](c *Client, req Request, retries int, d deserialize.Deserializer[T], progress ProgressFunc) Publisher[T] {
	return PublisherFunc[T](func(sub Subscriber[T]) {
		s := &responseSubscription[T]{sub: sub}
		s.start = func() *Operation {
			return Execute(context.Background(), c, req, retries, d, progress, s.complete)
		}
		sub.OnSubscribe(s)
	})
}

type responseSubscription[T any] struct {
	start func() *Operation

	mu      sync.Mutex
	sub     Subscriber[T]
	op      *Operation
	started bool
	done    bool
}

func (s *responseSubscription[T]) Request(n int64) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	if s.started || s.done {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	op := s.start()

	s.mu.Lock()
	s.op = op
	cancelled := s.done
	s.mu.Unlock()
	if cancelled {
		op.Cancel()
	}
}

func (s *responseSubscription[T]) Cancel() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.sub = nil
	op := s.op
	s.mu.Unlock()
	if op != nil {
		op.Cancel()
	}
}

func (s *responseSubscription[T]) complete(v T, err error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if err != nil {
		sub.OnComplete(err)
		return
	}
	sub.OnNext(v)
	sub.OnComplete(nil)
}
