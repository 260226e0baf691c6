package apiclient

import (
	"context"
	"sync"
	"testing"
	"time"
)

const waitTimeout = 5 * time.Second

// fakeTransport answers exchanges with perform and records every call.
type fakeTransport struct {
	mu        sync.Mutex
	calls     []*Exchange
	cancelAll int
	perform   func(ctx context.Context, ex *Exchange, call int) (*Envelope, error)
}

func (f *fakeTransport) Perform(ctx context.Context, ex *Exchange) (*Envelope, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ex)
	n := len(f.calls)
	f.mu.Unlock()
	return f.perform(ctx, ex, n)
}

func (f *fakeTransport) CancelAll() {
	f.mu.Lock()
	f.cancelAll++
	f.mu.Unlock()
}

func (f *fakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) Call(i int) *Exchange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func respond(status int, body string) *fakeTransport {
	return &fakeTransport{perform: func(context.Context, *Exchange, int) (*Envelope, error) {
		return &Envelope{StatusCode: status, Body: []byte(body)}, nil
	}}
}

// blockingTransport holds every exchange until ctx ends or release is closed.
func blockingTransport(release <-chan struct{}, started chan<- struct{}) *fakeTransport {
	return &fakeTransport{perform: func(ctx context.Context, _ *Exchange, _ int) (*Envelope, error) {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-release:
			return &Envelope{StatusCode: 200, Body: []byte(`{"ok":true}`)}, nil
		}
	}}
}

func newTestClient(t *testing.T, tr Transport, opts ...Option) *Client {
	t.Helper()
	c, err := New("https://httpbin.org/", tr, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// completions records every call of a completion callback.
type completions[T any] struct {
	mu      sync.Mutex
	values  []T
	errs    []error
	arrived chan struct{}
}

func newCompletions[T any]() *completions[T] {
	return &completions[T]{arrived: make(chan struct{}, 16)}
}

func (c *completions[T]) fn(v T, err error) {
	c.mu.Lock()
	c.values = append(c.values, v)
	c.errs = append(c.errs, err)
	c.mu.Unlock()
	c.arrived <- struct{}{}
}

func (c *completions[T]) wait(t *testing.T) (T, error) {
	t.Helper()
	select {
	case <-c.arrived:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for completion")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[0], c.errs[0]
}

func (c *completions[T]) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs)
}

// recorder is a Subscriber that keeps everything it receives.
type recorder[T any] struct {
	mu     sync.Mutex
	sub    Subscription
	values []T
	errs   []error
	ends   int
	done   chan struct{}
	demand int64
}

func newRecorder[T any](demand int64) *recorder[T] {
	return &recorder[T]{done: make(chan struct{}), demand: demand}
}

func (r *recorder[T]) OnSubscribe(s Subscription) {
	r.mu.Lock()
	r.sub = s
	r.mu.Unlock()
	if r.demand > 0 {
		s.Request(r.demand)
	}
}

func (r *recorder[T]) OnNext(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) OnComplete(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.ends++
	first := r.ends == 1
	r.mu.Unlock()
	if first {
		close(r.done)
	}
}

func (r *recorder[T]) subscription() Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub
}

func (r *recorder[T]) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for completion")
	}
}

func (r *recorder[T]) snapshot() ([]T, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...), append([]error(nil), r.errs...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
