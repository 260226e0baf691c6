package apiclient

import (
	"context"
	"net/url"
	"sync"
)

type subscriptionState int

const (
	stateIdle subscriptionState = iota
	stateInFlight
	stateCompleted
	stateCancelled
)

func (s subscriptionState) terminal() bool {
	return s == stateCompleted || s == stateCancelled
}

// exchangePublisher emits the Envelope of one exchange per subscription.
type exchangePublisher struct {
	ctx       context.Context
	transport Transport
	build     func() (*Exchange, error)
	progress  *progressTracker
}

// newPlainPublisher sends req's parameters with the encoding it selects.
func newPlainPublisher(ctx context.Context, t Transport, req Request, base *url.URL, progress *progressTracker) Publisher[*Envelope] {
	return &exchangePublisher{
		ctx:       ctx,
		transport: t,
		progress:  progress,
		build: func() (*Exchange, error) {
			headers, err := req.BuildHeaders()
			if err != nil {
				return nil, err
			}
			return &Exchange{
				URL:        req.ResolvePath(base),
				Method:     req.HTTPMethod(),
				Parameters: req.Parameters,
				Encoding:   req.Encoding(),
				Headers:    headers,
			}, nil
		},
	}
}

// newMultipartPublisher uploads req's files as multipart/form-data.
func newMultipartPublisher(ctx context.Context, t Transport, req Request, base *url.URL, progress *progressTracker) Publisher[*Envelope] {
	return &exchangePublisher{
		ctx:       ctx,
		transport: t,
		progress:  progress,
		build: func() (*Exchange, error) {
			headers, err := req.BuildHeaders()
			if err != nil {
				return nil, err
			}
			return &Exchange{
				URL:       req.ResolvePath(base),
				Method:    req.HTTPMethod(),
				Encoding:  EncodingMultipart,
				Multipart: req.Multipart,
				Headers:   headers,
			}, nil
		},
	}
}

func (p *exchangePublisher) Subscribe(sub Subscriber[*Envelope]) {
	s := &exchangeSubscription{
		parent:    p.ctx,
		transport: p.transport,
		build:     p.build,
		progress:  p.progress,
		sub:       sub,
	}
	sub.OnSubscribe(s)
}

// exchangeSubscription runs a single exchange on first demand.
//
// Idle -> InFlight on demand, InFlight -> Completed on the transport result,
// Idle or InFlight -> Cancelled on Cancel. A header failure goes straight
// from Idle to Completed. The subscriber is released on any terminal state.
type exchangeSubscription struct {
	parent    context.Context
	transport Transport
	build     func() (*Exchange, error)
	progress  *progressTracker

	mu        sync.Mutex
	state     subscriptionState
	requested bool
	sub       Subscriber[*Envelope]
	cancel    context.CancelFunc
}

func (s *exchangeSubscription) Request(n int64) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	if s.state != stateIdle || s.requested {
		s.mu.Unlock()
		return
	}
	s.requested = true
	s.mu.Unlock()

	ex, err := s.build()

	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return
	}
	if err != nil {
		sub := s.terminate(stateCompleted)
		s.mu.Unlock()
		sub.OnComplete(err)
		return
	}
	ctx, cancel := context.WithCancel(s.parent)
	s.cancel = cancel
	s.state = stateInFlight
	if s.progress != nil {
		ex.Progress = s.reportProgress
	}
	s.mu.Unlock()

	s.progress.begin()
	go s.perform(ctx, ex)
}

func (s *exchangeSubscription) perform(ctx context.Context, ex *Exchange) {
	env, err := s.transport.Perform(ctx, ex)

	s.mu.Lock()
	if s.state != stateInFlight {
		// Cancelled while outstanding; the late result is dropped.
		s.mu.Unlock()
		return
	}
	sub := s.terminate(stateCompleted)
	s.cancel()
	s.mu.Unlock()

	if err != nil {
		sub.OnComplete(transportError(err))
		return
	}
	if env == nil {
		env = &Envelope{}
	}
	s.progress.succeed()
	sub.OnNext(env)
	sub.OnComplete(nil)
}

func (s *exchangeSubscription) reportProgress(sent, total int64) {
	s.mu.Lock()
	inFlight := s.state == stateInFlight
	s.mu.Unlock()
	if inFlight {
		s.progress.transfer(sent, total)
	}
}

func (s *exchangeSubscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.terminal() {
		return
	}
	if s.state == stateInFlight {
		s.cancel()
	}
	s.terminate(stateCancelled)
}

// terminate moves to a terminal state and hands back the released
// subscriber. Callers hold s.mu.
func (s *exchangeSubscription) terminate(to subscriptionState) Subscriber[*Envelope] {
	sub := s.sub
	s.sub = nil
	s.state = to
	return sub
}
