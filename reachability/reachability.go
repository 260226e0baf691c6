package reachability

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/kbukum/courier/component"
	"github.com/kbukum/courier/logger"
)

// Change is passed to listeners when reachability flips.
type Change struct {
	Host      string
	Reachable bool
}

// Listener observes reachability changes.
type Listener func(Change)

// Service holds the last reported reachability of one host. An external
// monitor feeds it through Report; the service never probes on its own.
type Service struct {
	host string
	log  *logger.Logger

	mu        sync.Mutex
	running   bool
	known     bool
	reachable bool
	listeners []Listener
}

var (
	_ component.Component   = (*Service)(nil)
	_ component.Describable = (*Service)(nil)
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for transitions.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// OnChange registers a listener called on every transition.
func OnChange(fn Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, fn) }
}

// New creates a stopped service for host.
func New(host string, opts ...Option) *Service {
	s := &Service{host: host, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("reachability").WithFields(logger.Fields(logger.FieldHost, host))
	return s
}

// ForURL creates a service for the host of rawURL.
func ForURL(rawURL string, opts ...Option) (*Service, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("reachability: parse %q: %w", rawURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("reachability: %q has no host", rawURL)
	}
	return New(u.Hostname(), opts...), nil
}

// Host returns the monitored host.
func (s *Service) Host() string { return s.host }

// Name implements component.Component.
func (s *Service) Name() string { return "reachability" }

// Start begins accepting reports. The state stays unknown until the first
// report arrives.
func (s *Service) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.known = false
	s.log.Debug("reachability started")
	return nil
}

// Stop discards the state. Reports are ignored until the next Start.
func (s *Service) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.known = false
	s.log.Debug("reachability stopped")
	return nil
}

// Report records the latest observation and notifies listeners when it
// differs from the previous one. The first report after Start always
// notifies.
func (s *Service) Report(reachable bool) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	changed := !s.known || s.reachable != reachable
	s.known = true
	s.reachable = reachable
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if !changed {
		return
	}
	s.log.Info("reachability changed", logger.Fields("reachable", reachable))
	for _, fn := range listeners {
		fn(Change{Host: s.host, Reachable: reachable})
	}
}

// Reachable returns the last report. known is false while stopped or before
// the first report.
func (s *Service) Reachable() (reachable, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || !s.known {
		return false, false
	}
	return s.reachable, true
}

// Health reports degraded while the host is known to be unreachable.
func (s *Service) Health(_ context.Context) component.Health {
	reachable, known := s.Reachable()
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	switch {
	case !known:
		h.Message = "unknown"
	case !reachable:
		h.Status = component.StatusDegraded
		h.Message = s.host + " unreachable"
	}
	return h
}

// Describe implements component.Describable.
func (s *Service) Describe() component.Description {
	return component.Description{
		Name:    s.Name(),
		Type:    "reachability",
		Details: s.host,
	}
}
