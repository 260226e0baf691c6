package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/kbukum/courier/apiclient"
	"github.com/kbukum/courier/logger"
	"github.com/kbukum/courier/resilience"
)

// Transport performs apiclient exchanges over net/http, behind an optional
// rate limiter and circuit breaker.
type Transport struct {
	httpClient *http.Client
	config     Config
	cb         *resilience.CircuitBreaker
	rl         *resilience.RateLimiter
	log        *logger.Logger

	mu         sync.Mutex
	base       context.Context
	cancelBase context.CancelFunc
	closed     bool
}

var (
	_ apiclient.Transport = (*Transport)(nil)
	_ apiclient.Canceller = (*Transport)(nil)
)

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the transport logger.
func WithLogger(log *logger.Logger) Option {
	return func(t *Transport) { t.log = log.WithComponent("httpclient") }
}

// WithRoundTripper replaces the underlying HTTP transport.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(t *Transport) { t.httpClient.Transport = rt }
}

// New creates a transport from cfg.
func New(cfg Config, opts ...Option) (*Transport, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			rt.TLSClientConfig = tlsCfg
		}
	}

	t := &Transport{
		httpClient: &http.Client{Transport: rt, Timeout: cfg.Timeout},
		config:     cfg,
		log:        logger.WithComponent("httpclient"),
	}
	if cfg.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		t.httpClient.Jar = jar
	}
	for _, opt := range opts {
		opt(t)
	}
	t.base, t.cancelBase = context.WithCancel(context.Background())

	if cfg.CircuitBreaker != nil {
		t.cb = resilience.NewCircuitBreaker(t.breakerConfig(*cfg.CircuitBreaker))
	}
	if cfg.RateLimiter != nil {
		t.rl = resilience.NewRateLimiter(t.limiterConfig(*cfg.RateLimiter))
	}
	return t, nil
}

// breakerConfig counts only network failures; a response of any status
// proves the server is reachable.
func (t *Transport) breakerConfig(cfg resilience.CircuitBreakerConfig) resilience.CircuitBreakerConfig {
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return IsTimeout(err) || IsConnection(err) }
	}
	next := cfg.OnStateChange
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		t.log.Warn("circuit breaker state changed", logger.Fields(
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		))
		if next != nil {
			next(name, from, to)
		}
	}
	return cfg
}

func (t *Transport) limiterConfig(cfg resilience.RateLimiterConfig) resilience.RateLimiterConfig {
	next := cfg.OnLimit
	cfg.OnLimit = func(name string) {
		t.log.Debug("exchange rate limited", logger.Fields("limiter", name))
		if next != nil {
			next(name)
		}
	}
	return cfg
}

// Name returns the configured transport name.
func (t *Transport) Name() string {
	return t.config.Name
}

// Perform sends ex and returns the response whatever its status. Errors are
// always *Error.
func (t *Transport) Perform(ctx context.Context, ex *apiclient.Exchange) (*apiclient.Envelope, error) {
	ctx, release := t.scope(ctx)
	defer release()

	start := time.Now()
	env, err := t.guarded(ctx, ex)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Method, e.URL = ex.Method, ex.URL
		}
		t.log.Debug("exchange failed", logger.Fields(
			logger.FieldMethod, ex.Method,
			logger.FieldURL, ex.URL,
			logger.FieldError, err.Error(),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
		return nil, err
	}
	t.log.Debug("exchange completed", logger.Fields(
		logger.FieldMethod, ex.Method,
		logger.FieldURL, ex.URL,
		logger.FieldStatusCode, env.StatusCode,
		"bytes", len(env.Body),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return env, nil
}

func (t *Transport) guarded(ctx context.Context, ex *apiclient.Exchange) (*apiclient.Envelope, error) {
	if t.rl != nil {
		if err := t.rl.Wait(ctx); err != nil {
			return nil, guardError(ctx, err)
		}
	}
	if t.cb == nil {
		return t.roundTrip(ctx, ex)
	}

	var env *apiclient.Envelope
	err := t.cb.Execute(func() error {
		var rtErr error
		env, rtErr = t.roundTrip(ctx, ex)
		return rtErr
	})
	if err != nil {
		return nil, guardError(ctx, err)
	}
	return env, nil
}

// roundTrip returns *Error on failure.
func (t *Transport) roundTrip(ctx context.Context, ex *apiclient.Exchange) (*apiclient.Envelope, error) {
	req, err := t.buildRequest(ctx, ex)
	if err != nil {
		return nil, newError(ErrCodeEncoding, err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("read response body: %w", err))
	}
	return &apiclient.Envelope{
		Body:       body,
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
	}, nil
}

func (t *Transport) buildRequest(ctx context.Context, ex *apiclient.Exchange) (*http.Request, error) {
	u, err := url.Parse(ex.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	p, err := encodeExchange(ex, u)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if p != nil {
		body = bytes.NewReader(p.data)
		if ex.Progress != nil {
			body = &progressReader{r: body, total: int64(len(p.data)), fn: ex.Progress}
		}
	}

	req, err := http.NewRequestWithContext(ctx, ex.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if p != nil {
		data := p.data
		req.ContentLength = int64(len(data))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		req.Header.Set("Content-Type", p.contentType)
	}

	for k, v := range t.config.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range ex.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.config.UserAgent)
	}
	t.config.Auth.apply(req)
	return req, nil
}

// scope derives a context that is also cancelled by CancelAll and Close.
func (t *Transport) scope(ctx context.Context) (context.Context, func()) {
	t.mu.Lock()
	base := t.base
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	if base.Err() != nil {
		cancel()
	}
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// CancelAll aborts every exchange in flight. Later exchanges are unaffected.
func (t *Transport) CancelAll() {
	t.mu.Lock()
	t.cancelBase()
	if !t.closed {
		t.base, t.cancelBase = context.WithCancel(context.Background())
	}
	t.mu.Unlock()

	t.httpClient.CloseIdleConnections()
	t.log.Debug("cancelled all exchanges")
}

// Close aborts exchanges in flight and fails every later one.
func (t *Transport) Close(_ context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.cancelBase()
	t.mu.Unlock()

	t.httpClient.CloseIdleConnections()
	return nil
}

// IsAvailable is false while the circuit breaker is open.
func (t *Transport) IsAvailable(_ context.Context) bool {
	if t.cb != nil {
		return t.cb.State() != resilience.StateOpen
	}
	return true
}

// Unwrap returns the underlying *http.Client.
func (t *Transport) Unwrap() *http.Client {
	return t.httpClient
}

func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
