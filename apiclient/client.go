package apiclient

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/kbukum/courier/errors"
	"github.com/kbukum/courier/logger"
	"github.com/kbukum/courier/observability"
	"github.com/kbukum/courier/resilience"
	"github.com/kbukum/courier/validation"
)

const defaultWorkers = 4

// Config configures a Client.
type Config struct {
	// BaseURL is joined with every request's Path.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	// Workers bounds concurrent deserialization. Defaults to 4.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=0"`
	// Retries is the default number of extra attempts after a transport
	// failure, used by callers that do not pick their own.
	Retries int `yaml:"retries" mapstructure:"retries" validate:"gte=0"`
	// RetryBackoff sets the delay between attempts. The zero value retries
	// immediately.
	RetryBackoff resilience.RetryConfig `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	// Tracing starts a span per operation on the global tracer provider.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return errors.InvalidConfig("client", err)
	}
	return nil
}

// Client executes requests against one base URL through a Transport.
//
// Results are decoded on a bounded pool of workers and delivered one at a
// time on the completion executor. The client tracks every outstanding
// Operation so CancelAllRequests can reach them.
type Client struct {
	baseURL      *url.URL
	transport    Transport
	reachability Reachability
	log          *logger.Logger
	workers      *resilience.Bulkhead
	workerCount  int
	executor     Executor
	ownsExecutor bool
	backoff      resilience.RetryConfig
	metrics      *observability.Metrics
	tracing      bool

	mu     sync.Mutex
	ops    map[*Operation]struct{}
	closed bool
}

// Option configures a Client.
type Option func(*Client)

// WithReachability gates requests on p. Without it the network is always
// treated as unknown.
func WithReachability(p Reachability) Option {
	return func(c *Client) { c.reachability = p }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithWorkers bounds concurrent deserialization.
func WithWorkers(n int) Option {
	return func(c *Client) { c.workerCount = n }
}

// WithCompletionExecutor delivers completions on e instead of the client's
// own serial executor. The caller keeps ownership of e.
func WithCompletionExecutor(e Executor) Option {
	return func(c *Client) {
		if e != nil {
			c.executor = e
			c.ownsExecutor = false
		}
	}
}

// WithRetryBackoff sets the delay between retry attempts.
func WithRetryBackoff(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.backoff = cfg }
}

// WithMetrics records operation metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTracing starts a span per operation.
func WithTracing(enabled bool) Option {
	return func(c *Client) { c.tracing = enabled }
}

// New creates a client for baseURL.
func New(baseURL string, transport Transport, opts ...Option) (*Client, error) {
	if err := validation.New().
		Required("base_url", baseURL).
		AbsoluteURL("base_url", baseURL).
		Custom(transport != nil, "transport", "is required").
		Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}

	c := &Client{
		baseURL:     u,
		transport:   transport,
		log:         logger.Nop(),
		workerCount: defaultWorkers,
		ops:         make(map[*Operation]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workerCount <= 0 {
		c.workerCount = defaultWorkers
	}
	c.workers = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "apiclient-workers",
		MaxConcurrent: c.workerCount,
		MaxWait:       -1,
	})
	if c.executor == nil {
		c.executor = NewSerialExecutor()
		c.ownsExecutor = true
	}
	c.log = c.log.WithComponent("apiclient")
	return c, nil
}

// NewFromConfig validates cfg and creates a client from it. opts are applied
// after the config.
func NewFromConfig(cfg Config, transport Transport, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []Option{
		WithWorkers(cfg.Workers),
		WithRetryBackoff(cfg.RetryBackoff),
		WithTracing(cfg.Tracing),
	}
	return New(cfg.BaseURL, transport, append(base, opts...)...)
}

// BaseURL returns the URL requests are resolved against.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Outstanding returns the number of operations not yet resolved.
func (c *Client) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ops)
}

// CancelAllRequests cancels every outstanding operation, then asks the
// transport to abort any exchange still running.
func (c *Client) CancelAllRequests() {
	c.mu.Lock()
	ops := make([]*Operation, 0, len(c.ops))
	for op := range c.ops {
		ops = append(ops, op)
	}
	c.mu.Unlock()

	for _, op := range ops {
		op.Cancel()
	}
	if canceller, ok := c.transport.(Canceller); ok {
		canceller.CancelAll()
	}
	if len(ops) > 0 {
		c.log.Debug("cancelled outstanding requests", logger.Fields("count", len(ops)))
	}
}

// Close cancels everything outstanding and stops the client's executor.
// Operations started afterwards resolve as cancelled.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.CancelAllRequests()
	if s, ok := c.executor.(*SerialExecutor); ok && c.ownsExecutor {
		s.Close()
	}
}

func (c *Client) register(op *Operation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.ops[op] = struct{}{}
	return true
}

func (c *Client) deregister(op *Operation) {
	c.mu.Lock()
	delete(c.ops, op)
	c.mu.Unlock()
}

// unreachable reports whether the probe knows the network is down.
func (c *Client) unreachable() bool {
	if c.reachability == nil {
		return false
	}
	reachable, known := c.reachability.Reachable()
	return known && !reachable
}

func (c *Client) publisher(op *Operation, req Request) Publisher[*Envelope] {
	var p Publisher[*Envelope]
	if len(req.Multipart) > 0 {
		p = newMultipartPublisher(op.ctx, c.transport, req, c.baseURL, op.progress)
	} else {
		p = newPlainPublisher(op.ctx, c.transport, req, c.baseURL, op.progress)
	}
	return p
}

func (c *Client) retryConfig(op *Operation) resilience.RetryConfig {
	cfg := c.backoff
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		op.retried(attempt, err, backoff)
		if onRetry != nil {
			onRetry(attempt, err, backoff)
		}
	}
	return cfg
}
