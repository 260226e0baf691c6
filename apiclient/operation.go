package apiclient

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/courier/logger"
	"github.com/kbukum/courier/observability"
)

// Operation is the handle of one Execute call.
type Operation struct {
	id       string
	client   *Client
	method   string
	url      string
	log      *logger.Logger
	started  time.Time
	progress *progressTracker

	ctx       context.Context
	cancelCtx context.CancelFunc
	stopWatch func() bool
	span      trace.Span

	mu       sync.Mutex
	resolved bool
	sub      Subscription
	attempts int
	onCancel func()
	done     chan struct{}
}

func (c *Client) newOperation(ctx context.Context, req Request, progress ProgressFunc) *Operation {
	op := &Operation{
		id:       uuid.NewString(),
		client:   c,
		method:   req.HTTPMethod(),
		url:      req.ResolvePath(c.baseURL),
		started:  time.Now(),
		progress: newProgressTracker(progress),
		attempts: 1,
		done:     make(chan struct{}),
	}
	op.log = c.log.WithFields(logger.Fields(
		logger.FieldRequestID, op.id,
		logger.FieldMethod, op.method,
		logger.FieldURL, op.url,
	))

	opCtx := context.WithoutCancel(ctx)
	if c.tracing {
		opCtx, op.span = observability.StartSpan(opCtx, observability.SpanExecute,
			attribute.String(observability.AttrRequestID, op.id),
			attribute.String(observability.AttrMethod, op.method),
			attribute.String(observability.AttrURL, op.url),
		)
	}
	op.ctx, op.cancelCtx = context.WithCancel(opCtx)
	if c.metrics != nil {
		c.metrics.RecordRequestStart(op.ctx)
	}
	op.log.Debug("executing request")
	return op
}

// ID returns the request id used in logs and spans.
func (op *Operation) ID() string { return op.id }

// Done is closed after the completion callback has returned.
func (op *Operation) Done() <-chan struct{} { return op.done }

// Attempts returns how many exchanges have been started so far.
func (op *Operation) Attempts() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.attempts
}

// Cancel resolves the operation with a cancelled error unless it has already
// resolved. Any result arriving afterwards is discarded.
func (op *Operation) Cancel() {
	op.mu.Lock()
	fn := op.onCancel
	op.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// watch cancels the operation when ctx ends.
func (op *Operation) watch(ctx context.Context, onCancel func()) {
	op.mu.Lock()
	op.onCancel = onCancel
	op.mu.Unlock()

	stop := context.AfterFunc(ctx, op.Cancel)
	op.mu.Lock()
	op.stopWatch = stop
	resolved := op.resolved
	op.mu.Unlock()
	if resolved {
		stop()
	}
}

// attach records the retry subscription so Cancel can reach the transport.
func (op *Operation) attach(sub Subscription) {
	op.mu.Lock()
	resolved := op.resolved
	if !resolved {
		op.sub = sub
	}
	op.mu.Unlock()
	if resolved {
		sub.Cancel()
	}
}

// claim takes the operation's single completion.
func (op *Operation) claim() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.resolved {
		return false
	}
	op.resolved = true
	return true
}

func (op *Operation) retried(attempt int, err error, backoff time.Duration) {
	op.mu.Lock()
	op.attempts = attempt + 1
	op.mu.Unlock()

	op.log.Warn("retrying request", logger.Fields(
		logger.FieldAttempt, attempt,
		logger.FieldError, err.Error(),
		logger.FieldBackoff, backoff.Milliseconds(),
	))
	if m := op.client.metrics; m != nil {
		m.RecordRetry(op.ctx, op.method)
	}
}

// finish releases everything the operation holds once it has been claimed.
func (op *Operation) finish(err error) {
	op.mu.Lock()
	stop := op.stopWatch
	sub := op.sub
	op.sub = nil
	attempts := op.attempts
	op.mu.Unlock()
	if stop != nil {
		stop()
	}
	if sub != nil {
		sub.Cancel()
	}
	op.progress.close()
	op.client.deregister(op)

	elapsed := time.Since(op.started)
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	if m := op.client.metrics; m != nil {
		m.RecordRequestEnd(op.ctx, op.method, outcome, elapsed)
		if err != nil {
			m.RecordError(op.ctx, outcome, "apiclient")
		}
	}
	if op.span != nil {
		attrs := []attribute.KeyValue{
			attribute.Int(observability.AttrAttempts, attempts),
			attribute.Int(observability.AttrRetries, attempts-1),
		}
		if code := StatusCode(err); code != 0 {
			attrs = append(attrs, attribute.Int(observability.AttrStatusCode, code))
		}
		if err != nil {
			attrs = append(attrs, attribute.String(observability.AttrErrorKind, outcome))
		}
		observability.EndSpan(op.span, err, attrs...)
	}
	op.cancelCtx()

	fields := logger.DurationFields("execute", elapsed)
	fields[logger.FieldAttempt] = attempts
	if err != nil {
		fields[logger.FieldKind] = outcome
		fields[logger.FieldError] = err.Error()
		op.log.Debug("request failed", fields)
		return
	}
	op.log.Debug("request completed", fields)
}
