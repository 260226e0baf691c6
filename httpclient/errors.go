package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/kbukum/courier/resilience"
)

// ErrorCode classifies a failed exchange. Responses with a status are never
// errors at this layer.
type ErrorCode int

const (
	// ErrCodeTimeout is a deadline hit before the response was read.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection is a dial, TLS, or read failure.
	ErrCodeConnection
	// ErrCodeCancelled means the caller or CancelAll aborted the exchange.
	ErrCodeCancelled
	// ErrCodeEncoding means the exchange could not be turned into a request.
	ErrCodeEncoding
	// ErrCodeCircuitOpen means the breaker rejected the exchange.
	ErrCodeCircuitOpen
	// ErrCodeRateLimited means the limiter gave up waiting.
	ErrCodeRateLimited
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeCancelled:
		return "cancelled"
	case ErrCodeEncoding:
		return "encoding"
	case ErrCodeCircuitOpen:
		return "circuit_open"
	case ErrCodeRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Error is a failed exchange.
type Error struct {
	Code    ErrorCode
	Method  string
	URL     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("httpclient: %s %s %s: %s", e.Code, e.Method, e.URL, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the exchange could succeed.
func (e *Error) Retryable() bool {
	switch e.Code {
	case ErrCodeTimeout, ErrCodeConnection, ErrCodeCircuitOpen, ErrCodeRateLimited:
		return true
	default:
		return false
	}
}

func newError(code ErrorCode, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Err: err}
}

// classify maps an error from http.Client.Do or a body read.
func classify(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return newError(ErrCodeCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(ErrCodeTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(ErrCodeTimeout, err)
	}
	return newError(ErrCodeConnection, err)
}

// guardError maps errors produced by the resilience guards.
func guardError(ctx context.Context, err error) *Error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, resilience.ErrCircuitOpen):
		return newError(ErrCodeCircuitOpen, err)
	case ctx.Err() != nil:
		return classify(ctx, err)
	default:
		return newError(ErrCodeRateLimited, err)
	}
}

// IsTimeout reports whether err is a timed out exchange.
func IsTimeout(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsConnection reports whether err is a connection failure.
func IsConnection(err error) bool {
	return hasCode(err, ErrCodeConnection)
}

// IsCircuitOpen reports whether the breaker rejected the exchange.
func IsCircuitOpen(err error) bool {
	return hasCode(err, ErrCodeCircuitOpen)
}

// IsRetryable reports whether err is a retryable transport failure.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
