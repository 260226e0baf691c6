package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/kbukum/courier/resilience"
)

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeTimeout, "timeout"},
		{ErrCodeConnection, "connection"},
		{ErrCodeCancelled, "cancelled"},
		{ErrCodeEncoding, "encoding"},
		{ErrCodeCircuitOpen, "circuit_open"},
		{ErrCodeRateLimited, "rate_limited"},
		{ErrorCode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestError_Error(t *testing.T) {
	e := &Error{Code: ErrCodeConnection, Method: "GET", URL: "https://httpbin.org/get", Message: "connection refused"}
	if got, want := e.Error(), "httpclient: connection GET https://httpbin.org/get: connection refused"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	e = &Error{Code: ErrCodeEncoding, Message: "bad url"}
	if got, want := e.Error(), "httpclient: encoding: bad url"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestClassify(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want ErrorCode
	}{
		{"caller cancelled", cancelled, errors.New("context canceled"), ErrCodeCancelled},
		{"deadline", context.Background(), fmt.Errorf("do: %w", context.DeadlineExceeded), ErrCodeTimeout},
		{"net timeout", context.Background(), timeoutError{}, ErrCodeTimeout},
		{"refused", context.Background(), errors.New("connection refused"), ErrCodeConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.ctx, tt.err)
			if got.Code != tt.want {
				t.Errorf("classify() = %s, want %s", got.Code, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("expected cause to be preserved")
			}
		})
	}
}

func TestGuardError(t *testing.T) {
	ctx := context.Background()
	if got := guardError(ctx, resilience.ErrCircuitOpen); got.Code != ErrCodeCircuitOpen {
		t.Errorf("expected circuit_open, got %s", got.Code)
	}
	if got := guardError(ctx, errors.New("rate: Wait(n=1) exceeds limiter's burst 0")); got.Code != ErrCodeRateLimited {
		t.Errorf("expected rate_limited, got %s", got.Code)
	}
	inner := newError(ErrCodeConnection, errors.New("reset"))
	if got := guardError(ctx, inner); got != inner {
		t.Error("expected transport errors to pass through")
	}
}

func TestIsHelpers(t *testing.T) {
	timeout := newError(ErrCodeTimeout, errors.New("slow"))
	wrapped := fmt.Errorf("perform: %w", timeout)
	if !IsTimeout(wrapped) || IsConnection(wrapped) {
		t.Error("IsTimeout/IsConnection mismatch")
	}
	if !IsRetryable(wrapped) {
		t.Error("expected timeout to be retryable")
	}
	if IsRetryable(newError(ErrCodeEncoding, errors.New("bad"))) {
		t.Error("expected encoding failure not to be retryable")
	}
	if !IsCircuitOpen(newError(ErrCodeCircuitOpen, resilience.ErrCircuitOpen)) {
		t.Error("expected IsCircuitOpen")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("expected plain errors not to be retryable")
	}
}
