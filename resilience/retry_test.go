package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Retry(context.Background(), DefaultRetryConfig(), func(int) (string, error) {
		calls++
		return "success", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %s", result)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_PassesAttemptNumber(t *testing.T) {
	var seen []int
	_, _ = Retry(context.Background(), RetryConfig{MaxAttempts: 3}, func(attempt int) (int, error) {
		seen = append(seen, attempt)
		return 0, errors.New("fail")
	})
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("expected attempts [1 2 3], got %v", seen)
	}
}

func TestRetry_ZeroConfigIsSingleAttempt(t *testing.T) {
	calls := 0
	testErr := errors.New("boom")
	_, err := Retry(context.Background(), RetryConfig{}, func(int) (int, error) {
		calls++
		return 0, testErr
	})
	if !errors.Is(err, testErr) {
		t.Errorf("expected testErr, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ZeroBackoffRetriesImmediately(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5}
	start := time.Now()
	calls := 0
	_, _ = Retry(context.Background(), cfg, func(int) (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	if calls != 5 {
		t.Errorf("expected 5 calls, got %d", calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected immediate retries, took %v", elapsed)
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}
	var errs []error
	_, err := Retry(context.Background(), cfg, func(attempt int) (string, error) {
		e := errors.New("attempt failure")
		errs = append(errs, e)
		return "", e
	})
	if len(errs) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(errs))
	}
	if err != errs[2] {
		t.Errorf("expected last error to be returned, got %v", err)
	}
}

func TestRetry_CancelDuringBackoffStopsNextAttempt(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 10, InitialBackoff: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, cfg, func(int) (string, error) {
			calls++
			return "", errors.New("error")
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not stop after cancel")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancel, got %d", calls)
	}
}

func TestRetry_RetryIfFilter(t *testing.T) {
	retryableErr := errors.New("retryable")
	nonRetryableErr := errors.New("non-retryable")

	cfg := RetryConfig{
		MaxAttempts: 3,
		RetryIf: func(err error) bool {
			return errors.Is(err, retryableErr)
		},
	}

	calls := 0
	_, _ = Retry(context.Background(), cfg, func(int) (string, error) {
		calls++
		return "", retryableErr
	})
	if calls != 3 {
		t.Errorf("expected 3 calls for retryable error, got %d", calls)
	}

	calls = 0
	_, err := Retry(context.Background(), cfg, func(int) (string, error) {
		calls++
		return "", nonRetryableErr
	})
	if calls != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", calls)
	}
	if !errors.Is(err, nonRetryableErr) {
		t.Errorf("expected nonRetryableErr, got %v", err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var retries []int
	var mu sync.Mutex

	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			mu.Lock()
			retries = append(retries, attempt)
			mu.Unlock()
		},
	}

	_, _ = Retry(context.Background(), cfg, func(int) (string, error) {
		return "", errors.New("error")
	})

	mu.Lock()
	defer mu.Unlock()
	if len(retries) != 2 {
		t.Fatalf("expected 2 OnRetry calls, got %d", len(retries))
	}
	if retries[0] != 1 || retries[1] != 2 {
		t.Errorf("expected attempts [1, 2], got %v", retries)
	}
}

func TestRetryFunc(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), RetryConfig{MaxAttempts: 3}, func(int) error {
		calls++
		if calls < 2 {
			return errors.New("error")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		BackoffFactor:  2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt, cfg); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}

	if got := calculateBackoff(3, RetryConfig{BackoffFactor: 2}); got != 0 {
		t.Errorf("zero initial backoff: expected 0, got %v", got)
	}
}
