package testutil

import (
	"testing"
	"time"
)

// DefaultTimeout bounds every wait in this package.
const DefaultTimeout = 5 * time.Second

const pollInterval = 5 * time.Millisecond

// Eventually polls cond until it holds, failing the test after
// DefaultTimeout.
func Eventually(t testing.TB, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(DefaultTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(pollInterval)
	}
}

// Receive returns the next value from ch, failing the test after
// DefaultTimeout.
func Receive[T any](t testing.TB, what string, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(DefaultTimeout):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}
