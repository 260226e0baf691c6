package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/courier/component"
)

// Start starts c and stops it when the test ends.
func Start[C component.Component](t testing.TB, c C) C {
	t.Helper()
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("failed to start component %s: %v", c.Name(), err)
	}
	t.Cleanup(func() {
		if err := c.Stop(context.Background()); err != nil {
			t.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
	return c
}

// ExpectHealth fails the test unless c reports want.
func ExpectHealth(t testing.TB, c component.Component, want component.HealthStatus) component.Health {
	t.Helper()
	h := c.Health(context.Background())
	if h.Status != want {
		t.Errorf("%s health = %s (%s), want %s", c.Name(), h.Status, h.Message, want)
	}
	return h
}
