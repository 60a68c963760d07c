package cli

import (
	"context"
	"testing"
	"time"
)

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := startSpinner(context.Background(), "working...")
	time.Sleep(2 * spinnerInterval)
	s.Stop()
	s.Stop()

	if s.cancelled() {
		t.Error("explicit Stop should not count as a cancellation")
	}
}

func TestSpinnerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := startSpinner(ctx, "working...")
	cancel()

	select {
	case <-s.halted:
	case <-time.After(time.Second):
		t.Fatal("spinner did not wind down after context cancellation")
	}
	if !s.cancelled() {
		t.Error("cancelled() = false after context cancellation")
	}
}

func TestSpinnerDoneAndFail(t *testing.T) {
	s := startSpinner(context.Background(), "working...")
	s.Done("finished")

	s = startSpinner(context.Background(), "working...")
	s.Fail("broke: %s", "reason")
}
