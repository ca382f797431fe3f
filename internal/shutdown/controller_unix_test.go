//go:build !windows

package shutdown

import (
	"context"
	"syscall"
	"testing"
	"time"
)

// TestWatch tests signal relaying. It sends SIGUSR1 to the test process,
// so it is not run in parallel with other signal tests.
func TestWatch(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := c.Watch(ctx, cancel, nil, syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("failed to send signal: %v", err)
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("controller was not tripped by the first signal")
	}
	if ctx.Err() != nil {
		t.Fatal("first signal must not cancel the run context")
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("failed to send signal: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not cancel the run context")
	}
}
