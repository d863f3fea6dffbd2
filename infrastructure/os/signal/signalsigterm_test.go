//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build darwin dragonfly freebsd linux netbsd openbsd solaris

package signal

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
)

func TestInterruptContextSignal(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := InterruptContext(context.Background())
	err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("Kill: %s", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("context was not cancelled by the signal")
	}

	// A second signal is still caught while shutting down.
	err = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
	if err != nil {
		t.Fatalf("Kill: %s", err)
	}
	time.Sleep(100 * time.Millisecond)
	cancel()
}
