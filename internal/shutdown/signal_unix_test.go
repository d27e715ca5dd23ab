//go:build unix

package shutdown_test

import (
	"syscall"
	"testing"
	"time"

	"github.com/DOCHIS/laftel-plus/internal/shutdown"
)

func TestHandleSignals(t *testing.T) {
	mgr := shutdown.NewManager(nil)
	stop := mgr.HandleSignals()
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Skipf("cannot signal self: %v", err)
	}

	select {
	case <-mgr.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("SIGTERM did not trigger shutdown")
	}
	if mgr.Reason() != "terminated" {
		t.Errorf("reason = %q", mgr.Reason())
	}
}
