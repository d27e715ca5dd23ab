package watcher

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, path string, onChange func()) *Watcher {
	t.Helper()
	w, err := New(Config{
		Path:             path,
		DebounceDuration: 50 * time.Millisecond,
		OnChange:         onChange,
	})
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	t.Cleanup(w.Stop)
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	return w
}

// waitFor polls cond until it holds or the timeout expires
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcherDetectsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	var calls atomic.Int32
	newTestWatcher(t, path, func() { calls.Add(1) })

	if err := os.WriteFile(path, []byte(`{"a":1}`), 0600); err != nil {
		t.Fatalf("failed to modify file: %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() > 0 }) {
		t.Error("expected watcher to report the change")
	}
}

func TestWatcherDetectsAtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	var calls atomic.Int32
	newTestWatcher(t, path, func() { calls.Add(1) })

	tmp := filepath.Join(dir, "store.json.tmp")
	if err := os.WriteFile(tmp, []byte("{}"), 0600); err != nil {
		t.Fatalf("write tmp: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() > 0 }) {
		t.Error("expected watcher to report the renamed file")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	var calls atomic.Int32
	newTestWatcher(t, path, func() { calls.Add(1) })

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("expected no callbacks, got %d", calls.Load())
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	var calls atomic.Int32
	newTestWatcher(t, path, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	time.Sleep(300 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 debounced callback, got %d", got)
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	w, err := New(Config{Path: path})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	w.Stop()
	w.Stop()

	if err := w.Start(); err == nil {
		t.Error("expected error restarting a stopped watcher")
	}
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}
