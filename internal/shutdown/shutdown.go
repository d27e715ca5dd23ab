// Package shutdown coordinates interrupting long list operations and closing
// the cache store when the process receives SIGINT or SIGTERM.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

// CleanupFunc is a function that performs cleanup on shutdown.
// It receives a context that will be cancelled when the shutdown times out.
type CleanupFunc func(ctx context.Context) error

type cleanupEntry struct {
	name string
	fn   CleanupFunc
}

// Manager handles graceful shutdown coordination.
type Manager struct {
	mu       sync.Mutex
	cleanups []cleanupEntry
	reason   string
	ctx      context.Context
	cancel   context.CancelFunc
	once     sync.Once
	waitOnce sync.Once
	waitErr  error
	log      *zap.Logger
}

// NewManager creates a new shutdown manager.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{ctx: ctx, cancel: cancel, log: log}
}

// RegisterCleanup registers a cleanup function to be called during Wait.
// Cleanup functions are called in LIFO order (last registered, first called).
func (m *Manager) RegisterCleanup(name string, fn CleanupFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, cleanupEntry{name: name, fn: fn})
}

// HandleSignals shuts down on SIGINT or SIGTERM. The returned function stops listening.
func (m *Manager) HandleSignals() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			m.ShutdownWithReason(sig.String())
		case <-quit:
		}
	}()

	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() {
			signal.Stop(sigCh)
			close(quit)
		})
	}
}

// Shutdown cancels Context. Safe to call multiple times; only the first call has effect.
func (m *Manager) Shutdown() {
	m.ShutdownWithReason("requested")
}

// ShutdownWithReason is Shutdown with a reason recorded for logging.
func (m *Manager) ShutdownWithReason(reason string) {
	m.once.Do(func() {
		m.mu.Lock()
		m.reason = reason
		m.mu.Unlock()

		m.log.Info("shutting down", zap.String("reason", reason))
		m.cancel()
	})
}

// IsShutdown returns true if shutdown has been initiated.
func (m *Manager) IsShutdown() bool {
	return m.ctx.Err() != nil
}

// Reason returns why shutdown was initiated, or "" if it was not.
func (m *Manager) Reason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// Context returns a context that is cancelled when shutdown is initiated.
// Bulk clears and syncs run under it so an interrupt stops them between items.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Done is closed when shutdown is initiated.
func (m *Manager) Done() <-chan struct{} {
	return m.ctx.Done()
}

// Wait runs the registered cleanups once and returns their joined errors.
// Returns ctx.Err() if the cleanups do not finish in time.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.waitOnce.Do(func() {
			m.waitErr = m.runCleanups(ctx)
		})
		close(done)
	}()

	select {
	case <-done:
		return m.waitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) runCleanups(ctx context.Context) error {
	m.mu.Lock()
	cleanups := make([]cleanupEntry, len(m.cleanups))
	copy(cleanups, m.cleanups)
	m.mu.Unlock()

	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		c := cleanups[i]
		if err := c.fn(ctx); err != nil {
			m.log.Warn("cleanup failed", zap.String("cleanup", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}
