package notification

import (
	"errors"
	"sync"
)

// manager implements NotificationManager
type manager struct {
	channels        []NotificationChannel
	enabled         bool
	commandExecutor CommandExecutor
	platform        string
	pending         sync.WaitGroup
}

// NewManager creates a new NotificationManager based on configuration
func NewManager(cfg *Config, opts ...Option) NotificationManager {
	m := &manager{enabled: cfg.Enabled}

	// Options first so the OS channel inherits the executor and platform
	for _, opt := range opts {
		opt(m)
	}

	if !cfg.Enabled {
		return m
	}

	if cfg.OSNotification.Enabled {
		var osOpts []Option
		if m.commandExecutor != nil {
			osOpts = append(osOpts, WithCommandExecutor(m.commandExecutor))
		}
		if m.platform != "" {
			osOpts = append(osOpts, WithPlatform(m.platform))
		}
		m.channels = append(m.channels, NewOSNotificationChannel(&cfg.OSNotification, osOpts...))
	}

	if cfg.LogNotification.Enabled {
		m.channels = append(m.channels, NewLogNotificationChannel(&cfg.LogNotification))
	}

	return m
}

// Send dispatches notification to all enabled channels
func (m *manager) Send(n Notification) error {
	if !m.enabled {
		return nil
	}

	var errs []error
	for _, ch := range m.channels {
		if err := ch.Send(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendAsync dispatches notification without blocking. Close waits for it.
func (m *manager) SendAsync(n Notification) {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		_ = m.Send(n)
	}()
}

// Close waits for pending sends and closes every channel
func (m *manager) Close() error {
	m.pending.Wait()

	var errs []error
	for _, ch := range m.channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChannelCount returns the number of active channels
func (m *manager) ChannelCount() int {
	return len(m.channels)
}
