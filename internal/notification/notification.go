// Package notification reports background sync events outside the terminal.
package notification

import (
	"fmt"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
)

// NotificationType identifies the type of notification
type NotificationType string

const (
	NotifyNewItems  NotificationType = "new_items"
	NotifySyncError NotificationType = "sync_error"
	NotifyTest      NotificationType = "test"
)

// Notification represents a notification to be sent
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Timestamp time.Time
	Metadata  map[string]string
}

// NewItems builds the notification for a sync that found added records
func NewItems(kind backend.ListKind, added, total int, at time.Time) Notification {
	return Notification{
		Type:      NotifyNewItems,
		Title:     "Laftel Plus",
		Message:   fmt.Sprintf("%d new %s items (%d total)", added, kind, total),
		Timestamp: at,
		Metadata:  map[string]string{"kind": string(kind)},
	}
}

// SyncError builds the notification for a failed background sync
func SyncError(kind backend.ListKind, err error, at time.Time) Notification {
	return Notification{
		Type:      NotifySyncError,
		Title:     "Laftel Plus sync failed",
		Message:   fmt.Sprintf("%s: %v", kind, err),
		Timestamp: at,
		Metadata:  map[string]string{"kind": string(kind)},
	}
}

// NotificationManager is the interface for managing notifications
type NotificationManager interface {
	Send(n Notification) error
	SendAsync(n Notification)
	Close() error
	ChannelCount() int
}

// NotificationChannel is the interface for a notification channel
type NotificationChannel interface {
	Send(n Notification) error
	Close() error
}

// Config holds the notification configuration
type Config struct {
	Enabled         bool
	OSNotification  OSNotificationConfig
	LogNotification LogNotificationConfig
}

// OSNotificationConfig holds OS notification configuration
type OSNotificationConfig struct {
	Enabled     bool
	OnNewItems  bool
	OnSyncError bool
}

// LogNotificationConfig holds log notification configuration
type LogNotificationConfig struct {
	Enabled   bool
	Path      string
	MaxSizeMB int
}

// CommandExecutor is the interface for executing system commands
type CommandExecutor interface {
	Execute(cmd string, args ...string) error
}

// MockCommandExecutor is a mock implementation of CommandExecutor for testing
type MockCommandExecutor struct {
	ExecuteFunc func(cmd string, args ...string) error
}

// Execute implements CommandExecutor
func (m *MockCommandExecutor) Execute(cmd string, args ...string) error {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(cmd, args...)
	}
	return nil
}

// Option is a functional option for configuring notification channels
type Option func(any)

// WithCommandExecutor sets a custom command executor
func WithCommandExecutor(executor CommandExecutor) Option {
	return func(c any) {
		if ch, ok := c.(*osNotificationChannel); ok {
			ch.executor = executor
		}
		if mgr, ok := c.(*manager); ok {
			mgr.commandExecutor = executor
		}
	}
}

// WithPlatform sets the platform for OS notifications
func WithPlatform(platform string) Option {
	return func(c any) {
		if ch, ok := c.(*osNotificationChannel); ok {
			ch.platform = platform
		}
		if mgr, ok := c.(*manager); ok {
			mgr.platform = platform
		}
	}
}
