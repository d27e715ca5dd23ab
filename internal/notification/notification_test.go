package notification_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/notification"
)

// recorder captures executed commands
type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) executor() *notification.MockCommandExecutor {
	return &notification.MockCommandExecutor{
		ExecuteFunc: func(cmd string, args ...string) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.calls = append(r.calls, append([]string{cmd}, args...))
			return nil
		},
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func allEvents() *notification.OSNotificationConfig {
	return &notification.OSNotificationConfig{Enabled: true, OnNewItems: true, OnSyncError: true}
}

// =============================================================================
// Unit Tests - Sync Event Builders
// =============================================================================

func TestNewItemsNotification(t *testing.T) {
	at := time.Date(2026, 1, 16, 10, 30, 0, 0, time.UTC)
	n := notification.NewItems(backend.KindWish, 3, 40, at)

	if n.Type != notification.NotifyNewItems {
		t.Errorf("type = %s", n.Type)
	}
	if n.Message != "3 new wish items (40 total)" {
		t.Errorf("message = %q", n.Message)
	}
	if n.Metadata["kind"] != "wish" || !n.Timestamp.Equal(at) {
		t.Errorf("unexpected notification: %+v", n)
	}
}

func TestSyncErrorNotification(t *testing.T) {
	n := notification.SyncError(backend.KindRated, errors.New("status 500"), time.Now())

	if n.Type != notification.NotifySyncError {
		t.Errorf("type = %s", n.Type)
	}
	if n.Message != "rated: status 500" {
		t.Errorf("message = %q", n.Message)
	}
}

// =============================================================================
// Unit Tests - OS Notification (with mock command executor)
// =============================================================================

func TestOSNotificationPlatforms(t *testing.T) {
	tests := []struct {
		platform string
		cmd      string
		contains string
	}{
		{"linux", "notify-send", "2 new rated items"},
		{"darwin", "osascript", "display notification"},
		{"windows", "powershell", "BalloonTipText"},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			rec := &recorder{}
			channel := notification.NewOSNotificationChannel(allEvents(),
				notification.WithCommandExecutor(rec.executor()),
				notification.WithPlatform(tt.platform),
			)

			if err := channel.Send(notification.NewItems(backend.KindRated, 2, 10, time.Now())); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if rec.count() != 1 {
				t.Fatalf("expected one command, got %v", rec.calls)
			}
			call := rec.calls[0]
			if call[0] != tt.cmd {
				t.Errorf("expected %s, got %q", tt.cmd, call[0])
			}
			if !strings.Contains(strings.Join(call[1:], " "), tt.contains) {
				t.Errorf("expected args to contain %q, got %v", tt.contains, call[1:])
			}
		})
	}
}

func TestOSNotificationUnsupportedPlatform(t *testing.T) {
	channel := notification.NewOSNotificationChannel(allEvents(),
		notification.WithCommandExecutor((&recorder{}).executor()),
		notification.WithPlatform("plan9"),
	)
	if err := channel.Send(notification.NewItems(backend.KindRated, 1, 1, time.Now())); err == nil {
		t.Error("expected error for unsupported platform")
	}
}

// TestOSNotificationEscaping verifies titles and messages cannot break out of the script strings
func TestOSNotificationEscaping(t *testing.T) {
	rec := &recorder{}
	channel := notification.NewOSNotificationChannel(allEvents(),
		notification.WithCommandExecutor(rec.executor()),
		notification.WithPlatform("darwin"),
	)

	n := notification.SyncError(backend.KindWish, errors.New(`bad "quote" \ here`), time.Now())
	if err := channel.Send(n); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	script := rec.calls[0][2]
	if !strings.Contains(script, `bad \"quote\" \\ here`) {
		t.Errorf("message not escaped: %s", script)
	}
}

func TestNotificationTypeFiltering(t *testing.T) {
	rec := &recorder{}
	channel := notification.NewOSNotificationChannel(
		&notification.OSNotificationConfig{Enabled: true, OnNewItems: false, OnSyncError: true},
		notification.WithCommandExecutor(rec.executor()),
		notification.WithPlatform("linux"),
	)

	if err := channel.Send(notification.NewItems(backend.KindWish, 1, 1, time.Now())); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("new items should be filtered, got %v", rec.calls)
	}

	if err := channel.Send(notification.SyncError(backend.KindWish, errors.New("boom"), time.Now())); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := channel.Send(notification.Notification{Type: notification.NotifyTest, Title: "t", Message: "m"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.count() != 2 {
		t.Errorf("sync error and test notifications should pass, got %v", rec.calls)
	}
}

// =============================================================================
// Unit Tests - Log Notification
// =============================================================================

func TestLogNotification(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "notifications.log")

	channel := notification.NewLogNotificationChannel(&notification.LogNotificationConfig{
		Enabled:   true,
		Path:      logPath,
		MaxSizeMB: 10,
	})
	defer func() { _ = channel.Close() }()

	at := time.Date(2026, 1, 16, 10, 30, 0, 0, time.UTC)
	if err := channel.Send(notification.NewItems(backend.KindWish, 3, 40, at)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := channel.Send(notification.SyncError(backend.KindRated, errors.New("status 500"), at)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	entries, err := notification.ReadLog(logPath)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	want := []string{
		"2026-01-16T10:30:00Z [NEW_ITEMS] 3 new wish items (40 total) kind=wish",
		"2026-01-16T10:30:00Z [SYNC_ERROR] rated: status 500 kind=rated",
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, entries[i], want[i])
		}
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("stat log: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("log permissions = %v", info.Mode().Perm())
	}
}

func TestLogNotificationRotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "notifications.log")
	if err := os.WriteFile(logPath, make([]byte, 1024*1024+1), 0600); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	channel := notification.NewLogNotificationChannel(&notification.LogNotificationConfig{
		Enabled:   true,
		Path:      logPath,
		MaxSizeMB: 1,
	})
	defer func() { _ = channel.Close() }()

	if err := channel.Send(notification.NewItems(backend.KindWish, 1, 1, time.Now())); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := os.Stat(logPath + ".old"); err != nil {
		t.Errorf("expected rotated log: %v", err)
	}
	entries, _ := notification.ReadLog(logPath)
	if len(entries) != 1 {
		t.Errorf("fresh log should hold one entry, got %d", len(entries))
	}
}

func TestReadAndClearLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "notifications.log")

	entries, err := notification.ReadLog(logPath)
	if err != nil || entries != nil {
		t.Errorf("missing log should read as empty, got %v, %v", entries, err)
	}
	if err := notification.ClearLog(logPath); err != nil {
		t.Errorf("clearing a missing log should succeed: %v", err)
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("clearing a missing log should not create it")
	}

	if err := os.WriteFile(logPath, []byte("a\nb\n"), 0600); err != nil {
		t.Fatalf("seed log: %v", err)
	}
	if err := notification.ClearLog(logPath); err != nil {
		t.Fatalf("ClearLog: %v", err)
	}
	entries, _ = notification.ReadLog(logPath)
	if len(entries) != 0 {
		t.Errorf("expected empty log, got %v", entries)
	}
}

// =============================================================================
// Unit Tests - Manager
// =============================================================================

func TestNotificationConfig(t *testing.T) {
	tests := []struct {
		name             string
		osEnabled        bool
		logEnabled       bool
		expectedChannels int
	}{
		{"both enabled", true, true, 2},
		{"only os enabled", true, false, 1},
		{"only log enabled", false, true, 1},
		{"both disabled", false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &notification.Config{
				Enabled:        true,
				OSNotification: notification.OSNotificationConfig{Enabled: tt.osEnabled, OnNewItems: true},
				LogNotification: notification.LogNotificationConfig{
					Enabled: tt.logEnabled,
					Path:    filepath.Join(t.TempDir(), "notifications.log"),
				},
			}

			manager := notification.NewManager(cfg, notification.WithCommandExecutor((&recorder{}).executor()))
			defer func() { _ = manager.Close() }()

			if got := manager.ChannelCount(); got != tt.expectedChannels {
				t.Errorf("expected %d channels, got %d", tt.expectedChannels, got)
			}
		})
	}
}

func TestNotificationDisabled(t *testing.T) {
	rec := &recorder{}
	manager := notification.NewManager(&notification.Config{
		Enabled:        false,
		OSNotification: *allEvents(),
	}, notification.WithCommandExecutor(rec.executor()))
	defer func() { _ = manager.Close() }()

	if err := manager.Send(notification.NewItems(backend.KindWish, 1, 1, time.Now())); err != nil {
		t.Errorf("expected no error for disabled notifications, got %v", err)
	}
	if manager.ChannelCount() != 0 || rec.count() != 0 {
		t.Error("disabled manager should not send anything")
	}
}

// TestSendAsyncFlushedOnClose verifies Close waits for notifications still in flight
func TestSendAsyncFlushedOnClose(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "notifications.log")
	rec := &recorder{}
	manager := notification.NewManager(&notification.Config{
		Enabled:         true,
		OSNotification:  *allEvents(),
		LogNotification: notification.LogNotificationConfig{Enabled: true, Path: logPath},
	}, notification.WithCommandExecutor(rec.executor()), notification.WithPlatform("linux"))

	for i := 0; i < 5; i++ {
		manager.SendAsync(notification.NewItems(backend.KindRated, i+1, 10, time.Now()))
	}
	if err := manager.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if rec.count() != 5 {
		t.Errorf("expected 5 OS notifications, got %d", rec.count())
	}
	entries, _ := notification.ReadLog(logPath)
	if len(entries) != 5 {
		t.Errorf("expected 5 log entries, got %d", len(entries))
	}
}
