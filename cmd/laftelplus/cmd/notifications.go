package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/DOCHIS/laftel-plus/internal/config"
	"github.com/DOCHIS/laftel-plus/internal/notification"
	"github.com/DOCHIS/laftel-plus/internal/utils"
	"github.com/spf13/cobra"
)

// newNotifier builds the notification manager described by the config
func newNotifier(appCfg *config.Config) notification.NotificationManager {
	n := appCfg.Notifications
	return notification.NewManager(&notification.Config{
		Enabled: n.Enabled,
		OSNotification: notification.OSNotificationConfig{
			Enabled:     n.OS.Enabled,
			OnNewItems:  n.OS.OnNewItems,
			OnSyncError: n.OS.OnSyncError,
		},
		LogNotification: notification.LogNotificationConfig{
			Enabled:   n.Log.Enabled,
			Path:      appCfg.GetNotificationLogPath(),
			MaxSizeMB: appCfg.GetNotificationLogMaxSizeMB(),
		},
	})
}

// newNotificationsCmd creates the 'notifications' command
func newNotificationsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Test and inspect watch notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send a test notification through the enabled channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(cfg)
			if err != nil {
				return err
			}
			if !appCfg.Notifications.Enabled {
				return &utils.ErrorWithSuggestion{
					Err:        errors.New("notifications are disabled"),
					Suggestion: "Set notifications.enabled: true in the config file",
				}
			}

			notifier := newNotifier(appCfg)
			err = notifier.Send(notification.Notification{
				Type:      notification.NotifyTest,
				Title:     "Laftel Plus",
				Message:   "Test notification",
				Timestamp: time.Now(),
			})
			if cerr := notifier.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("failed to send test notification: %w", err)
			}

			_, _ = fmt.Fprintf(stdout, "Test notification sent to %d channels\n", notifier.ChannelCount())
			printResult(cfg, stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Show the notification log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(cfg)
			if err != nil {
				return err
			}
			entries, err := notification.ReadLog(appCfg.GetNotificationLogPath())
			if err != nil {
				return fmt.Errorf("failed to read notification log: %w", err)
			}

			if isJSON(cmd) {
				if entries == nil {
					entries = []string{}
				}
				return writeJSON(stdout, map[string]any{"entries": entries})
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(stdout, "No notifications logged")
			}
			for _, e := range entries {
				_, _ = fmt.Fprintln(stdout, e)
			}
			printResult(cfg, stdout, ResultInfoOnly)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	logCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the notification log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(cfg)
			if err != nil {
				return err
			}
			if err := notification.ClearLog(appCfg.GetNotificationLogPath()); err != nil {
				return fmt.Errorf("failed to clear notification log: %w", err)
			}
			_, _ = fmt.Fprintln(stdout, "Notification log cleared")
			printResult(cfg, stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})
	cmd.AddCommand(logCmd)

	return cmd
}
