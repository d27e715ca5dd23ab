package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/analytics"
	"github.com/DOCHIS/laftel-plus/internal/daemon"
	"github.com/DOCHIS/laftel-plus/internal/listsync"
	"github.com/DOCHIS/laftel-plus/internal/notification"
	"github.com/DOCHIS/laftel-plus/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// jobStateJSON is the JSON shape of a watch job
type jobStateJSON struct {
	Name        string `json:"name"`
	Runs        int    `json:"runs"`
	Errors      int    `json:"consecutive_errors"`
	LastRunID   string `json:"last_run_id,omitempty"`
	LastSuccess string `json:"last_success,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	Circuit     string `json:"circuit"`
}

// newWatchCmd creates the 'watch' subcommand
func newWatchCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync the rated and wish lists periodically",
		Long: `Run incremental syncs of the rated and wish lists on an interval until interrupted.
A list that keeps failing is paused for the configured cooldown. Resetting a list
from another terminal triggers an immediate resync.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(cfg)
			if err != nil {
				return err
			}

			interval := appCfg.GetWatchInterval()
			if cmd.Flags().Changed("interval") {
				interval, _ = cmd.Flags().GetDuration("interval")
			}
			once, _ := cmd.Flags().GetBool("once")

			log := utils.Zap()
			if !once {
				bl, err := utils.NewBackgroundLoggerWithEnabled(appCfg.IsBackgroundLoggingEnabled())
				if err != nil {
					return err
				}
				defer bl.Close()
				if bl.IsEnabled() {
					log = bl.Zap()
					_, _ = fmt.Fprintf(stderr, "Logging to %s\n", bl.GetLogPath())
				}
			}

			a, err := openApp(cfg, openOptions{watchStore: true, config: appCfg, log: log})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := a.interruptible()
			defer stop()

			notifier := newNotifier(appCfg)
			defer func() { _ = notifier.Close() }()

			d := daemon.New(daemon.Config{
				Interval:         interval,
				FailureThreshold: appCfg.GetFailureThreshold(),
				Cooldown:         appCfg.GetWatchCooldown(),
				RunOnStart:       true,
				Logger:           log.Named("watch"),
			})
			for _, kind := range []backend.ListKind{backend.KindRated, backend.KindWish} {
				d.AddJob(string(kind), func(ctx context.Context) error {
					res, err := a.trackSync(analytics.OpWatch, kind, func() (*listsync.Result, error) {
						return a.syncer.Sync(ctx, kind)
					})
					switch {
					case errors.Is(err, context.Canceled):
					case err != nil:
						notifier.SendAsync(notification.SyncError(kind, err, time.Now()))
					case res.Added > 0:
						notifier.SendAsync(notification.NewItems(kind, res.Added, res.Total, time.Now()))
					}
					return err
				})
			}

			if once {
				d.RunOnce(ctx)
				return reportJobs(d.States(), cfg, stdout, isJSON(cmd))
			}

			unsubscribe := notifyOnReset(ctx, a, d)
			defer unsubscribe()

			_, _ = fmt.Fprintf(stdout, "Watching rated and wish lists every %s (Ctrl+C to stop)\n", interval)
			if err := d.Run(ctx); err != nil {
				return friendlyError(err, "")
			}
			return reportJobs(d.States(), cfg, stdout, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Duration("interval", 0, "Time between syncs (default from config, 30m)")
	cmd.Flags().Bool("once", false, "Run one sync of every list and exit")
	return cmd
}

// notifyOnReset triggers a run when another process deletes a sync high-water mark.
// Store callbacks only signal; the cache is inspected outside the store's lock.
func notifyOnReset(ctx context.Context, a *app, d *daemon.Daemon) func() {
	marks := []string{backend.LastIDKey(backend.KindRated), backend.LastIDKey(backend.KindWish)}
	changed := make(chan struct{}, 1)

	unsubscribe := a.store.Subscribe(func(keys []string) {
		for _, key := range keys {
			if slices.Contains(marks, key) {
				select {
				case changed <- struct{}{}:
				default:
				}
				return
			}
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				for _, kind := range []backend.ListKind{backend.KindRated, backend.KindWish} {
					lc, err := backend.LoadCache(ctx, a.store, kind)
					if err != nil {
						a.log.Warn("failed to inspect cache", zap.String("kind", string(kind)), zap.Error(err))
						continue
					}
					if lc.LastID == nil {
						a.log.Info("list was reset, syncing now", zap.String("kind", string(kind)))
						d.Notify()
						break
					}
				}
			}
		}
	}()

	return unsubscribe
}

func reportJobs(states []daemon.JobState, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	if jsonOutput {
		out := make([]jobStateJSON, 0, len(states))
		for _, st := range states {
			js := jobStateJSON{
				Name:      st.Name,
				Runs:      st.RunCount,
				Errors:    st.ErrorCount,
				LastRunID: st.LastRunID,
				LastError: st.LastError,
				Circuit:   st.CircuitState.String(),
			}
			if !st.LastSuccess.IsZero() {
				js.LastSuccess = st.LastSuccess.Format(time.RFC3339)
			}
			out = append(out, js)
		}
		return writeJSON(stdout, out)
	}

	healthy := true
	for _, st := range states {
		status := "ok"
		if !st.Healthy() {
			status = "failed: " + st.LastError
			healthy = false
		}
		_, _ = fmt.Fprintf(stdout, "%-6s runs=%d circuit=%s %s\n", st.Name, st.RunCount, st.CircuitState, status)
	}
	if !healthy {
		printResult(cfg, stdout, ResultError)
		return nil
	}
	printResult(cfg, stdout, ResultActionCompleted)
	return nil
}
