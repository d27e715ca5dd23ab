package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/analytics"
	"github.com/DOCHIS/laftel-plus/internal/cache"
	"github.com/DOCHIS/laftel-plus/internal/listsync"
	"github.com/DOCHIS/laftel-plus/internal/views"
	"github.com/spf13/cobra"
)

// syncResultJSON is the JSON shape of one sync or collect run
type syncResultJSON struct {
	RunID   string           `json:"run_id"`
	Kind    backend.ListKind `json:"kind"`
	Fetched int              `json:"fetched"`
	Added   int              `json:"added"`
	Total   int              `json:"total"`
	LastID  *int64           `json:"last_id"`
	Full    bool             `json:"full"`
	Stop    string           `json:"stop,omitempty"`
}

func toResultJSON(results []*listsync.Result) []syncResultJSON {
	out := make([]syncResultJSON, 0, len(results))
	for _, r := range results {
		out = append(out, syncResultJSON{
			RunID:   r.RunID,
			Kind:    r.Kind,
			Fetched: r.Fetched,
			Added:   r.Added,
			Total:   r.Total,
			LastID:  r.LastID,
			Full:    r.Full,
			Stop:    string(r.Stop),
		})
	}
	return out
}

// trackSync records a sync or collect run in the history.
// Throttled counts every 429 seen by the client during the run, including those of
// concurrent runs sharing it.
func (a *app) trackSync(op string, kind backend.ListKind, run func() (*listsync.Result, error)) (*listsync.Result, error) {
	var res *listsync.Result
	before := a.limits.RateLimitCount()
	err := a.history.Track(op, kind, func() (analytics.Stats, error) {
		var err error
		res, err = run()
		stats := analytics.Stats{Throttled: int(a.limits.RateLimitCount() - before)}
		if res != nil {
			stats.RunID = res.RunID
			stats.Fetched = res.Fetched
			stats.Added = res.Added
			stats.Total = res.Total
		}
		return stats, err
	})
	return res, err
}

// remoteKinds resolves "all" or a single list name into the lists to fetch
func remoteKinds(args []string) ([]backend.ListKind, error) {
	if len(args) == 0 || strings.EqualFold(args[0], "all") {
		return []backend.ListKind{backend.KindRated, backend.KindWish}, nil
	}
	kind, err := parseKind(args[0])
	if err != nil {
		return nil, err
	}
	return []backend.ListKind{kind}, nil
}

// newSyncCmd creates the 'sync' subcommand
func newSyncCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [rated|wish|all]",
		Short: "Fetch records added since the last sync",
		Long:  "Incrementally sync the rated and wish lists. Only records newer than the last synced one are fetched.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := remoteKinds(args)
			if err != nil {
				return err
			}

			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := a.interruptible()
			defer stop()
			return doSync(ctx, a, kinds, cfg, stdout, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func doSync(ctx context.Context, a *app, kinds []backend.ListKind, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	var results []*listsync.Result
	for _, kind := range kinds {
		res, err := a.trackSync(analytics.OpSync, kind, func() (*listsync.Result, error) {
			return a.syncer.Sync(ctx, kind)
		})
		if err != nil {
			return friendlyError(err, kind)
		}
		results = append(results, res)
	}

	if jsonOutput {
		return writeJSON(stdout, toResultJSON(results))
	}
	for _, res := range results {
		if res.Added == 0 {
			_, _ = fmt.Fprintf(stdout, "%s: up to date (%d items)\n", res.Kind, res.Total)
			continue
		}
		_, _ = fmt.Fprintf(stdout, "%s: added %d new items (%d total)\n", res.Kind, res.Added, res.Total)
	}
	printResult(cfg, stdout, ResultActionCompleted)
	return nil
}

// newCollectCmd creates the 'collect' subcommand
func newCollectCmd(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "collect [rated|wish|all]",
		Short: "Fetch the complete list and replace the cache",
		Long:  "Traverse every page of the remote list and replace the local cache with the result.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := remoteKinds(args)
			if err != nil {
				return err
			}

			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := a.interruptible()
			defer stop()
			return doCollect(ctx, a, kinds, cfg, stdout, stderr, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func doCollect(ctx context.Context, a *app, kinds []backend.ListKind, cfg *Config, stdout, stderr io.Writer, jsonOutput bool) error {
	var results []*listsync.Result
	for _, kind := range kinds {
		progress := func(fetched, total int) {
			if !jsonOutput {
				_, _ = fmt.Fprintf(stderr, "collecting %s: %d/%d\n", kind, fetched, total)
			}
		}
		res, err := a.trackSync(analytics.OpCollect, kind, func() (*listsync.Result, error) {
			return a.syncer.Collect(ctx, kind, progress)
		})
		if err != nil {
			return friendlyError(err, kind)
		}
		results = append(results, res)
	}

	if jsonOutput {
		return writeJSON(stdout, toResultJSON(results))
	}
	for _, res := range results {
		_, _ = fmt.Fprintf(stdout, "%s: collected %d items\n", res.Kind, res.Total)
	}
	printResult(cfg, stdout, ResultActionCompleted)
	return nil
}

// newStatusCmd creates the 'status' subcommand
func newStatusCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the cached lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return doStatus(context.Background(), a, cfg, stdout, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func doStatus(ctx context.Context, a *app, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	statuses, err := a.syncer.Status(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(stdout, statuses)
	}

	_, _ = fmt.Fprintf(stdout, "%-8s %-7s %-10s %s\n", "LIST", "ITEMS", "LAST ID", "UPDATED")
	for _, st := range statuses {
		lastID := "-"
		if st.LastID != nil {
			lastID = fmt.Sprintf("%d", *st.LastID)
		}
		updated := "never"
		if st.UpdatedAt != nil {
			updated = st.UpdatedAt.Local().Format(views.DefaultDateFormat)
		}
		_, _ = fmt.Fprintf(stdout, "%-8s %-7d %-10s %s\n", st.Kind, st.Count, lastID, updated)
	}
	printResult(cfg, stdout, ResultInfoOnly)
	return nil
}

// newListCmd creates the 'list' subcommand
func newListCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <rated|wish|hate>",
		Short: "Show the cached items of a list",
		Long:  "Show the cached items of a list. --details resolves catalog metadata through the item cache.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			filter, _ := cmd.Flags().GetString("filter")
			details, _ := cmd.Flags().GetBool("details")

			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return doList(context.Background(), a, kind, filter, details, cfg, stdout, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("filter", "f", "", "Only show items whose name contains the text")
	cmd.Flags().Bool("details", false, "Show genre, medium and age rating of every item")
	return cmd
}

func doList(ctx context.Context, a *app, kind backend.ListKind, filter string, details bool, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	lc, err := backend.LoadCache(ctx, a.store, kind)
	if err != nil {
		return err
	}
	items := views.FilterByName(lc.Items, filter)

	if !details {
		if err := views.NewRenderer(stdout, jsonOutput).List(lc, items); err != nil {
			return err
		}
		if !jsonOutput {
			printResult(cfg, stdout, ResultInfoOnly)
		}
		return nil
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	infos, err := a.items.Resolve(ctx, ids)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(stdout, map[string]any{"kind": kind, "count": len(infos), "items": infos})
	}

	_, _ = fmt.Fprintf(stdout, "%s: %d items\n", kind, len(infos))
	for i, info := range infos {
		age := "-"
		if info.Rating != nil {
			age = views.AgeRatingLabel(*info.Rating)
		}
		name := info.Name
		if name == cache.Placeholder(info.ID).Name && items[i].Name != "" {
			name = items[i].Name
		}
		line := fmt.Sprintf("  %-8d [%-3s] %s", info.ID, age, name)
		if info.Medium != "" {
			line += fmt.Sprintf(" (%s)", info.Medium)
		}
		if len(info.Genre) > 0 {
			line += " - " + strings.Join(info.Genre, ", ")
		}
		if items[i].Rating > 0 {
			line += fmt.Sprintf(" ★%d", items[i].Rating)
		}
		_, _ = fmt.Fprintln(stdout, line)
	}
	printResult(cfg, stdout, ResultInfoOnly)
	return nil
}

// newResetCmd creates the 'reset' subcommand
func newResetCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <rated|wish|hate|all>",
		Short: "Delete cached list state",
		Long:  "Delete the local cache of a list. The next sync traverses the whole remote list again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := backend.Kinds()
			if !strings.EqualFold(args[0], "all") {
				kind, err := parseKind(args[0])
				if err != nil {
					return err
				}
				kinds = []backend.ListKind{kind}
			}
			itemCache, _ := cmd.Flags().GetBool("item-cache")

			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return doReset(context.Background(), a, kinds, itemCache, cfg, stdout)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Bool("item-cache", false, "Also clear cached item metadata")
	return cmd
}

func doReset(ctx context.Context, a *app, kinds []backend.ListKind, itemCache bool, cfg *Config, stdout io.Writer) error {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	if !confirm(cfg, stdout, fmt.Sprintf("Delete cached %s list data?", strings.Join(names, ", "))) {
		_, _ = fmt.Fprintln(stdout, "Cancelled")
		printResult(cfg, stdout, ResultInfoOnly)
		return nil
	}

	for _, kind := range kinds {
		if err := a.syncer.Reset(ctx, kind); err != nil {
			return friendlyError(err, kind)
		}
		_, _ = fmt.Fprintf(stdout, "Reset %s list\n", kind)
	}
	if itemCache {
		if err := a.items.Clear(ctx); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout, "Cleared item cache")
	}
	printResult(cfg, stdout, ResultActionCompleted)
	return nil
}
