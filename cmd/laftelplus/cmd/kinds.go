package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/analytics"
	"github.com/DOCHIS/laftel-plus/internal/backup"
	"github.com/DOCHIS/laftel-plus/internal/cache"
	"github.com/DOCHIS/laftel-plus/internal/cli/prompt"
	"github.com/DOCHIS/laftel-plus/internal/listsync"
	"github.com/DOCHIS/laftel-plus/internal/utils"
	"github.com/spf13/cobra"
)

// newKindCmd creates the management command of a togglable list ('wish' or 'hate')
func newKindCmd(kind backend.ListKind, stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	kindCmd := &cobra.Command{
		Use:   string(kind),
		Short: fmt.Sprintf("Manage the %s list", kind),
		Long:  fmt.Sprintf("Add and remove %s list items on Laftel, clear the list, or back it up.", kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	kindCmd.AddCommand(newMembershipCmd(kind, true, stdout, cfg))
	kindCmd.AddCommand(newMembershipCmd(kind, false, stdout, cfg))
	kindCmd.AddCommand(newClearCmd(kind, stdout, stderr, cfg))
	kindCmd.AddCommand(newExportCmd(kind, stdout, stderr, cfg))
	kindCmd.AddCommand(newImportCmd(kind, stdout, cfg))

	return kindCmd
}

// parseItemID validates an item id argument
func parseItemID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id: %s", s)
	}
	return id, nil
}

// newMembershipCmd creates '<kind> add' or '<kind> remove'
func newMembershipCmd(kind backend.ListKind, present bool, stdout io.Writer, cfg *Config) *cobra.Command {
	use, short := "remove [item-id]", fmt.Sprintf("Remove an item from the %s list", kind)
	argCheck := cobra.MaximumNArgs(1)
	if present {
		use, short = "add <item-id> [name]", fmt.Sprintf("Add an item to the %s list", kind)
		argCheck = cobra.RangeArgs(1, 2)
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Long: fmt.Sprintf("%s. Without an item id, remove asks for a name filter and lets you pick "+
			"from the cached %s list.", short, kind),
		Args: argCheck,
		RunE: func(cmd *cobra.Command, args []string) error {
			var item backend.ListItem
			if len(args) > 0 {
				id, err := parseItemID(args[0])
				if err != nil {
					return err
				}
				item.ID = id
			}
			if len(args) > 1 {
				item.Name = args[1]
			}

			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := context.Background()
			if !present {
				if item, err = pickCachedItem(ctx, a, kind, item.ID, cfg, stdout); err != nil {
					return err
				}
			}
			return doSetMembership(ctx, a, kind, item, present, cfg, stdout, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// pickCachedItem returns the cached entry for id, or asks the user to pick one when id is 0
func pickCachedItem(ctx context.Context, a *app, kind backend.ListKind, id int64, cfg *Config, stdout io.Writer) (backend.ListItem, error) {
	lc, err := backend.LoadCache(ctx, a.store, kind)
	if err != nil {
		return backend.ListItem{}, err
	}

	if id != 0 {
		for _, item := range lc.Items {
			if item.ID == id {
				return item, nil
			}
		}
		return backend.ListItem{ID: id}, nil
	}

	selector := &prompt.ItemSelector{
		Items:    lc.Items,
		Prompt:   fmt.Sprintf("Select the %s list item to remove:", kind),
		Reader:   stdinOf(cfg),
		Writer:   stdout,
		NoPrompt: cfg.NoPrompt,
	}
	selected, err := selector.Run()
	if errors.Is(err, prompt.ErrNoPromptMode) {
		return backend.ListItem{}, errors.New("an item id is required in no-prompt mode")
	}
	if err != nil {
		return backend.ListItem{}, err
	}
	return *selected, nil
}

func doSetMembership(ctx context.Context, a *app, kind backend.ListKind, item backend.ListItem, present bool, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	// Cached entries carry a display name; look it up when the user gave none
	if present && item.Name == "" {
		info, err := a.items.Info(ctx, item.ID)
		if err == nil && info.Name != cache.Placeholder(item.ID).Name {
			item.Name = info.Name
			item.Img = info.Img
		}
	}

	changed, err := a.syncer.SetMembership(ctx, kind, item, present)
	if err != nil {
		return friendlyError(err, kind)
	}

	action := "removed"
	if present {
		action = "added"
	}
	if jsonOutput {
		return writeJSON(stdout, map[string]any{
			"kind":    kind,
			"id":      item.ID,
			"action":  action,
			"changed": changed,
			"result":  ResultActionCompleted,
		})
	}

	label := strconv.FormatInt(item.ID, 10)
	if item.Name != "" {
		label = fmt.Sprintf("%s (%d)", item.Name, item.ID)
	}
	switch {
	case !changed && present:
		_, _ = fmt.Fprintf(stdout, "%s is already in the %s list\n", label, kind)
		printResult(cfg, stdout, ResultInfoOnly)
		return nil
	case !changed:
		_, _ = fmt.Fprintf(stdout, "%s is not in the %s list\n", label, kind)
		printResult(cfg, stdout, ResultInfoOnly)
		return nil
	case present:
		_, _ = fmt.Fprintf(stdout, "Added %s to the %s list\n", label, kind)
	default:
		_, _ = fmt.Fprintf(stdout, "Removed %s from the %s list\n", label, kind)
	}
	printResult(cfg, stdout, ResultActionCompleted)
	return nil
}

// newClearCmd creates '<kind> clear'
func newClearCmd(kind backend.ListKind, stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: fmt.Sprintf("Remove every item of the %s list from Laftel", kind),
		Long:  "Remove every cached item one request at a time. Interrupting keeps the items not yet removed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := a.interruptible()
			defer stop()
			return doClear(ctx, a, kind, cfg, stdout, stderr, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func doClear(ctx context.Context, a *app, kind backend.ListKind, cfg *Config, stdout, stderr io.Writer, jsonOutput bool) error {
	lc, err := backend.LoadCache(ctx, a.store, kind)
	if err != nil {
		return err
	}
	if len(lc.Items) == 0 {
		_, _ = fmt.Fprintf(stdout, "The %s list is empty\n", kind)
		printResult(cfg, stdout, ResultInfoOnly)
		return nil
	}
	if !confirm(cfg, stdout, fmt.Sprintf("Remove all %d items from the %s list?", len(lc.Items), kind)) {
		_, _ = fmt.Fprintln(stdout, "Cancelled")
		printResult(cfg, stdout, ResultInfoOnly)
		return nil
	}

	progress := func(done, total int, item backend.ListItem, err error) {
		if jsonOutput {
			return
		}
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "[%d/%d] failed to remove %d: %v\n", done, total, item.ID, err)
			return
		}
		_, _ = fmt.Fprintf(stderr, "[%d/%d] removed %d\n", done, total, item.ID)
	}

	var res *listsync.BulkResult
	runErr := a.history.Track(analytics.OpClear, kind, func() (analytics.Stats, error) {
		var err error
		res, err = a.syncer.ClearAll(ctx, kind, listsync.BulkProgress(progress))
		if res == nil {
			return analytics.Stats{}, err
		}
		// fetched counts the attempted items, total what is left cached
		return analytics.Stats{Fetched: res.Total, Total: res.Total - res.Completed}, err
	})
	if res != nil {
		if jsonOutput && runErr == nil {
			return writeJSON(stdout, map[string]any{
				"kind":      res.Kind,
				"total":     res.Total,
				"completed": res.Completed,
				"failed":    res.Failed,
				"skipped":   res.Skipped,
			})
		}
		if !jsonOutput {
			_, _ = fmt.Fprintf(stdout, "Removed %d of %d items from the %s list", res.Completed, res.Total, kind)
			if len(res.Failed) > 0 {
				_, _ = fmt.Fprintf(stdout, " (%d failed)", len(res.Failed))
			}
			if res.Skipped > 0 {
				_, _ = fmt.Fprintf(stdout, " (%d not attempted)", res.Skipped)
			}
			_, _ = fmt.Fprintln(stdout)
		}
	}
	if runErr != nil {
		return friendlyError(runErr, kind)
	}
	printResult(cfg, stdout, ResultActionCompleted)
	return nil
}

// newExportCmd creates '<kind> export'
func newExportCmd(kind backend.ListKind, stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: fmt.Sprintf("Write a backup of the %s list", kind),
		Long:  "Write the cached list as base64 encoded JSON. With --output naming a directory the file gets a dated name.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return doExport(context.Background(), a, kind, output, cfg, stdout, stderr)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("output", "o", "", "File or directory to write the backup to (default: stdout)")
	return cmd
}

func doExport(ctx context.Context, a *app, kind backend.ListKind, output string, cfg *Config, stdout, stderr io.Writer) error {
	payload, count, err := backup.Export(ctx, a.store, kind)
	if err != nil {
		return err
	}

	if output == "" || output == "-" {
		_, _ = fmt.Fprintln(stdout, payload)
		return nil
	}

	if info, err := os.Stat(output); err == nil && info.IsDir() {
		output = filepath.Join(output, backup.Filename(time.Now()))
	}
	if err := os.WriteFile(output, []byte(payload), 0600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "Exported %d items of the %s list to %s\n", count, kind, output)
	printResult(cfg, stdout, ResultActionCompleted)
	return nil
}

// newImportCmd creates '<kind> import'
func newImportCmd(kind backend.ListKind, stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: fmt.Sprintf("Restore the %s list from a backup", kind),
		Long:  "Restore the cached list from an export. Reads stdin when no file is given. Only the local cache is changed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			merge, _ := cmd.Flags().GetBool("merge")
			mode := backup.ModeReplace
			if merge {
				mode = backup.ModeMerge
			}

			var data []byte
			var err error
			fromStdin := len(args) == 0 || args[0] == "-"
			if fromStdin {
				data, err = io.ReadAll(stdinOf(cfg))
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read backup: %w", err)
			}

			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return doImport(context.Background(), a, kind, string(data), mode, fromStdin, cfg, stdout, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Bool("merge", false, "Append items not already in the list instead of replacing it")
	return cmd
}

func doImport(ctx context.Context, a *app, kind backend.ListKind, payload string, mode backup.Mode, fromStdin bool, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	if mode == backup.ModeReplace {
		lc, err := backend.LoadCache(ctx, a.store, kind)
		if err != nil {
			return err
		}
		if n := len(lc.Items); n > 0 {
			// stdin already held the payload, so there is nobody left to answer
			if fromStdin && !cfg.NoPrompt {
				return utils.ErrConfirmationRequired(fmt.Sprintf("replacing %d cached %s items from stdin", n, kind))
			}
			if !confirm(cfg, stdout, fmt.Sprintf("Replace %d cached %s items?", n, kind)) {
				_, _ = fmt.Fprintln(stdout, "Cancelled")
				printResult(cfg, stdout, ResultInfoOnly)
				return nil
			}
		}
	}

	total, err := backup.Import(ctx, a.store, kind, payload, mode)
	if err != nil {
		return friendlyError(err, kind)
	}

	if jsonOutput {
		return writeJSON(stdout, map[string]any{"kind": kind, "mode": mode.String(), "total": total, "result": ResultActionCompleted})
	}
	_, _ = fmt.Fprintf(stdout, "Imported %s list (%s): %d items\n", kind, mode, total)
	printResult(cfg, stdout, ResultActionCompleted)
	return nil
}
