package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/DOCHIS/laftel-plus/internal/analytics"
	"github.com/DOCHIS/laftel-plus/internal/utils"
	"github.com/DOCHIS/laftel-plus/internal/views"
	"github.com/spf13/cobra"
)

// newHistoryCmd creates the 'history' subcommand
func newHistoryCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [rated|wish|hate]",
		Short: "Show recent sync runs",
		Long: `Show the recorded sync, collect, clear and watch runs, newest first.
For clear runs FETCHED is the number of attempted items and TOTAL what is left cached.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := ""
			if len(args) == 1 {
				k, err := parseKind(args[0])
				if err != nil {
					return err
				}
				kind = string(k)
			}
			limit, _ := cmd.Flags().GetInt("limit")
			summary, _ := cmd.Flags().GetBool("summary")

			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if !a.history.Enabled() {
				return utils.ErrHistoryDisabled()
			}
			if summary {
				return doHistorySummary(context.Background(), a, cfg, stdout, isJSON(cmd))
			}
			return doHistory(context.Background(), a, kind, limit, cfg, stdout, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	cmd.Flags().Bool("summary", false, "Aggregate the runs per list")
	return cmd
}

func doHistory(ctx context.Context, a *app, kind string, limit int, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	runs, err := a.history.Recent(ctx, kind, limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		if runs == nil {
			runs = []analytics.Run{}
		}
		return writeJSON(stdout, map[string]any{"runs": runs})
	}

	if len(runs) == 0 {
		_, _ = fmt.Fprintln(stdout, "No runs recorded")
		printResult(cfg, stdout, ResultInfoOnly)
		return nil
	}

	_, _ = fmt.Fprintf(stdout, "%-16s %-8s %-6s %-8s %-7s %-5s %-5s %s\n",
		"TIME", "OP", "LIST", "FETCHED", "ADDED", "TOTAL", "MS", "RESULT")
	for _, r := range runs {
		result := "ok"
		if !r.Success {
			result = "failed (" + r.ErrorType + ")"
		}
		_, _ = fmt.Fprintf(stdout, "%-16s %-8s %-6s %-8d %-7d %-5d %-5d %s\n",
			time.Unix(r.Timestamp, 0).Local().Format(views.DefaultDateFormat),
			r.Operation, r.Kind, r.Fetched, r.Added, r.Total, r.DurationMs, result)
	}
	printResult(cfg, stdout, ResultInfoOnly)
	return nil
}

func doHistorySummary(ctx context.Context, a *app, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	summary, err := a.history.Summary(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		if summary == nil {
			summary = []analytics.KindSummary{}
		}
		return writeJSON(stdout, map[string]any{"lists": summary})
	}

	if len(summary) == 0 {
		_, _ = fmt.Fprintln(stdout, "No runs recorded")
		printResult(cfg, stdout, ResultInfoOnly)
		return nil
	}

	for _, s := range summary {
		last := "never"
		if s.LastSuccess > 0 {
			last = time.Unix(s.LastSuccess, 0).Local().Format(views.DefaultDateFormat)
		}
		_, _ = fmt.Fprintf(stdout, "%s: %d runs, %d failed (%.0f%% ok), %d added, last success %s\n",
			s.Kind, s.Runs, s.Failures, s.SuccessRate*100, s.Added, last)
	}
	printResult(cfg, stdout, ResultInfoOnly)
	return nil
}
