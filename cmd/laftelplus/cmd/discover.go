package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/tui"
	"github.com/DOCHIS/laftel-plus/internal/utils"
	"github.com/DOCHIS/laftel-plus/internal/views"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// newDiscoverCmd creates the 'discover' subcommand
func newDiscoverCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Search the catalog with your lists applied",
		Long: `Search the Laftel catalog and mark or hide items from your rated, wish and hate lists.

Filters take "+value" to include and "-value" to exclude, e.g. --genre +액션 --genre -개그.
Without filter flags the saved filters are used; --save stores the ones given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := context.Background()
			q, err := views.LoadQuery(ctx, a.store)
			if err != nil {
				return err
			}
			applyQueryFlags(cmd, &q)

			if save, _ := cmd.Flags().GetBool("save"); save {
				if err := views.SaveQuery(ctx, a.store, q); err != nil {
					return err
				}
			}

			settings, err := backend.LoadSettings(ctx, a.store)
			if err != nil {
				return err
			}
			opts := views.OptionsFromSettings(settings)
			if cmd.Flags().Changed("show-rated") {
				show, _ := cmd.Flags().GetBool("show-rated")
				opts.ExcludeRated = !show
			}
			if cmd.Flags().Changed("show-hate") {
				show, _ := cmd.Flags().GetBool("show-hate")
				opts.ExcludeHate = !show
			}

			return doDiscover(ctx, a, q, opts, cfg, stdout, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringArray("genre", nil, "Genre filter (+include / -exclude, comma separated)")
	cmd.Flags().StringArray("tag", nil, "Tag filter (+include / -exclude, comma separated)")
	cmd.Flags().StringArray("year", nil, "Year filter such as 2024년 1분기 (+include / -exclude)")
	cmd.Flags().StringSlice("ending", nil, "Ending filter values")
	cmd.Flags().String("sort", "", "Sort order (rank, name, recent, cnt_eval, avg_rating)")
	cmd.Flags().StringP("keyword", "k", "", "Search keyword")
	cmd.Flags().Int("offset", 0, "Result offset")
	cmd.Flags().Int("size", backend.DefaultDiscoverPageSize, "Results per request")
	cmd.Flags().Bool("viewable", true, "Only show items that can be watched")
	cmd.Flags().Bool("svod", false, "Only show subscription items")
	cmd.Flags().Bool("show-rated", false, "Show rated items regardless of settings")
	cmd.Flags().Bool("show-hate", false, "Show hated items regardless of settings")
	cmd.Flags().Bool("save", false, "Save the given filters for later searches")

	cmd.AddCommand(newDiscoverOptionsCmd(stdout, cfg))
	cmd.AddCommand(newDiscoverFilterCmd(stdout, cfg))
	return cmd
}

// applyQueryFlags overrides saved query fields with the flags that were set
func applyQueryFlags(cmd *cobra.Command, q *backend.DiscoverQuery) {
	flags := cmd.Flags()
	if flags.Changed("genre") {
		v, _ := flags.GetStringArray("genre")
		q.Genres = views.ParseFilterArgs(v)
	}
	if flags.Changed("tag") {
		v, _ := flags.GetStringArray("tag")
		q.Tags = views.ParseFilterArgs(v)
	}
	if flags.Changed("year") {
		v, _ := flags.GetStringArray("year")
		q.Years = views.ParseFilterArgs(v)
	}
	if flags.Changed("ending") {
		q.Ending, _ = flags.GetStringSlice("ending")
	}
	if flags.Changed("sort") {
		q.Sort, _ = flags.GetString("sort")
	}
	if flags.Changed("viewable") {
		q.Viewable, _ = flags.GetBool("viewable")
	}
	if flags.Changed("svod") {
		q.Svod, _ = flags.GetBool("svod")
	}
	q.Keyword, _ = flags.GetString("keyword")
	q.Offset, _ = flags.GetInt("offset")
	q.Size, _ = flags.GetInt("size")
}

func doDiscover(ctx context.Context, a *app, q backend.DiscoverQuery, opts views.Options, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	page, err := a.client.Discover(ctx, q)
	if err != nil {
		return friendlyError(err, "")
	}
	lk, err := views.LoadLookups(ctx, a.store)
	if err != nil {
		return err
	}

	cards := views.Apply(page.Results, lk, opts)
	if err := views.NewRenderer(stdout, jsonOutput).Cards(cards, page.Count); err != nil {
		return err
	}
	if !jsonOutput {
		printResult(cfg, stdout, ResultInfoOnly)
	}
	return nil
}

// newDiscoverOptionsCmd creates 'discover options'
func newDiscoverOptionsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the selectable genres, tags and years",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := context.Background()
			options, err := a.client.DiscoverOptions(ctx)
			if err != nil {
				return friendlyError(err, "")
			}
			q, err := views.LoadQuery(ctx, a.store)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				return writeJSON(stdout, options)
			}
			printOptions(stdout, "Genres", options.Genres, q.Genres)
			printOptions(stdout, "Tags", options.Tags, q.Tags)
			printOptions(stdout, "Years", options.Years, q.Years)
			printResult(cfg, stdout, ResultInfoOnly)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// printOptions lists values marking the saved include (+) and exclude (-) state
func printOptions(stdout io.Writer, title string, values []string, set backend.FilterSet) {
	_, _ = fmt.Fprintf(stdout, "%s:\n", title)
	for _, v := range values {
		mark := " "
		switch set.State(v) {
		case "include":
			mark = "+"
		case "exclude":
			mark = "-"
		}
		_, _ = fmt.Fprintf(stdout, "  %s %s\n", mark, v)
	}
}

// newDiscoverFilterCmd creates 'discover filter', which cycles a saved filter value
func newDiscoverFilterCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "filter <genre|tag|year> <value>",
		Short: "Cycle a saved filter value through include, exclude and off",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx := context.Background()
			q, err := views.LoadQuery(ctx, a.store)
			if err != nil {
				return err
			}

			var set *backend.FilterSet
			switch strings.ToLower(args[0]) {
			case "genre", "genres":
				set = &q.Genres
			case "tag", "tags":
				set = &q.Tags
			case "year", "years":
				set = &q.Years
			default:
				return utils.ErrInvalidSetting(args[0], []string{"genre", "tag", "year"})
			}
			*set = views.CycleFilter(*set, args[1])
			if err := views.SaveQuery(ctx, a.store, q); err != nil {
				return err
			}

			state := set.State(args[1])
			if state == "" {
				state = "off"
			}
			if isJSON(cmd) {
				return writeJSON(stdout, map[string]any{"filter": args[0], "value": args[1], "state": state})
			}
			_, _ = fmt.Fprintf(stdout, "%s %s: %s\n", args[0], args[1], state)
			printResult(cfg, stdout, ResultActionCompleted)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// settingKeys are the accepted names of each setting
var settingKeys = map[string]string{
	"hide-rated": "hide-rated",
	"hiderated":  "hide-rated",
	"hide_rated": "hide-rated",
	"hide-hate":  "hide-hate",
	"hidehate":   "hide-hate",
	"hide_hate":  "hide-hate",
}

// newSettingsCmd creates the 'settings' subcommand
func newSettingsCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "settings [key] [value]",
		Short: "Show or change display settings",
		Long:  "Show or change the persisted display settings hide-rated and hide-hate.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg, openOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return doSettings(context.Background(), a, args, cfg, stdout, isJSON(cmd))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func doSettings(ctx context.Context, a *app, args []string, cfg *Config, stdout io.Writer, jsonOutput bool) error {
	settings, err := backend.LoadSettings(ctx, a.store)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if jsonOutput {
			return writeJSON(stdout, settings)
		}
		_, _ = fmt.Fprintf(stdout, "hide-rated: %t\n", settings.HideRated)
		_, _ = fmt.Fprintf(stdout, "hide-hate: %t\n", settings.HideHate)
		printResult(cfg, stdout, ResultInfoOnly)
		return nil
	}

	key, ok := settingKeys[strings.ToLower(args[0])]
	if !ok {
		return utils.ErrInvalidSetting(args[0], []string{"hide-rated", "hide-hate"})
	}
	field := &settings.HideRated
	if key == "hide-hate" {
		field = &settings.HideHate
	}

	if len(args) == 1 {
		if jsonOutput {
			return writeJSON(stdout, map[string]any{"key": key, "value": *field})
		}
		_, _ = fmt.Fprintf(stdout, "%s: %t\n", key, *field)
		printResult(cfg, stdout, ResultInfoOnly)
		return nil
	}

	value, err := strconv.ParseBool(args[1])
	if err != nil {
		return utils.ErrInvalidSetting(key+"="+args[1], []string{"true", "false"})
	}
	*field = value
	if err := backend.SaveSettings(ctx, a.store, settings); err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(stdout, map[string]any{"key": key, "value": value, "result": ResultActionCompleted})
	}
	_, _ = fmt.Fprintf(stdout, "%s set to %t\n", key, value)
	printResult(cfg, stdout, ResultActionCompleted)
	return nil
}

// newTUICmd creates the 'tui' subcommand
func newTUICmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse the catalog interactively",
		Long:  "Open a terminal browser over the catalog using the saved filters. Press ? for keys.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cfg, openOptions{watchStore: true})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := a.interruptible()
			defer stop()

			q, err := views.LoadQuery(ctx, a.store)
			if err != nil {
				return err
			}
			model := tui.New(tui.NewService(a.client, a.syncer), q).WithContext(ctx)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return friendlyError(err, "")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}
