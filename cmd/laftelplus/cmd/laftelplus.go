package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/backend/file"
	"github.com/DOCHIS/laftel-plus/backend/laftel"
	"github.com/DOCHIS/laftel-plus/backend/sqlite"
	"github.com/DOCHIS/laftel-plus/internal/analytics"
	"github.com/DOCHIS/laftel-plus/internal/cache"
	"github.com/DOCHIS/laftel-plus/internal/cli/prompt"
	"github.com/DOCHIS/laftel-plus/internal/config"
	"github.com/DOCHIS/laftel-plus/internal/credentials"
	"github.com/DOCHIS/laftel-plus/internal/listsync"
	"github.com/DOCHIS/laftel-plus/internal/ratelimit"
	"github.com/DOCHIS/laftel-plus/internal/shutdown"
	"github.com/DOCHIS/laftel-plus/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information, set at build time
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Result codes for CLI output (used in no-prompt mode)
const (
	ResultActionCompleted = "ACTION_COMPLETED"
	ResultInfoOnly        = "INFO_ONLY"
	ResultError           = "ERROR"
)

// Config holds application configuration
type Config struct {
	NoPrompt     bool
	Verbose      bool
	OutputFormat string
	ConfigPath   string // Path to config file (for testing)
	StorePath    string // Overrides the configured cache location (for testing)
	BaseURL      string // Overrides the Laftel API base URL (for testing)

	Keyring credentials.Keyring        // nil uses the system keyring
	Getenv  func(string) string        // nil uses os.Getenv
	Stdin   io.Reader                  // nil uses os.Stdin
	TTY     credentials.TerminalReader // hidden token input; nil reads a line from Stdin
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewLaftelPlus(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		if containsJSONFlag(args) {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			if cfg != nil && cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultError)
			}
		}
		return 1
	}
	return 0
}

// containsJSONFlag checks if args contain --json flag
func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

// NewLaftelPlus creates the root command with injectable IO
func NewLaftelPlus(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "laftelplus",
		Short:   "Laftel list sync and catalog filter",
		Long:    "laftelplus keeps local copies of your Laftel rated, wish and hate lists and filters the catalog against them.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			noPrompt, _ := cmd.Flags().GetBool("no-prompt")
			if noPrompt {
				cfg.NoPrompt = true
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				cfg.Verbose = true
			}
			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				cfg.OutputFormat = "json"
			}
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				cfg.ConfigPath = path
			}
			utils.GetLogger().SetOutput(stderr)
			utils.SetVerboseMode(cfg.Verbose)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("no-prompt", "y", false, "Disable interactive prompts")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().String("config", "", "Path to config file")

	cmd.AddCommand(newSyncCmd(stdout, stderr, cfg))
	cmd.AddCommand(newCollectCmd(stdout, stderr, cfg))
	cmd.AddCommand(newStatusCmd(stdout, cfg))
	cmd.AddCommand(newListCmd(stdout, cfg))
	cmd.AddCommand(newResetCmd(stdout, cfg))
	cmd.AddCommand(newKindCmd(backend.KindWish, stdout, stderr, cfg))
	cmd.AddCommand(newKindCmd(backend.KindHate, stdout, stderr, cfg))
	cmd.AddCommand(newDiscoverCmd(stdout, cfg))
	cmd.AddCommand(newSettingsCmd(stdout, cfg))
	cmd.AddCommand(newCredentialsCmd(stdout, cfg))
	cmd.AddCommand(newWatchCmd(stdout, stderr, cfg))
	cmd.AddCommand(newNotificationsCmd(stdout, cfg))
	cmd.AddCommand(newHistoryCmd(stdout, cfg))
	cmd.AddCommand(newTUICmd(cfg))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// app bundles the components one command invocation works with
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    backend.Store
	tokens   *credentials.Manager
	client   *laftel.Client
	syncer   *listsync.Syncer
	items    *cache.Resolver
	history  *analytics.Tracker
	limits   *ratelimit.Stats
	shutdown *shutdown.Manager
}

type openOptions struct {
	watchStore bool           // publish external changes of file stores
	config     *config.Config // already loaded configuration
	log        *zap.Logger
}

// loadConfig reads the config file and applies test overrides
func loadConfig(cfg *Config) (*config.Config, error) {
	appCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if cfg.StorePath != "" {
		appCfg.Store.Path = cfg.StorePath
	}
	if cfg.BaseURL != "" {
		appCfg.API.BaseURL = cfg.BaseURL
	}
	appCfg.ApplyFlags(cfg.NoPrompt, cfg.OutputFormat)
	if err := appCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if strings.EqualFold(appCfg.Logging.Level, "debug") {
		utils.SetVerboseMode(true)
	}
	if err := utils.GetLogger().SetFormat(appCfg.Logging.Format); err != nil {
		return nil, err
	}
	return appCfg, nil
}

// tokenManager returns the credential manager honoring test injection
func tokenManager(cfg *Config) *credentials.Manager {
	var opts []credentials.ManagerOption
	if cfg.Keyring != nil {
		opts = append(opts, credentials.WithKeyring(cfg.Keyring))
	}
	if cfg.Getenv != nil {
		opts = append(opts, credentials.WithEnv(cfg.Getenv))
	}
	return credentials.NewManager(opts...)
}

// openApp wires the store, the API client, the item cache and the syncer
func openApp(cfg *Config, opts openOptions) (*app, error) {
	appCfg := opts.config
	if appCfg == nil {
		var err error
		if appCfg, err = loadConfig(cfg); err != nil {
			return nil, err
		}
	}

	log := opts.log
	if log == nil {
		log = utils.Zap()
	}

	store, err := openStore(appCfg, opts.watchStore, log)
	if err != nil {
		return nil, err
	}

	tokens := tokenManager(cfg)
	limits := ratelimit.NewStats()
	client, err := laftel.New(laftel.Config{
		BaseURL:    appCfg.API.BaseURL,
		Tokens:     tokens,
		Timeout:    appCfg.GetAPITimeout(),
		MaxRetries: appCfg.GetMaxRetries(),
		Stats:      limits,
		Logger:     log.Named("laftel"),
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	items := cache.NewResolver(store, client, appCfg.GetCacheTTLDuration(), log.Named("items"))
	syncer := listsync.New(store, client, listsync.Options{
		PageSize:     appCfg.GetPageSize(),
		MaxPages:     appCfg.GetMaxPages(),
		FullPageSize: appCfg.GetFullPageSize(),
		BulkDelay:    appCfg.GetBulkDelay(),
		Recorder:     items,
		Logger:       log.Named("sync"),
	})

	history := openHistory(appCfg, log)

	sm := shutdown.NewManager(log)
	sm.RegisterCleanup("store", func(ctx context.Context) error {
		return store.Close()
	})
	sm.RegisterCleanup("history", func(ctx context.Context) error {
		return history.Close()
	})

	return &app{
		cfg:      appCfg,
		log:      log,
		store:    store,
		tokens:   tokens,
		client:   client,
		syncer:   syncer,
		items:    items,
		history:  history,
		limits:   limits,
		shutdown: sm,
	}, nil
}

// Close runs the registered cleanups, closing the store
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.shutdown.Wait(ctx)
}

// interruptible returns a context cancelled on SIGINT/SIGTERM and a function releasing the handler
func (a *app) interruptible() (context.Context, func()) {
	stop := a.shutdown.HandleSignals()
	return a.shutdown.Context(), stop
}

// openHistory opens the run history. A history that cannot be opened is
// disabled rather than failing the command.
func openHistory(cfg *config.Config, log *zap.Logger) *analytics.Tracker {
	tracker, err := analytics.NewTracker(cfg.GetHistoryPath(), cfg.IsHistoryEnabled())
	if err != nil {
		log.Warn("run history disabled", zap.Error(err))
		tracker, _ = analytics.NewTracker("", false)
		return tracker
	}
	if deleted, err := tracker.Cleanup(cfg.GetHistoryRetentionDays()); err != nil {
		log.Debug("history cleanup failed", zap.Error(err))
	} else if deleted > 0 {
		log.Debug("pruned run history", zap.Int64("runs", deleted))
	}
	return tracker
}

// openStore creates the configured cache store
func openStore(cfg *config.Config, watch bool, log *zap.Logger) (backend.Store, error) {
	path := cfg.GetStorePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}

	switch cfg.Store.Backend {
	case "file":
		return file.New(file.Config{FilePath: path, Watch: watch, Logger: log.Named("store")})
	case "sqlite", "":
		return sqlite.New(path)
	}
	return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
}

// parseKind converts a list argument into a kind with a user-facing error
func parseKind(name string) (backend.ListKind, error) {
	kind, err := backend.ParseListKind(name)
	if err != nil {
		return "", utils.ErrUnknownListKind(name)
	}
	return kind, nil
}

// friendlyError maps domain errors onto errors carrying a suggestion
func friendlyError(err error, kind backend.ListKind) error {
	if err == nil {
		return nil
	}

	var suggested *utils.ErrorWithSuggestion
	if errors.As(err, &suggested) {
		return err
	}

	var formatErr *backend.FormatError
	var remoteErr *backend.RemoteError
	switch {
	case backend.IsAuth(err):
		return utils.ErrNotLoggedIn()
	case errors.Is(err, backend.ErrSyncInProgress):
		return utils.ErrSyncBusy(string(kind))
	case errors.Is(err, backend.ErrUnsupportedKind):
		if kind == "" {
			return err
		}
		return utils.ErrListNotSyncable(string(kind))
	case errors.As(err, &formatErr):
		return utils.ErrInvalidBackup(formatErr.Reason)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("interrupted: %w", err)
	case errors.As(err, &remoteErr):
		return utils.ErrRemoteFailure(remoteErr.Op, remoteErr.Error())
	}
	return err
}

// confirm asks a yes/no question unless prompts are disabled
func confirm(cfg *Config, stdout io.Writer, question string) bool {
	return prompt.Confirm(stdinOf(cfg), stdout, question, cfg.NoPrompt)
}

func stdinOf(cfg *Config) io.Reader {
	if cfg.Stdin != nil {
		return cfg.Stdin
	}
	return os.Stdin
}

func isJSON(cmd *cobra.Command) bool {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return jsonOutput
}

// printResult emits a result code in no-prompt mode
func printResult(cfg *Config, stdout io.Writer, code string) {
	if cfg != nil && cfg.NoPrompt {
		_, _ = fmt.Fprintln(stdout, code)
	}
}

func writeJSON(stdout io.Writer, v any) error {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
	return nil
}

// errorResponse is the JSON shape of a failed command
type errorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
	Code       int    `json:"code"`
	Result     string `json:"result"`
}

// outputErrorJSON outputs error in JSON format
func outputErrorJSON(err error, stdout io.Writer) {
	response := errorResponse{
		Error:  err.Error(),
		Code:   1,
		Result: ResultError,
	}
	var suggested *utils.ErrorWithSuggestion
	if errors.As(err, &suggested) {
		response.Error = suggested.Err.Error()
		response.Suggestion = suggested.GetSuggestion()
	}

	jsonBytes, _ := json.Marshal(response)
	_, _ = fmt.Fprintln(stdout, string(jsonBytes))
}
