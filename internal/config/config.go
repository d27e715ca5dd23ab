// Package config handles application configuration
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// AppName names the XDG directories
const AppName = "laftelplus"

// Defaults used when a key is absent
const (
	DefaultBaseURL          = "https://api.laftel.net"
	DefaultAPITimeout       = 30 * time.Second
	DefaultMaxRetries       = 3
	DefaultPageSize         = 25
	DefaultMaxPages         = 10
	DefaultBulkDelay        = 100 * time.Millisecond
	DefaultCacheTTL         = 7 * 24 * time.Hour
	DefaultWatchInterval    = 30 * time.Minute
	DefaultFailureThreshold = 3
	DefaultWatchCooldown    = 10 * time.Minute

	DefaultNotificationLogMaxSizeMB = 10
	DefaultHistoryRetentionDays     = 90
)

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// APIConfig holds Laftel API settings
type APIConfig struct {
	BaseURL    string `yaml:"base_url" env:"LAFTELPLUS_BASE_URL"`
	Timeout    string `yaml:"timeout" env:"LAFTELPLUS_API_TIMEOUT"`
	MaxRetries int    `yaml:"max_retries" env:"LAFTELPLUS_API_MAX_RETRIES"`
}

// StoreConfig selects the local cache backend
type StoreConfig struct {
	Backend string `yaml:"backend" env:"LAFTELPLUS_STORE_BACKEND"` // sqlite or file
	Path    string `yaml:"path" env:"LAFTELPLUS_STORE_PATH"`
}

// SyncConfig holds list synchronization settings
type SyncConfig struct {
	PageSize     int `yaml:"page_size" env:"LAFTELPLUS_SYNC_PAGE_SIZE"`
	MaxPages     int `yaml:"max_pages" env:"LAFTELPLUS_SYNC_MAX_PAGES"`
	FullPageSize int `yaml:"full_page_size" env:"LAFTELPLUS_SYNC_FULL_PAGE_SIZE"`
}

// BulkConfig holds bulk clear settings
type BulkConfig struct {
	Delay string `yaml:"delay" env:"LAFTELPLUS_BULK_DELAY"`
}

// WatchConfig holds periodic background sync settings
type WatchConfig struct {
	Interval         string `yaml:"interval" env:"LAFTELPLUS_WATCH_INTERVAL"`
	FailureThreshold int    `yaml:"failure_threshold"`
	Cooldown         string `yaml:"cooldown"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level             string `yaml:"level" env:"LAFTELPLUS_LOG_LEVEL"`
	Format            string `yaml:"format" env:"LAFTELPLUS_LOG_FORMAT"`
	BackgroundEnabled *bool  `yaml:"background_enabled"` // Controls background log file creation (default: true)
}

// NotificationConfig controls what the watch runner reports outside the terminal
type NotificationConfig struct {
	Enabled bool                  `yaml:"enabled" env:"LAFTELPLUS_NOTIFICATIONS"`
	OS      OSNotificationConfig  `yaml:"os"`
	Log     LogNotificationConfig `yaml:"log"`
}

// OSNotificationConfig holds desktop notification settings
type OSNotificationConfig struct {
	Enabled     bool `yaml:"enabled"`
	OnNewItems  bool `yaml:"on_new_items"`
	OnSyncError bool `yaml:"on_sync_error"`
}

// LogNotificationConfig holds the notification log file settings
type LogNotificationConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// HistoryConfig controls the local record of sync runs
type HistoryConfig struct {
	Enabled       *bool `yaml:"enabled" env:"LAFTELPLUS_HISTORY"` // default: true
	RetentionDays int   `yaml:"retention_days"`
}

// Config represents the application configuration
type Config struct {
	API           APIConfig          `yaml:"api"`
	Store         StoreConfig        `yaml:"store"`
	Sync          SyncConfig         `yaml:"sync"`
	Bulk          BulkConfig         `yaml:"bulk"`
	CacheTTL      string             `yaml:"cache_ttl" env:"LAFTELPLUS_CACHE_TTL"`
	Watch         WatchConfig        `yaml:"watch"`
	Notifications NotificationConfig `yaml:"notifications"`
	History       HistoryConfig      `yaml:"history"`
	Logging       LoggingConfig      `yaml:"logging"`
	NoPrompt      bool               `yaml:"no_prompt"`
	OutputFormat  string             `yaml:"output_format"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if c.OutputFormat == "" {
		c.OutputFormat = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it creates one from the sample.
// Environment variables override values from the file.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := writeSample(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and defaults
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}
	cfg.applyDefaults()
	cfg.Store.Path = ExpandPath(cfg.Store.Path)
	cfg.Notifications.Log.Path = ExpandPath(cfg.Notifications.Log.Path)
	return cfg, nil
}

// writeSample writes the embedded sample to path
func writeSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %s (must be text or json)", c.OutputFormat)
	}
	if c.Store.Backend != "sqlite" && c.Store.Backend != "file" {
		return fmt.Errorf("invalid store.backend: %s (must be sqlite or file)", c.Store.Backend)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format: %s (must be console or json)", c.Logging.Format)
	}

	var errs []error
	for key, value := range map[string]string{
		"api.timeout":    c.API.Timeout,
		"bulk.delay":     c.Bulk.Delay,
		"cache_ttl":      c.CacheTTL,
		"watch.interval": c.Watch.Interval,
		"watch.cooldown": c.Watch.Cooldown,
	} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %q is not a duration", key, value))
			continue
		}
		if d < 0 {
			errs = append(errs, fmt.Errorf("invalid %s: must not be negative", key))
		}
	}
	for key, value := range map[string]int{
		"api.max_retries":               c.API.MaxRetries,
		"sync.page_size":                c.Sync.PageSize,
		"sync.max_pages":                c.Sync.MaxPages,
		"sync.full_page_size":           c.Sync.FullPageSize,
		"watch.failure_threshold":       c.Watch.FailureThreshold,
		"notifications.log.max_size_mb": c.Notifications.Log.MaxSizeMB,
		"history.retention_days":        c.History.RetentionDays,
	} {
		if value < 0 {
			errs = append(errs, fmt.Errorf("invalid %s: must not be negative", key))
		}
	}
	return errors.Join(errs...)
}

// ApplyFlags applies CLI flag overrides to the configuration
func (c *Config) ApplyFlags(noPrompt bool, outputFormat string) {
	if noPrompt {
		c.NoPrompt = true
	}
	if outputFormat != "" {
		c.OutputFormat = outputFormat
	}
}

// GetStorePath returns the cache location for the configured backend
func (c *Config) GetStorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Store.Backend == "file" {
		return filepath.Join(GetDataDir(), "cache.json")
	}
	return filepath.Join(GetDataDir(), "cache.db")
}

// GetAPITimeout returns the per-request timeout.
// Returns 30 seconds if not configured or if parsing fails.
func (c *Config) GetAPITimeout() time.Duration {
	return parseDuration(c.API.Timeout, DefaultAPITimeout)
}

// GetMaxRetries returns the per-request attempt count.
func (c *Config) GetMaxRetries() int {
	return positive(c.API.MaxRetries, DefaultMaxRetries)
}

// GetPageSize returns the incremental sync page size.
func (c *Config) GetPageSize() int {
	return positive(c.Sync.PageSize, DefaultPageSize)
}

// GetMaxPages returns the incremental sync page cap.
func (c *Config) GetMaxPages() int {
	return positive(c.Sync.MaxPages, DefaultMaxPages)
}

// GetFullPageSize returns the full collection page size.
func (c *Config) GetFullPageSize() int {
	return positive(c.Sync.FullPageSize, DefaultPageSize)
}

// GetBulkDelay returns the spacing between bulk remote calls.
// An explicit "0s" disables the pause.
func (c *Config) GetBulkDelay() time.Duration {
	return parseDuration(c.Bulk.Delay, DefaultBulkDelay)
}

// GetCacheTTL returns the cache TTL setting as a string.
func (c *Config) GetCacheTTL() string {
	if c.CacheTTL == "" {
		return DefaultCacheTTL.String()
	}
	return c.CacheTTL
}

// GetCacheTTLDuration returns the item cache TTL.
// Returns 7 days as default if not configured or if parsing fails.
func (c *Config) GetCacheTTLDuration() time.Duration {
	return parseDuration(c.CacheTTL, DefaultCacheTTL)
}

// GetWatchInterval returns the background sync interval.
func (c *Config) GetWatchInterval() time.Duration {
	d := parseDuration(c.Watch.Interval, DefaultWatchInterval)
	if d <= 0 {
		return DefaultWatchInterval
	}
	return d
}

// GetFailureThreshold returns the consecutive failures before a list is paused.
func (c *Config) GetFailureThreshold() int {
	return positive(c.Watch.FailureThreshold, DefaultFailureThreshold)
}

// GetWatchCooldown returns how long a paused list waits.
func (c *Config) GetWatchCooldown() time.Duration {
	return parseDuration(c.Watch.Cooldown, DefaultWatchCooldown)
}

// GetNotificationLogPath returns the notification log location.
func (c *Config) GetNotificationLogPath() string {
	if c.Notifications.Log.Path != "" {
		return c.Notifications.Log.Path
	}
	return filepath.Join(GetDataDir(), "notifications.log")
}

// GetNotificationLogMaxSizeMB returns the size at which the notification log is rotated.
func (c *Config) GetNotificationLogMaxSizeMB() int {
	return positive(c.Notifications.Log.MaxSizeMB, DefaultNotificationLogMaxSizeMB)
}

// IsHistoryEnabled reports whether sync runs are recorded. Defaults to true.
func (c *Config) IsHistoryEnabled() bool {
	if c.History.Enabled == nil {
		return true
	}
	return *c.History.Enabled
}

// GetHistoryPath returns the run history database, kept next to the cache
// so a custom store path also relocates the history.
func (c *Config) GetHistoryPath() string {
	return filepath.Join(filepath.Dir(c.GetStorePath()), "history.db")
}

// GetHistoryRetentionDays returns how long recorded runs are kept.
func (c *Config) GetHistoryRetentionDays() int {
	return positive(c.History.RetentionDays, DefaultHistoryRetentionDays)
}

// IsBackgroundLoggingEnabled returns true if background logging is enabled.
// Returns true (default) if not configured.
func (c *Config) IsBackgroundLoggingEnabled() bool {
	if c.Logging.BackgroundEnabled == nil {
		return true
	}
	return *c.Logging.BackgroundEnabled
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// getXDGDir returns a directory path following the XDG base directory layout.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, AppName)
	}
	return filepath.Join(home, fallbackPath, AppName)
}

// GetConfigDir returns the configuration directory following the XDG base directory layout
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following the XDG base directory layout
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// GetCacheDir returns the cache directory following the XDG base directory layout
func GetCacheDir() string {
	return getXDGDir("XDG_CACHE_HOME", ".cache")
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
