// Package analytics keeps a local SQLite history of sync runs: what each run
// fetched and added, how long it took and why it failed.
package analytics

import (
	"context"
	"errors"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/ratelimit"
)

// Operations recorded by the CLI
const (
	OpSync    = "sync"
	OpCollect = "collect"
	OpClear   = "clear"
	OpWatch   = "watch"
)

// Run is one recorded operation on a list
type Run struct {
	ID         int64  `json:"id"`
	Timestamp  int64  `json:"timestamp"`
	RunID      string `json:"run_id,omitempty"`
	Operation  string `json:"operation"`
	Kind       string `json:"kind"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
	Fetched    int    `json:"fetched"`
	Added      int    `json:"added"`
	Total      int    `json:"total"`
	Throttled  int    `json:"throttled"`
	ErrorType  string `json:"error_type,omitempty"`
}

// Stats is what a tracked operation reports back
type Stats struct {
	RunID   string
	Fetched int
	Added   int
	Total   int
	// Throttled counts 429 responses the run backed off from
	Throttled int
}

// KindSummary aggregates the runs of one list
type KindSummary struct {
	Kind          string  `json:"kind"`
	Runs          int     `json:"runs"`
	Failures      int     `json:"failures"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	Added         int     `json:"added"`
	LastSuccess   int64   `json:"last_success,omitempty"`
}

// categorizeError maps an operation error onto a coarse failure class
func categorizeError(err error) string {
	if err == nil {
		return ""
	}

	var authErr *backend.AuthError
	var remoteErr *backend.RemoteError
	var formatErr *backend.FormatError
	var limitErr *ratelimit.RateLimitError
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, backend.ErrSyncInProgress):
		return "busy"
	case errors.Is(err, backend.ErrUnsupportedKind):
		return "unsupported"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &formatErr):
		return "format"
	case errors.As(err, &limitErr):
		return "rate_limited"
	case errors.As(err, &remoteErr):
		switch {
		case remoteErr.StatusCode == 0:
			return "network"
		case remoteErr.StatusCode == 401 || remoteErr.StatusCode == 403:
			return "auth"
		case remoteErr.StatusCode == 429:
			return "rate_limited"
		case remoteErr.StatusCode >= 500:
			return "server"
		}
		return "client"
	default:
		return "unknown"
	}
}
