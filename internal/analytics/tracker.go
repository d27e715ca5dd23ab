package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
)

// Tracker records runs. A disabled tracker still runs the operations it wraps.
type Tracker struct {
	db      *sql.DB
	enabled bool
	mu      sync.Mutex
	pending sync.WaitGroup
	now     func() time.Time
}

// NewTracker opens the history database. When enabled is false no database is opened.
func NewTracker(dbPath string, enabled bool) (*Tracker, error) {
	t := &Tracker{enabled: enabled, now: time.Now}
	if !enabled {
		return t, nil
	}

	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	t.db = db
	return t, nil
}

// Enabled reports whether runs are recorded
func (t *Tracker) Enabled() bool {
	return t.enabled
}

// Close waits for pending inserts and closes the database
func (t *Tracker) Close() error {
	t.pending.Wait()
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

// Track runs fn and records its outcome for kind.
// The insert happens in the background so a slow disk never delays the command; Close flushes it.
func (t *Tracker) Track(op string, kind backend.ListKind, fn func() (Stats, error)) error {
	if !t.enabled {
		_, err := fn()
		return err
	}

	start := t.now()
	stats, err := fn()

	run := Run{
		Timestamp:  start.Unix(),
		RunID:      stats.RunID,
		Operation:  op,
		Kind:       string(kind),
		Success:    err == nil,
		DurationMs: t.now().Sub(start).Milliseconds(),
		Fetched:    stats.Fetched,
		Added:      stats.Added,
		Total:      stats.Total,
		Throttled:  stats.Throttled,
		ErrorType:  categorizeError(err),
	}

	t.pending.Add(1)
	go func() {
		defer t.pending.Done()
		t.insert(run)
	}()

	return err
}

func (t *Tracker) insert(run Run) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, _ = t.db.Exec(`
		INSERT INTO runs (timestamp, run_id, operation, kind, success, duration_ms, fetched, added, total, throttled, error_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.Timestamp, nullString(run.RunID), run.Operation, run.Kind, boolToInt(run.Success),
		run.DurationMs, run.Fetched, run.Added, run.Total, run.Throttled, nullString(run.ErrorType))
}

// Recent returns the latest runs, newest first. An empty kind means every list.
func (t *Tracker) Recent(ctx context.Context, kind string, limit int) ([]Run, error) {
	if !t.enabled {
		return nil, nil
	}
	t.pending.Wait()

	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, timestamp, run_id, operation, kind, success, duration_ms, fetched, added, total, throttled, error_type
		FROM runs`
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var runID, errorType sql.NullString
		var success int
		var duration sql.NullInt64
		if err := rows.Scan(&r.ID, &r.Timestamp, &runID, &r.Operation, &r.Kind, &success,
			&duration, &r.Fetched, &r.Added, &r.Total, &r.Throttled, &errorType); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.RunID = runID.String
		r.ErrorType = errorType.String
		r.DurationMs = duration.Int64
		r.Success = success == 1
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Summary aggregates the recorded runs per list kind, ordered by kind
func (t *Tracker) Summary(ctx context.Context) ([]KindSummary, error) {
	if !t.enabled {
		return nil, nil
	}
	t.pending.Wait()

	rows, err := t.db.QueryContext(ctx, `
		SELECT kind,
			COUNT(*),
			SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
			AVG(duration_ms),
			SUM(added),
			MAX(CASE WHEN success = 1 THEN timestamp ELSE 0 END)
		FROM runs
		GROUP BY kind
		ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []KindSummary
	for rows.Next() {
		var s KindSummary
		var avg sql.NullFloat64
		if err := rows.Scan(&s.Kind, &s.Runs, &s.Failures, &avg, &s.Added, &s.LastSuccess); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		s.AvgDurationMs = avg.Float64
		if s.Runs > 0 {
			s.SuccessRate = float64(s.Runs-s.Failures) / float64(s.Runs)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Cleanup removes runs older than the retention period and returns how many were deleted
func (t *Tracker) Cleanup(retentionDays int) (int64, error) {
	if !t.enabled {
		return 0, nil
	}
	t.pending.Wait()

	cutoff := t.now().Unix() - int64(retentionDays*86400)
	t.mu.Lock()
	defer t.mu.Unlock()

	result, err := t.db.Exec("DELETE FROM runs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		_, _ = t.db.Exec("VACUUM")
	}
	return deleted, nil
}

// nullString stores empty strings as NULL
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
