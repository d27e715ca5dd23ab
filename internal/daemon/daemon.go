// Package daemon runs periodic background syncs of the remote lists.
// It stands in for a browser extension's background worker: each job is
// run on an interval with its own state and circuit breaker, so one failing
// list does not stop the others.
package daemon

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultInterval is used when Config.Interval is zero.
const DefaultInterval = 30 * time.Minute

// JobFunc performs one run of a job.
type JobFunc func(ctx context.Context) error

// Config holds daemon configuration.
type Config struct {
	Interval         time.Duration // time between runs of each job
	FailureThreshold int           // consecutive failures before a job is paused
	Cooldown         time.Duration // pause length before a trial run
	RunOnStart       bool          // run every job once before the first tick
	Logger           *zap.Logger
}

// JobState holds the per-job run state.
type JobState struct {
	Name         string
	RunCount     int
	ErrorCount   int // consecutive errors
	LastRun      time.Time
	LastSuccess  time.Time
	LastError    string
	LastRunID    string
	CircuitState CircuitState
}

// Healthy reports whether the last run succeeded.
func (s JobState) Healthy() bool {
	return s.ErrorCount == 0
}

type jobEntry struct {
	name    string
	fn      JobFunc
	breaker *CircuitBreaker
	state   JobState
}

// Daemon schedules jobs.
type Daemon struct {
	cfg Config
	log *zap.Logger

	mu     sync.Mutex
	jobs   []*jobEntry
	ticks  int
	runMu  sync.Mutex // serializes runs triggered by the ticker and Notify
	notify chan struct{}
}

// New creates a new Daemon instance.
func New(cfg Config) *Daemon {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultCircuitBreakerThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCircuitBreakerCooldown
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Daemon{
		cfg:    cfg,
		log:    log,
		notify: make(chan struct{}, 1),
	}
}

// AddJob registers a job. Jobs run in registration order.
func (d *Daemon) AddJob(name string, fn JobFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, &jobEntry{
		name:    name,
		fn:      fn,
		breaker: NewCircuitBreaker(d.cfg.FailureThreshold, d.cfg.Cooldown),
		state:   JobState{Name: name},
	})
}

// Notify requests an immediate run without waiting for the next tick.
// Requests made while one is pending are merged.
func (d *Daemon) Notify() {
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Run blocks, running jobs every interval until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	d.log.Info("watch started",
		zap.Duration("interval", d.cfg.Interval),
		zap.Int("jobs", len(d.snapshotJobs())))

	if d.cfg.RunOnStart {
		d.RunOnce(ctx)
	}

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("watch stopped", zap.Int("ticks", d.Ticks()))
			return nil
		case <-ticker.C:
			d.RunOnce(ctx)
		case <-d.notify:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce runs every job whose circuit allows it. Failures are isolated per job.
func (d *Daemon) RunOnce(ctx context.Context) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	d.mu.Lock()
	d.ticks++
	d.mu.Unlock()

	for _, job := range d.snapshotJobs() {
		if ctx.Err() != nil {
			return
		}
		if !job.breaker.Allow() {
			d.log.Debug("job paused", zap.String("job", job.name),
				zap.Int("failures", job.breaker.FailureCount()))
			continue
		}
		d.runJob(ctx, job)
	}
}

func (d *Daemon) runJob(ctx context.Context, job *jobEntry) {
	runID := uuid.NewString()
	log := d.log.With(zap.String("job", job.name), zap.String("run_id", runID))
	start := time.Now()

	err := job.fn(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	job.state.RunCount++
	job.state.LastRun = start
	job.state.LastRunID = runID

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			log.Debug("job interrupted")
			return
		}
		job.breaker.RecordFailure()
		job.state.ErrorCount++
		job.state.LastError = err.Error()
		job.state.CircuitState = job.breaker.State()
		log.Warn("job failed", zap.Error(err),
			zap.Int("consecutive_errors", job.state.ErrorCount),
			zap.Stringer("circuit", job.state.CircuitState))
		return
	}

	job.breaker.RecordSuccess()
	job.state.ErrorCount = 0
	job.state.LastError = ""
	job.state.LastSuccess = start
	job.state.CircuitState = CircuitClosed
	log.Info("job completed", zap.Duration("took", time.Since(start)))
}

func (d *Daemon) snapshotJobs() []*jobEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*jobEntry(nil), d.jobs...)
}

// Ticks returns how many run rounds have started.
func (d *Daemon) Ticks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ticks
}

// State returns a copy of one job's state, or false if no such job exists.
func (d *Daemon) State(name string) (JobState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, job := range d.jobs {
		if job.name == name {
			state := job.state
			state.CircuitState = job.breaker.State()
			return state, true
		}
	}
	return JobState{}, false
}

// States returns copies of all job states sorted by name.
func (d *Daemon) States() []JobState {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]JobState, 0, len(d.jobs))
	for _, job := range d.jobs {
		state := job.state
		state.CircuitState = job.breaker.State()
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
