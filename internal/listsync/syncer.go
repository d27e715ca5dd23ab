// Package listsync keeps the local rated, wish and hate caches in step with Laftel.
package listsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/backend/laftel"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultBulkDelay spaces the remote calls of bulk operations
const DefaultBulkDelay = 100 * time.Millisecond

// Remote performs single-item list changes
type Remote interface {
	SetMembership(ctx context.Context, kind backend.ListKind, itemID int64, present bool) error
}

// ItemRecorder receives list items whose display metadata should be remembered
type ItemRecorder interface {
	Remember(ctx context.Context, items []backend.ListItem) error
}

// Options configures a Syncer
type Options struct {
	PageSize     int           // incremental sync page size
	MaxPages     int           // incremental sync page cap
	FullPageSize int           // page size for full collection
	BulkDelay    time.Duration // spacing between bulk remote calls
	Recorder     ItemRecorder
	Logger       *zap.Logger
	Now          func() time.Time
}

// Result describes one completed sync or collection
type Result struct {
	RunID   string
	Kind    backend.ListKind
	Fetched int
	Added   int
	Total   int
	LastID  *int64
	Full    bool       // the whole remote list was traversed
	Stop    StopReason // why pagination ended
}

// Syncer owns the list caches and serializes operations per list kind
type Syncer struct {
	store  backend.Store
	remote Remote
	rated  Source[laftel.RatingRecord]
	wish   Source[laftel.WishRecord]
	opts   Options
	log    *zap.Logger

	flight singleflight.Group
	mu     sync.Mutex
	busy   map[backend.ListKind]string
}

// New creates a syncer for the given store and client
func New(store backend.Store, client *laftel.Client, opts Options) *Syncer {
	s := newSyncer(store, client, opts)
	s.rated = RatedSource(client)
	s.wish = WishSource(client)
	return s
}

// NewWithSources creates a syncer with explicit list sources
func NewWithSources(store backend.Store, remote Remote, rated Source[laftel.RatingRecord], wish Source[laftel.WishRecord], opts Options) *Syncer {
	s := newSyncer(store, remote, opts)
	s.rated = rated
	s.wish = wish
	return s
}

func newSyncer(store backend.Store, remote Remote, opts Options) *Syncer {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.FullPageSize <= 0 {
		opts.FullPageSize = DefaultPageSize
	}
	if opts.BulkDelay < 0 {
		opts.BulkDelay = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		store:  store,
		remote: remote,
		opts:   opts,
		log:    log,
		busy:   make(map[backend.ListKind]string),
	}
}

// Store returns the underlying cache store
func (s *Syncer) Store() backend.Store {
	return s.store
}

// acquire marks kind busy for op. The returned function releases it.
func (s *Syncer) acquire(kind backend.ListKind, op string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, ok := s.busy[kind]; ok {
		return nil, fmt.Errorf("%w: %s is running %s", backend.ErrSyncInProgress, kind, holder)
	}
	s.busy[kind] = op
	return func() {
		s.mu.Lock()
		delete(s.busy, kind)
		s.mu.Unlock()
	}, nil
}

// Busy reports whether an operation is running for kind
func (s *Syncer) Busy(kind backend.ListKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.busy[kind]
	return ok
}

// Sync runs an incremental sync of kind. Concurrent calls for the same kind share one run.
// The shared run is detached from the caller's cancellation so that a caller giving up
// does not fail the others; each caller stops waiting when its own ctx is done.
func (s *Syncer) Sync(ctx context.Context, kind backend.ListKind) (*Result, error) {
	if !kind.Remote() {
		return nil, fmt.Errorf("%w: %s has no remote list", backend.ErrUnsupportedKind, kind)
	}

	runCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(string(kind), func() (any, error) {
		release, err := s.acquire(kind, "sync")
		if err != nil {
			return nil, err
		}
		defer release()

		if kind == backend.KindRated {
			return incremental(runCtx, s, s.rated)
		}
		return incremental(runCtx, s, s.wish)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Result), nil
	}
}

// SyncAll syncs the ratings and then the wishlist, stopping at the first failure
func (s *Syncer) SyncAll(ctx context.Context) ([]*Result, error) {
	var results []*Result
	for _, kind := range []backend.ListKind{backend.KindRated, backend.KindWish} {
		res, err := s.Sync(ctx, kind)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func incremental[R any](ctx context.Context, s *Syncer, src Source[R]) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Kind: src.Kind}
	log := s.log.With(zap.String("kind", string(src.Kind)), zap.String("sync_id", res.RunID))

	existing, err := backend.LoadCache(ctx, s.store, src.Kind)
	if err != nil {
		return nil, err
	}

	// Without a high-water mark the whole list is traversed
	var report FetchReport
	opts := FetchOptions{PageSize: s.opts.PageSize, StopID: existing.LastID, Report: &report}
	if existing.LastID != nil {
		opts.MaxPages = s.opts.MaxPages
	}
	res.Full = existing.LastID == nil

	var fetched []backend.ListItem
	for rec, err := range Fetch(ctx, src.Page, src.ID, opts) {
		if err != nil {
			log.Warn("sync aborted", zap.Int("pages", report.Pages), zap.Error(err))
			return nil, fmt.Errorf("sync %s: %w", src.Kind, err)
		}
		fetched = append(fetched, src.Map(rec))
	}
	res.Fetched = len(fetched)
	res.Stop = report.Reason

	if report.Reason == StopCap {
		log.Warn("high-water mark not found within page cap",
			zap.Int64p("last_id", existing.LastID),
			zap.Int("max_pages", s.opts.MaxPages),
		)
	}

	if len(fetched) == 0 {
		res.Total = len(existing.Items)
		res.LastID = existing.LastID
		log.Debug("nothing new")
		return res, nil
	}

	merged, added := Merge(existing, fetched)
	merged.UpdatedAt = s.opts.Now()
	if err := backend.SaveCache(ctx, s.store, merged); err != nil {
		return nil, err
	}

	res.Added = added
	res.Total = len(merged.Items)
	res.LastID = merged.LastID
	log.Info("sync complete",
		zap.Int("fetched", res.Fetched),
		zap.Int("added", added),
		zap.Int("total", res.Total),
		zap.String("stop", string(res.Stop)),
	)
	return res, nil
}

// Collect fetches the complete remote list of kind and replaces the cache with it.
// progress, if set, is called after every page.
func (s *Syncer) Collect(ctx context.Context, kind backend.ListKind, progress func(fetched, total int)) (*Result, error) {
	if !kind.Remote() {
		return nil, fmt.Errorf("%w: %s has no remote list", backend.ErrUnsupportedKind, kind)
	}
	release, err := s.acquire(kind, "collect")
	if err != nil {
		return nil, err
	}
	defer release()

	if kind == backend.KindRated {
		return collect(ctx, s, s.rated, progress)
	}
	return collect(ctx, s, s.wish, progress)
}

func collect[R any](ctx context.Context, s *Syncer, src Source[R], progress func(fetched, total int)) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Kind: src.Kind, Full: true}
	log := s.log.With(zap.String("kind", string(src.Kind)), zap.String("sync_id", res.RunID))

	var report FetchReport
	opts := FetchOptions{PageSize: s.opts.FullPageSize, OnPage: progress, Report: &report}

	var fetched []backend.ListItem
	for rec, err := range Fetch(ctx, src.Page, src.ID, opts) {
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", src.Kind, err)
		}
		fetched = append(fetched, src.Map(rec))
	}

	cache, _ := Merge(backend.NewListCache(src.Kind), fetched)
	cache.UpdatedAt = s.opts.Now()
	if err := backend.SaveCache(ctx, s.store, cache); err != nil {
		return nil, err
	}

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.Remember(ctx, cache.Items); err != nil {
			log.Warn("failed to remember item metadata", zap.Error(err))
		}
	}

	res.Fetched = len(fetched)
	res.Added = len(cache.Items)
	res.Total = len(cache.Items)
	res.LastID = cache.LastID
	res.Stop = report.Reason
	log.Info("collect complete", zap.Int("total", res.Total), zap.Int("pages", report.Pages))
	return res, nil
}

// Reset deletes the cached state of kind
func (s *Syncer) Reset(ctx context.Context, kind backend.ListKind) error {
	release, err := s.acquire(kind, "reset")
	if err != nil {
		return err
	}
	defer release()
	return backend.ClearCache(ctx, s.store, kind)
}

// KindStatus summarizes one cached list
type KindStatus struct {
	Kind      backend.ListKind `json:"kind"`
	Count     int              `json:"count"`
	LastID    *int64           `json:"last_id"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
	Busy      bool             `json:"busy"`
}

// Status reports the state of every cached list
func (s *Syncer) Status(ctx context.Context) ([]KindStatus, error) {
	var out []KindStatus
	for _, kind := range backend.Kinds() {
		cache, err := backend.LoadCache(ctx, s.store, kind)
		if err != nil {
			return nil, err
		}
		st := KindStatus{Kind: kind, Count: len(cache.Items), LastID: cache.LastID, Busy: s.Busy(kind)}
		if !cache.UpdatedAt.IsZero() {
			t := cache.UpdatedAt
			st.UpdatedAt = &t
		}
		out = append(out, st)
	}
	return out, nil
}
