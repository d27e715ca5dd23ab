package listsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/internal/ratelimit"
	"go.uber.org/zap"
)

// BulkResult describes a bulk removal
type BulkResult struct {
	Kind      backend.ListKind
	Total     int
	Completed int     // items removed remotely and locally
	Failed    []int64 // items whose remote removal failed; they stay cached
	Skipped   int     // items not attempted because the run stopped early
}

// BulkProgress is called after every attempted item
type BulkProgress func(done, total int, item backend.ListItem, err error)

// ClearAll removes every item of kind, one remote call at a time spaced by the bulk delay.
//
// A failed removal is logged and skipped and the item stays in the cache. An AuthError or
// ctx cancellation stops the run; items already removed are still dropped from the cache.
func (s *Syncer) ClearAll(ctx context.Context, kind backend.ListKind, progress BulkProgress) (*BulkResult, error) {
	if !kind.Togglable() {
		return nil, fmt.Errorf("%w: %s cannot be cleared", backend.ErrUnsupportedKind, kind)
	}
	release, err := s.acquire(kind, "clear")
	if err != nil {
		return nil, err
	}
	defer release()

	cache, err := backend.LoadCache(ctx, s.store, kind)
	if err != nil {
		return nil, err
	}

	res := &BulkResult{Kind: kind, Total: len(cache.Items)}
	log := s.log.With(zap.String("kind", string(kind)))
	pacer := ratelimit.NewPacer(s.opts.BulkDelay)
	removed := make(map[int64]bool, len(cache.Items))

	var runErr error
	for i, item := range cache.Items {
		if err := pacer.Wait(ctx); err != nil {
			runErr = err
			break
		}

		err := s.remote.SetMembership(ctx, kind, item.ID, false)
		if err == nil {
			removed[item.ID] = true
			res.Completed++
		} else if backend.IsAuth(err) || ctx.Err() != nil {
			runErr = err
			if ctx.Err() != nil {
				runErr = ctx.Err()
			}
			break
		} else {
			log.Warn("failed to remove item, skipping", zap.Int64("item_id", item.ID), zap.Error(err))
			res.Failed = append(res.Failed, item.ID)
		}

		if progress != nil {
			progress(i+1, res.Total, item, err)
		}
	}
	res.Skipped = res.Total - res.Completed - len(res.Failed)

	if len(removed) > 0 {
		remaining := make([]backend.ListItem, 0, len(cache.Items)-len(removed))
		for _, item := range cache.Items {
			if !removed[item.ID] {
				remaining = append(remaining, item)
			}
		}
		cache.Items = remaining
		cache.UpdatedAt = s.opts.Now()

		// persist progress even when the run was cancelled
		if err := backend.SaveCache(context.WithoutCancel(ctx), s.store, cache); err != nil {
			return res, errors.Join(runErr, err)
		}
	}

	log.Info("bulk clear finished",
		zap.Int("completed", res.Completed),
		zap.Int("failed", len(res.Failed)),
		zap.Int("skipped", res.Skipped),
	)
	return res, runErr
}
