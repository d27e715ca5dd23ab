package listsync

import (
	"context"
	"fmt"
	"slices"

	"github.com/DOCHIS/laftel-plus/backend"
	"go.uber.org/zap"
)

// SetMembership moves item into (present) or out of the list of kind.
//
// The remote call is made first and the cache is only written after it succeeds, so a
// failed call leaves the cache untouched. Requesting the current state is a no-op that
// makes no remote call. Reports whether anything changed.
func (s *Syncer) SetMembership(ctx context.Context, kind backend.ListKind, item backend.ListItem, present bool) (bool, error) {
	changed, _, err := s.transition(ctx, kind, item, func(bool) bool { return present })
	return changed, err
}

// Toggle flips the membership of item in kind and returns the new state
func (s *Syncer) Toggle(ctx context.Context, kind backend.ListKind, item backend.ListItem) (bool, error) {
	_, present, err := s.transition(ctx, kind, item, func(current bool) bool { return !current })
	return present, err
}

func (s *Syncer) transition(ctx context.Context, kind backend.ListKind, item backend.ListItem, next func(current bool) bool) (bool, bool, error) {
	if !kind.Togglable() {
		return false, false, fmt.Errorf("%w: %s cannot be toggled", backend.ErrUnsupportedKind, kind)
	}
	release, err := s.acquire(kind, "toggle")
	if err != nil {
		return false, false, err
	}
	defer release()

	cache, err := backend.LoadCache(ctx, s.store, kind)
	if err != nil {
		return false, false, err
	}

	current := cache.Contains(item.ID)
	want := next(current)
	if current == want {
		return false, current, nil
	}

	if err := s.remote.SetMembership(ctx, kind, item.ID, want); err != nil {
		s.log.Warn("toggle failed",
			zap.String("kind", string(kind)),
			zap.Int64("item_id", item.ID),
			zap.Bool("present", want),
			zap.Error(err),
		)
		return false, current, err
	}

	if want {
		cache.Items = append([]backend.ListItem{item}, cache.Items...)
	} else {
		cache.Items = slices.DeleteFunc(cache.Items, func(i backend.ListItem) bool { return i.ID == item.ID })
	}
	cache.UpdatedAt = s.opts.Now()
	if err := backend.SaveCache(ctx, s.store, cache); err != nil {
		return false, current, err
	}

	s.log.Debug("toggled", zap.String("kind", string(kind)), zap.Int64("item_id", item.ID), zap.Bool("present", want))
	return true, want, nil
}
