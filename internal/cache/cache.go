// Package cache provides item display metadata caching.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/backend/laftel"
	"go.uber.org/zap"
)

// ItemInfo is the cached display metadata of one catalog item.
type ItemInfo struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Img      string    `json:"img"`
	Genre    []string  `json:"genre"`
	Medium   string    `json:"medium"`
	Rating   *int      `json:"rating"`
	CachedAt time.Time `json:"cached_at"`
}

// Placeholder is returned when an item cannot be resolved.
func Placeholder(id int64) ItemInfo {
	return ItemInfo{ID: id, Name: fmt.Sprintf("ID: %d", id), Genre: []string{}}
}

// Fetcher loads item details from the API.
type Fetcher interface {
	GetItem(ctx context.Context, itemID int64) (*laftel.ItemDetail, error)
}

// Resolver serves item metadata from the store, falling back to the API.
type Resolver struct {
	store   backend.Store
	fetcher Fetcher
	ttl     time.Duration // 0 keeps entries forever
	now     func() time.Time
	log     *zap.Logger

	mu sync.Mutex
}

// NewResolver creates a resolver. fetcher may be nil to resolve from the cache only.
func NewResolver(store backend.Store, fetcher Fetcher, ttl time.Duration, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{store: store, fetcher: fetcher, ttl: ttl, now: time.Now, log: log}
}

func (r *Resolver) load(ctx context.Context) (map[string]ItemInfo, error) {
	entries := map[string]ItemInfo{}
	if _, err := r.store.Get(ctx, backend.ItemCacheKey, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Resolver) fresh(info ItemInfo) bool {
	if r.ttl <= 0 || info.CachedAt.IsZero() {
		return true
	}
	return r.now().Sub(info.CachedAt) < r.ttl
}

// Info returns metadata for id. Remote failures yield a placeholder that is not cached.
func (r *Resolver) Info(ctx context.Context, id int64) (ItemInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load(ctx)
	if err != nil {
		return Placeholder(id), err
	}
	key := strconv.FormatInt(id, 10)
	if info, ok := entries[key]; ok && r.fresh(info) {
		return info, nil
	}
	if r.fetcher == nil {
		return Placeholder(id), nil
	}

	detail, err := r.fetcher.GetItem(ctx, id)
	if err != nil {
		r.log.Debug("item lookup failed", zap.Int64("item_id", id), zap.Error(err))
		return Placeholder(id), nil
	}

	info := ItemInfo{
		ID:       detail.ID,
		Name:     detail.Name,
		Img:      detail.Img,
		Genre:    detail.Genre,
		Medium:   detail.Medium,
		Rating:   detail.Rating,
		CachedAt: r.now(),
	}
	entries[key] = info
	if err := r.store.Set(ctx, map[string]any{backend.ItemCacheKey: entries}); err != nil {
		return info, err
	}
	return info, nil
}

// Resolve returns metadata for every id in order
func (r *Resolver) Resolve(ctx context.Context, ids []int64) ([]ItemInfo, error) {
	out := make([]ItemInfo, 0, len(ids))
	for _, id := range ids {
		info, err := r.Info(ctx, id)
		if err != nil {
			return out, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Remember records names and images of list items without overwriting richer entries.
func (r *Resolver) Remember(ctx context.Context, items []backend.ListItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load(ctx)
	if err != nil {
		return err
	}
	now := r.now()
	changed := false
	for _, item := range items {
		if item.Name == "" {
			continue
		}
		key := strconv.FormatInt(item.ID, 10)
		existing, ok := entries[key]
		if ok && existing.Name == item.Name && existing.Img == item.Img {
			continue
		}
		if !ok {
			existing = ItemInfo{ID: item.ID, Genre: []string{}}
		}
		existing.Name = item.Name
		if item.Img != "" {
			existing.Img = item.Img
		}
		existing.CachedAt = now
		entries[key] = existing
		changed = true
	}
	if !changed {
		return nil
	}
	return r.store.Set(ctx, map[string]any{backend.ItemCacheKey: entries})
}

// Clear drops every cached entry
func (r *Resolver) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(ctx, backend.ItemCacheKey)
}
