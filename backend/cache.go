package backend

import (
	"context"
	"fmt"
	"time"
)

// Keys shared by every store implementation
const (
	SettingsKey  = "settings"
	FiltersKey   = "filters"
	ItemCacheKey = "item_cache"
)

// ItemsKey is the storage key of the item list for kind
func ItemsKey(kind ListKind) string { return string(kind) + "_items" }

// UpdatedKey is the storage key of the last write timestamp (unix millis) for kind
func UpdatedKey(kind ListKind) string { return string(kind) + "_items_updated" }

// LastIDKey is the storage key of the sync high-water mark for kind
func LastIDKey(kind ListKind) string { return string(kind) + "_last_id" }

// CacheKeys returns all keys holding state for kind
func CacheKeys(kind ListKind) []string {
	return []string{ItemsKey(kind), UpdatedKey(kind), LastIDKey(kind)}
}

// LoadCache reads the cache of kind from store. Missing keys yield an empty cache.
func LoadCache(ctx context.Context, store Store, kind ListKind) (*ListCache, error) {
	cache := NewListCache(kind)

	if _, err := store.Get(ctx, ItemsKey(kind), &cache.Items); err != nil {
		return nil, fmt.Errorf("failed to load %s items: %w", kind, err)
	}
	if cache.Items == nil {
		cache.Items = []ListItem{}
	}

	var updated int64
	ok, err := store.Get(ctx, UpdatedKey(kind), &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s timestamp: %w", kind, err)
	}
	if ok && updated > 0 {
		cache.UpdatedAt = time.UnixMilli(updated)
	}

	var lastID *int64
	if _, err := store.Get(ctx, LastIDKey(kind), &lastID); err != nil {
		return nil, fmt.Errorf("failed to load %s last id: %w", kind, err)
	}
	cache.LastID = lastID

	return cache, nil
}

// CacheValues returns the key-value batch that persists cache
func CacheValues(cache *ListCache) map[string]any {
	var updated int64
	if !cache.UpdatedAt.IsZero() {
		updated = cache.UpdatedAt.UnixMilli()
	}
	items := cache.Items
	if items == nil {
		items = []ListItem{}
	}
	return map[string]any{
		ItemsKey(cache.Kind):   items,
		UpdatedKey(cache.Kind): updated,
		LastIDKey(cache.Kind):  cache.LastID,
	}
}

// SaveCache writes cache to store in one batch
func SaveCache(ctx context.Context, store Store, cache *ListCache) error {
	if err := store.Set(ctx, CacheValues(cache)); err != nil {
		return fmt.Errorf("failed to save %s cache: %w", cache.Kind, err)
	}
	return nil
}

// ClearCache removes every key of kind
func ClearCache(ctx context.Context, store Store, kind ListKind) error {
	return store.Delete(ctx, CacheKeys(kind)...)
}

// LoadSettings returns stored settings, falling back to defaults
func LoadSettings(ctx context.Context, store Store) (Settings, error) {
	settings := DefaultSettings()
	if _, err := store.Get(ctx, SettingsKey, &settings); err != nil {
		return settings, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// SaveSettings persists settings
func SaveSettings(ctx context.Context, store Store, settings Settings) error {
	return store.Set(ctx, map[string]any{SettingsKey: settings})
}
