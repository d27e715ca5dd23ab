package backend

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ListKind identifies one of the user's personal lists
type ListKind string

const (
	KindRated ListKind = "rated"
	KindWish  ListKind = "wish"
	KindHate  ListKind = "hate"
)

// Kinds returns every list kind in display order
func Kinds() []ListKind {
	return []ListKind{KindRated, KindWish, KindHate}
}

// ParseListKind converts user input into a ListKind.
// Accepts singular/plural forms and the original storage prefixes.
func ParseListKind(s string) (ListKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rated", "rating", "ratings":
		return KindRated, nil
	case "wish", "wishes", "wishlist":
		return KindWish, nil
	case "hate", "hates", "hated":
		return KindHate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

// Togglable reports whether items can be added to or removed from the list one at a time
func (k ListKind) Togglable() bool {
	return k == KindWish || k == KindHate
}

// Remote reports whether the list has a paginated remote listing that can be synced
func (k ListKind) Remote() bool {
	return k == KindRated || k == KindWish
}

// ListItem is one entry of a personal list
type ListItem struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Img       string  `json:"img"`
	Rating    int     `json:"rating,omitempty"`
	AvgRating float64 `json:"avgRating,omitempty"`
}

// ListCache is the locally cached state of one list kind
type ListCache struct {
	Kind      ListKind
	Items     []ListItem
	LastID    *int64 // nil until the first successful sync
	UpdatedAt time.Time
}

// NewListCache returns an empty cache for kind
func NewListCache(kind ListKind) *ListCache {
	return &ListCache{Kind: kind, Items: []ListItem{}}
}

// Contains reports whether id is present in the cache
func (c *ListCache) Contains(id int64) bool {
	return c.IndexOf(id) >= 0
}

// IndexOf returns the position of id in Items or -1
func (c *ListCache) IndexOf(id int64) int {
	for i, item := range c.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Index builds an id lookup over the cached items
func (c *ListCache) Index() map[int64]ListItem {
	idx := make(map[int64]ListItem, len(c.Items))
	for _, item := range c.Items {
		idx[item.ID] = item
	}
	return idx
}

// Clone returns a deep copy of the cache
func (c *ListCache) Clone() *ListCache {
	out := &ListCache{
		Kind:      c.Kind,
		Items:     make([]ListItem, len(c.Items)),
		UpdatedAt: c.UpdatedAt,
	}
	copy(out.Items, c.Items)
	if c.LastID != nil {
		id := *c.LastID
		out.LastID = &id
	}
	return out
}

// CatalogItem is one result of a discover/search query
type CatalogItem struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Img       string   `json:"img"`
	Genres    []string `json:"genres,omitempty"`
	Medium    string   `json:"medium,omitempty"`
	AgeRating int      `json:"rating"`
}

// Settings are the persisted presentation toggles
type Settings struct {
	HideRated bool `json:"hideRated"`
	HideHate  bool `json:"hideHate"`
}

// DefaultSettings matches a fresh install: hated items hidden, rated items shown
func DefaultSettings() Settings {
	return Settings{HideRated: false, HideHate: true}
}

// Store is a flat key-value store holding JSON-encoded values
type Store interface {
	// Get decodes the value stored under key into dst.
	// Returns false when the key does not exist.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set writes all values in a single atomic batch
	Set(ctx context.Context, values map[string]any) error

	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context) ([]string, error)

	// Subscribe registers fn to be called with the changed keys after every write.
	// The returned function removes the subscription.
	Subscribe(fn func(keys []string)) (cancel func())

	Close() error
}
