package backend_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/backend/memory"
)

// =============================================================================
// List kind parsing
// =============================================================================

func TestParseListKind(t *testing.T) {
	tests := []struct {
		in      string
		want    backend.ListKind
		wantErr bool
	}{
		{"rated", backend.KindRated, false},
		{"Ratings", backend.KindRated, false},
		{"wish", backend.KindWish, false},
		{" wishlist ", backend.KindWish, false},
		{"hate", backend.KindHate, false},
		{"favorites", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := backend.ParseListKind(tt.in)
			if tt.wantErr {
				if !errors.Is(err, backend.ErrUnsupportedKind) {
					t.Fatalf("expected ErrUnsupportedKind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListKindCapabilities(t *testing.T) {
	if backend.KindRated.Togglable() {
		t.Error("rated list should not be togglable")
	}
	if !backend.KindWish.Togglable() || !backend.KindHate.Togglable() {
		t.Error("wish and hate lists should be togglable")
	}
	if backend.KindHate.Remote() {
		t.Error("hate list has no remote listing")
	}
}

// =============================================================================
// ListCache helpers
// =============================================================================

func TestListCacheCloneIsDeep(t *testing.T) {
	lastID := int64(3)
	orig := &backend.ListCache{
		Kind:   backend.KindWish,
		Items:  []backend.ListItem{{ID: 3, Name: "a"}, {ID: 1, Name: "b"}},
		LastID: &lastID,
	}

	clone := orig.Clone()
	clone.Items[0].Name = "changed"
	*clone.LastID = 99

	if orig.Items[0].Name != "a" {
		t.Error("clone shares item storage with original")
	}
	if *orig.LastID != 3 {
		t.Error("clone shares last id with original")
	}
	if !clone.Contains(1) || clone.Contains(2) {
		t.Error("Contains returned wrong membership")
	}
	if clone.IndexOf(1) != 1 {
		t.Errorf("IndexOf(1) = %d, want 1", clone.IndexOf(1))
	}
}

// =============================================================================
// Persistence round trip
// =============================================================================

func TestLoadCacheEmptyStore(t *testing.T) {
	store := memory.New()
	cache, err := backend.LoadCache(context.Background(), store, backend.KindRated)
	if err != nil {
		t.Fatalf("LoadCache error: %v", err)
	}
	if len(cache.Items) != 0 || cache.Items == nil {
		t.Errorf("expected empty non-nil items, got %#v", cache.Items)
	}
	if cache.LastID != nil {
		t.Errorf("expected nil last id, got %d", *cache.LastID)
	}
	if !cache.UpdatedAt.IsZero() {
		t.Error("expected zero updated time")
	}
}

func TestSaveCacheUsesFlatKeys(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	lastID := int64(42)
	updated := time.UnixMilli(1700000000123)

	err := backend.SaveCache(ctx, store, &backend.ListCache{
		Kind:      backend.KindRated,
		Items:     []backend.ListItem{{ID: 42, Name: "Frieren", Img: "f.jpg", Rating: 5, AvgRating: 4.8}},
		LastID:    &lastID,
		UpdatedAt: updated,
	})
	if err != nil {
		t.Fatalf("SaveCache error: %v", err)
	}

	raw, ok := store.Raw("rated_items")
	if !ok {
		t.Fatal("rated_items key not written")
	}
	want := `[{"id":42,"name":"Frieren","img":"f.jpg","rating":5,"avgRating":4.8}]`
	if raw != want {
		t.Errorf("rated_items = %s, want %s", raw, want)
	}
	if raw, _ := store.Raw("rated_items_updated"); raw != "1700000000123" {
		t.Errorf("rated_items_updated = %s", raw)
	}
	if raw, _ := store.Raw("rated_last_id"); raw != "42" {
		t.Errorf("rated_last_id = %s", raw)
	}

	loaded, err := backend.LoadCache(ctx, store, backend.KindRated)
	if err != nil {
		t.Fatalf("LoadCache error: %v", err)
	}
	if loaded.LastID == nil || *loaded.LastID != 42 {
		t.Errorf("LastID not restored: %v", loaded.LastID)
	}
	if !loaded.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v, want %v", loaded.UpdatedAt, updated)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].Rating != 5 {
		t.Errorf("items not restored: %#v", loaded.Items)
	}
}

func TestClearCacheRemovesAllKeys(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if err := backend.SaveCache(ctx, store, &backend.ListCache{Kind: backend.KindWish, Items: []backend.ListItem{{ID: 1}}}); err != nil {
		t.Fatalf("SaveCache error: %v", err)
	}
	if err := backend.ClearCache(ctx, store, backend.KindWish); err != nil {
		t.Fatalf("ClearCache error: %v", err)
	}
	keys, _ := store.Keys(ctx)
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestSettingsDefaults(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	settings, err := backend.LoadSettings(ctx, store)
	if err != nil {
		t.Fatalf("LoadSettings error: %v", err)
	}
	if settings.HideRated || !settings.HideHate {
		t.Errorf("unexpected defaults: %+v", settings)
	}

	settings.HideRated = true
	if err := backend.SaveSettings(ctx, store, settings); err != nil {
		t.Fatalf("SaveSettings error: %v", err)
	}
	got, _ := backend.LoadSettings(ctx, store)
	if !got.HideRated || !got.HideHate {
		t.Errorf("settings not persisted: %+v", got)
	}
}

// =============================================================================
// Errors and notifications
// =============================================================================

func TestErrorTaxonomy(t *testing.T) {
	var err error = &backend.RemoteError{Op: "toggle wish", StatusCode: 500}
	wrapped := errors.Join(errors.New("context"), err)
	if !backend.IsRemote(wrapped) {
		t.Error("IsRemote should see through wrapping")
	}
	if backend.IsAuth(wrapped) {
		t.Error("RemoteError is not an AuthError")
	}
	if got := err.Error(); got != "toggle wish: status 500" {
		t.Errorf("Error() = %q", got)
	}

	fe := &backend.FormatError{Reason: "not base64", Err: errors.New("illegal data")}
	if !errors.Is(fe, fe.Err) {
		t.Error("FormatError should unwrap its cause")
	}
	if !backend.IsAuth(&backend.AuthError{}) {
		t.Error("IsAuth should match AuthError")
	}
}

func TestStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	var got [][]string
	cancel := store.Subscribe(func(keys []string) { got = append(got, keys) })

	_ = store.Set(ctx, map[string]any{"wish_items": []int{}, "settings": backend.DefaultSettings()})
	cancel()
	_ = store.Set(ctx, map[string]any{"hate_items": []int{}})

	if len(got) != 1 {
		t.Fatalf("expected one notification, got %d", len(got))
	}
	if len(got[0]) != 2 || got[0][0] != "settings" || got[0][1] != "wish_items" {
		t.Errorf("unexpected keys %v", got[0])
	}
}
