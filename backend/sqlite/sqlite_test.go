package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/DOCHIS/laftel-plus/backend"
)

// mustNewStore creates an in-memory store and registers cleanup
func mustNewStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, context.Background()
}

func TestNewStore(t *testing.T) {
	s, ctx := mustNewStore(t)
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected empty store, got %v", keys)
	}
}

func TestGetMissingKey(t *testing.T) {
	s, ctx := mustNewStore(t)
	var items []backend.ListItem
	ok, err := s.Get(ctx, "wish_items", &items)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Error("expected missing key")
	}
}

func TestSetOverwritesAndRoundTrips(t *testing.T) {
	s, ctx := mustNewStore(t)

	if err := s.Set(ctx, map[string]any{"wish_items": []backend.ListItem{{ID: 1, Name: "old"}}}); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := s.Set(ctx, map[string]any{
		"wish_items":   []backend.ListItem{{ID: 2, Name: "new"}, {ID: 1, Name: "old"}},
		"wish_last_id": int64(2),
	}); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	var items []backend.ListItem
	ok, err := s.Get(ctx, "wish_items", &items)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if len(items) != 2 || items[0].ID != 2 {
		t.Errorf("unexpected items %#v", items)
	}

	keys, _ := s.Keys(ctx)
	if len(keys) != 2 || keys[0] != "wish_items" || keys[1] != "wish_last_id" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestDeleteKeys(t *testing.T) {
	s, ctx := mustNewStore(t)
	_ = s.Set(ctx, map[string]any{"a": 1, "b": 2, "c": 3})

	var notified []string
	s.Subscribe(func(keys []string) { notified = keys })

	if err := s.Delete(ctx, "a", "c", "missing"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	keys, _ := s.Keys(ctx)
	if len(keys) != 1 || keys[0] != "b" {
		t.Errorf("unexpected keys %v", keys)
	}
	if len(notified) != 3 {
		t.Errorf("expected notification for 3 keys, got %v", notified)
	}
}

func TestGetCorruptValue(t *testing.T) {
	s, ctx := mustNewStore(t)
	if _, err := s.db.Exec("INSERT INTO kv (key, value, modified) VALUES ('settings', '{broken', '')"); err != nil {
		t.Fatalf("seed error: %v", err)
	}
	var settings backend.Settings
	if _, err := s.Get(ctx, "settings", &settings); err == nil {
		t.Error("expected decode error for corrupt value")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "laftelplus.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	lastID := int64(7)
	if err := backend.SaveCache(ctx, s, &backend.ListCache{Kind: backend.KindRated, Items: []backend.ListItem{{ID: 7}}, LastID: &lastID}); err != nil {
		t.Fatalf("SaveCache error: %v", err)
	}
	_ = s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer func() { _ = s.Close() }()

	cache, err := backend.LoadCache(ctx, s, backend.KindRated)
	if err != nil {
		t.Fatalf("LoadCache error: %v", err)
	}
	if cache.LastID == nil || *cache.LastID != 7 || len(cache.Items) != 1 {
		t.Errorf("cache not persisted: %+v", cache)
	}
}

// =============================================================================
// Failure paths (sqlmock)
// =============================================================================

func TestSetRollsBackOnWriteError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewWithDB(db)
	if err != nil {
		t.Fatalf("NewWithDB error: %v", err)
	}

	notified := false
	s.Subscribe(func([]string) { notified = true })

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO kv").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = s.Set(context.Background(), map[string]any{"hate_items": []int{}})
	if err == nil {
		t.Fatal("expected write error")
	}
	if notified {
		t.Error("subscribers must not be notified of a failed write")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSchemaErrorIsReturned(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnError(errors.New("readonly database"))
	if _, err := NewWithDB(db); err == nil {
		t.Fatal("expected schema error")
	}
}
