package listsync

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/backend/memory"
	"github.com/DOCHIS/laftel-plus/internal/testutil/laftelmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWish(t *testing.T, store backend.Store, itemIDs ...int64) {
	t.Helper()
	items := make([]backend.ListItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		items = append(items, backend.ListItem{ID: id})
	}
	require.NoError(t, backend.SaveCache(context.Background(), store, &backend.ListCache{Kind: backend.KindWish, Items: items, LastID: ptr(itemIDs[0])}))
}

func TestClearAllSkipsFailures(t *testing.T) {
	s, srv, store := newTestSyncer(t, Options{})
	seedWish(t, store, 1, 2, 3)
	srv.FailToggle[2] = http.StatusInternalServerError

	var progress []int
	res, err := s.ClearAll(context.Background(), backend.KindWish, func(done, total int, item backend.ListItem, err error) {
		progress = append(progress, done)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Completed)
	assert.Equal(t, []int64{2}, res.Failed)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Equal(t, []int64{2}, ids(mustLoad(t, store, backend.KindWish).Items))
	assert.Len(t, srv.Toggles(), 3)
}

func TestClearAllSpacesCalls(t *testing.T) {
	s, _, store := newTestSyncer(t, Options{BulkDelay: 30 * time.Millisecond})
	seedWish(t, store, 1, 2, 3, 4)

	start := time.Now()
	res, err := s.ClearAll(context.Background(), backend.KindWish, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Completed)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Empty(t, mustLoad(t, store, backend.KindWish).Items)
}

func TestClearAllCancellation(t *testing.T) {
	s, srv, store := newTestSyncer(t, Options{BulkDelay: 50 * time.Millisecond})
	seedWish(t, store, 1, 2, 3, 4, 5)

	ctx, cancel := context.WithCancel(context.Background())
	res, err := s.ClearAll(ctx, backend.KindWish, func(done, total int, item backend.ListItem, err error) {
		if done == 2 {
			cancel()
		}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, res.Completed)
	assert.Equal(t, 3, res.Skipped)
	assert.Len(t, srv.Toggles(), 2)
	assert.Equal(t, []int64{3, 4, 5}, ids(mustLoad(t, store, backend.KindWish).Items), "removed items are persisted")
}

func TestClearAllAuthAborts(t *testing.T) {
	srv := laftelmock.New(t)
	store := memory.New()
	s := New(store, newClientWithoutToken(t, srv.URL), Options{BulkDelay: time.Millisecond})
	seedWish(t, store, 1, 2)

	var calls int
	res, err := s.ClearAll(context.Background(), backend.KindWish, func(done, total int, item backend.ListItem, err error) {
		calls++
	})

	assert.True(t, backend.IsAuth(err), "got %v", err)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 0, res.Completed)
	assert.Empty(t, res.Failed)
	assert.Equal(t, res.Total, res.Skipped)
	assert.Zero(t, calls, "an aborted item is not reported as attempted")
	assert.Empty(t, srv.Toggles())
	assert.Equal(t, []int64{1, 2}, ids(mustLoad(t, store, backend.KindWish).Items))
}

func TestClearAllEmptyList(t *testing.T) {
	s, srv, _ := newTestSyncer(t, Options{})

	res, err := s.ClearAll(context.Background(), backend.KindHate, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, srv.Toggles())
}

func TestClearAllHoldsGuard(t *testing.T) {
	s, _, store := newTestSyncer(t, Options{BulkDelay: 20 * time.Millisecond})
	seedWish(t, store, 1, 2, 3)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.ClearAll(context.Background(), backend.KindWish, nil)
	}()

	require.Eventually(t, func() bool { return s.Busy(backend.KindWish) }, time.Second, time.Millisecond)
	_, err := s.Toggle(context.Background(), backend.KindWish, backend.ListItem{ID: 9})
	assert.ErrorIs(t, err, backend.ErrSyncInProgress)
	<-done
}
