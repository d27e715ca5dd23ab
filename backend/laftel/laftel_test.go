package laftel_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/backend/laftel"
	"github.com/DOCHIS/laftel-plus/internal/testutil/laftelmock"
)

// =============================================================================
// Authentication
// =============================================================================

func TestNewRequiresTokenSource(t *testing.T) {
	if _, err := laftel.New(laftel.Config{}); err == nil {
		t.Error("expected error without token source")
	}
}

func TestMissingTokenIsAuthError(t *testing.T) {
	srv := laftelmock.New(t)
	c, err := laftel.New(laftel.Config{BaseURL: srv.URL, Tokens: laftel.StaticToken("")})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	_, err = laftel.FetchPage[laftel.WishRecord](context.Background(), c, laftel.WishEndpoint, 0, 25)
	var authErr *backend.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if len(srv.Requests()) != 0 {
		t.Error("no request should be sent without a token")
	}
}

func TestRejectedTokenIsRemoteError(t *testing.T) {
	srv := laftelmock.New(t)
	c, _ := laftel.New(laftel.Config{BaseURL: srv.URL, Tokens: laftel.StaticToken("expired")})

	err := c.SetWish(context.Background(), 1, true)
	var remoteErr *backend.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", remoteErr.StatusCode)
	}
}

func TestSendsTokenHeader(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.String()
		_, _ = w.Write([]byte(`{"count":0,"results":[]}`))
	}))
	defer server.Close()

	c, _ := laftel.New(laftel.Config{BaseURL: server.URL + "/", Tokens: laftel.StaticToken("abc")})
	page, err := laftel.FetchPage[laftel.RatingRecord](context.Background(), c, laftel.RatingsEndpoint, 50, 25)
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}
	if page.Results == nil {
		t.Error("empty results should be a non-nil slice")
	}
	if gotAuth != "Token abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/api/reviews/v1/my_ratings/?sorting=add&offset=50&limit=25" {
		t.Errorf("path = %q", gotPath)
	}
}

// =============================================================================
// Lists
// =============================================================================

func TestFetchRatingsPage(t *testing.T) {
	srv := laftelmock.New(t)
	srv.AddRating(1, "Mushishi", 4)
	srv.AddRating(2, "Frieren", 5)
	c := srv.Client(t)

	page, err := laftel.FetchPage[laftel.RatingRecord](context.Background(), c, laftel.RatingsEndpoint, 0, 25)
	if err != nil {
		t.Fatalf("FetchPage error: %v", err)
	}
	if page.Count != 2 || len(page.Results) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Results[0].Item.ID != 2 || page.Results[0].Value != 5 {
		t.Errorf("most recent record should come first, got %+v", page.Results[0])
	}
}

func TestFetchPageServerError(t *testing.T) {
	srv := laftelmock.New(t)
	srv.FailOffset[0] = http.StatusBadGateway
	c := srv.Client(t)

	_, err := laftel.FetchPage[laftel.WishRecord](context.Background(), c, laftel.WishEndpoint, 0, 25)
	var remoteErr *backend.RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 RemoteError, got %v", err)
	}
}

func TestInvalidJSONIsRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	c, _ := laftel.New(laftel.Config{BaseURL: server.URL, Tokens: laftel.StaticToken("abc")})
	_, err := laftel.FetchPage[laftel.WishRecord](context.Background(), c, laftel.WishEndpoint, 0, 25)
	if !backend.IsRemote(err) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
}

func TestTransportFailureIsRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, _ := laftel.New(laftel.Config{BaseURL: url, Tokens: laftel.StaticToken("abc")})
	err := c.SetHate(context.Background(), 3, true)
	var remoteErr *backend.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.StatusCode != 0 || remoteErr.Err == nil {
		t.Errorf("transport failure should carry the cause, got %+v", remoteErr)
	}
}

// =============================================================================
// Toggles and item details
// =============================================================================

func TestSetMembership(t *testing.T) {
	srv := laftelmock.New(t)
	c := srv.Client(t)
	ctx := context.Background()

	if err := c.SetMembership(ctx, backend.KindWish, 7, true); err != nil {
		t.Fatalf("SetMembership wish error: %v", err)
	}
	if err := c.SetMembership(ctx, backend.KindHate, 8, true); err != nil {
		t.Fatalf("SetMembership hate error: %v", err)
	}
	if err := c.SetMembership(ctx, backend.KindRated, 9, true); !errors.Is(err, backend.ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind for rated, got %v", err)
	}

	toggles := srv.Toggles()
	if len(toggles) != 2 {
		t.Fatalf("expected 2 toggles, got %+v", toggles)
	}
	if toggles[0] != (laftelmock.Toggle{ItemID: 7, Field: "is_wish", Value: true}) {
		t.Errorf("unexpected wish toggle %+v", toggles[0])
	}
	if toggles[1] != (laftelmock.Toggle{ItemID: 8, Field: "is_hate", Value: true}) {
		t.Errorf("unexpected hate toggle %+v", toggles[1])
	}
	if ids := srv.WishIDs(); len(ids) != 1 || ids[0] != 7 {
		t.Errorf("remote wishlist = %v", ids)
	}
}

func TestGetItem(t *testing.T) {
	srv := laftelmock.New(t)
	rating := 15
	srv.Items[10] = laftel.ItemDetail{ID: 10, Name: "Monster", Img: "m.jpg", Genre: []string{"스릴러"}, Medium: "TVA", Rating: &rating}
	srv.Items[11] = laftel.ItemDetail{ID: 11, Name: "No Images"}
	c := srv.Client(t)
	ctx := context.Background()

	item, err := c.GetItem(ctx, 10)
	if err != nil {
		t.Fatalf("GetItem error: %v", err)
	}
	if item.Img != "m.jpg" || item.Rating == nil || *item.Rating != 15 || item.Genre[0] != "스릴러" {
		t.Errorf("unexpected detail %+v", item)
	}

	if _, err := c.GetItem(ctx, 404); !backend.IsRemote(err) {
		t.Errorf("expected RemoteError for unknown item, got %v", err)
	}
}

// =============================================================================
// Discover
// =============================================================================

func TestDiscoverParams(t *testing.T) {
	q := backend.DefaultDiscoverQuery()
	q.Keyword = "진격"
	q.Offset = 100
	q.Genres = backend.FilterSet{Include: []string{"액션", "판타지"}, Exclude: []string{"개그"}}
	q.Years = backend.FilterSet{Exclude: []string{"2020"}}
	q.Ending = []string{"true"}
	q.Svod = true

	params := laftel.DiscoverParams(q)
	want := map[string]string{
		"sort":           "rank",
		"offset":         "100",
		"size":           "100",
		"viewable":       "true",
		"svod":           "true",
		"keyword":        "진격",
		"genres":         "액션,판타지",
		"exclude_genres": "개그",
		"exclude_years":  "2020",
		"ending":         "true",
	}
	for k, v := range want {
		if got := params.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	for _, absent := range []string{"tags", "exclude_tags", "years"} {
		if params.Has(absent) {
			t.Errorf("%s should not be set", absent)
		}
	}
}

func TestDiscover(t *testing.T) {
	srv := laftelmock.New(t)
	srv.Catalog = []backend.CatalogItem{
		{ID: 1, Name: "진격의 거인", AgeRating: 19},
		{ID: 2, Name: "스파이 패밀리", AgeRating: 12},
	}
	c := srv.Client(t)

	q := backend.DefaultDiscoverQuery()
	q.Keyword = "거인"
	page, err := c.Discover(context.Background(), q)
	if err != nil {
		t.Fatalf("Discover error: %v", err)
	}
	if page.Count != 1 || page.Results[0].ID != 1 || page.Results[0].AgeRating != 19 {
		t.Errorf("unexpected page %+v", page)
	}
	if !strings.Contains(srv.LastQuery(), "sort=rank") {
		t.Errorf("query missing sort: %s", srv.LastQuery())
	}
}

func TestDiscoverOptions(t *testing.T) {
	srv := laftelmock.New(t)
	srv.Options = backend.DiscoverOptions{Genres: []string{"액션"}, Years: []string{"2024년 1분기"}}
	c := srv.Client(t)

	opts, err := c.DiscoverOptions(context.Background())
	if err != nil {
		t.Fatalf("DiscoverOptions error: %v", err)
	}
	if len(opts.Genres) != 1 || len(opts.Years) != 1 || opts.Tags == nil {
		t.Errorf("unexpected options %+v", opts)
	}
}
