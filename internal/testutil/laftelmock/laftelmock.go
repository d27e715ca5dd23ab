// Package laftelmock runs an in-process fake of the Laftel API for tests.
package laftelmock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/backend/laftel"
)

// Token is the session token the mock server accepts
const Token = "test-token"

// Server is a fake Laftel API backed by in-memory lists
type Server struct {
	*httptest.Server

	mu sync.Mutex

	// Ratings and Wish are ordered most recently added first
	Ratings []laftel.RatingRecord
	Wish    []laftel.WishRecord
	Hate    map[int64]bool
	Items   map[int64]laftel.ItemDetail
	Catalog []backend.CatalogItem
	Options backend.DiscoverOptions

	// FailToggle makes toggles of the given item ids answer with the status code
	FailToggle map[int64]int
	// FailOffset makes list pages at the given offsets answer with the status code
	FailOffset map[int]int
	// FailItems makes item detail lookups answer with 404
	FailItems bool
	// OnRequest runs before every request is served and may block it
	OnRequest func(path string)

	requests  []string
	toggles   []Toggle
	lastQuery string
}

// Toggle records one rate call
type Toggle struct {
	ItemID int64
	Field  string // is_wish or is_hate
	Value  bool
}

// New starts a mock server and registers cleanup with t
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Hate:       make(map[int64]bool),
		Items:      make(map[int64]laftel.ItemDetail),
		FailToggle: make(map[int64]int),
		FailOffset: make(map[int]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reviews/v1/my_ratings/", s.handleRatings)
	mux.HandleFunc("GET /api/items/v1/wish_item/", s.handleWish)
	mux.HandleFunc("POST /api/v1.0/items/{id}/rate/", s.handleRate)
	mux.HandleFunc("GET /api/items/v4/{id}/", s.handleItem)
	mux.HandleFunc("GET /api/search/v1/discover/", s.handleDiscover)
	mux.HandleFunc("GET /api/v1.0/info/discover/", s.handleDiscoverInfo)

	s.Server = httptest.NewServer(s.authenticate(mux))
	t.Cleanup(s.Close)
	return s
}

// Client returns a laftel client pointed at the mock server
func (s *Server) Client(t testing.TB) *laftel.Client {
	t.Helper()
	c, err := laftel.New(laftel.Config{BaseURL: s.URL, Tokens: laftel.StaticToken(Token), MaxRetries: 1})
	if err != nil {
		t.Fatalf("laftel.New error: %v", err)
	}
	return c
}

// AddRating prepends a rating so it becomes the most recent record
func (s *Server) AddRating(id int64, name string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := laftel.RatingRecord{Value: value, Item: laftel.RecordItem{ID: id, Name: name, Img: fmt.Sprintf("https://img.example/%d.jpg", id)}}
	s.Ratings = append([]laftel.RatingRecord{rec}, s.Ratings...)
}

// AddWish prepends a wishlist record
func (s *Server) AddWish(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := laftel.WishRecord{Item: laftel.RecordItem{ID: id, Name: name, Img: fmt.Sprintf("https://img.example/%d.jpg", id)}}
	s.Wish = append([]laftel.WishRecord{rec}, s.Wish...)
}

// Requests returns the request paths received so far
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Toggles returns the rate calls received so far
func (s *Server) Toggles() []Toggle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Toggle(nil), s.toggles...)
}

// LastQuery returns the raw query of the latest discover call
func (s *Server) LastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// WishIDs returns the ids currently on the remote wishlist
func (s *Server) WishIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.Wish))
	for _, w := range s.Wish {
		ids = append(ids, w.Item.ID)
	}
	return ids
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.Path)
		hook := s.OnRequest
		s.mu.Unlock()
		if hook != nil {
			hook(r.URL.Path)
		}

		if r.Header.Get("Authorization") != "Token "+Token {
			http.Error(w, `{"detail":"invalid token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func pageBounds(r *http.Request, total int) (int, int) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 25
	}
	start := min(offset, total)
	end := min(start+limit, total)
	return start, end
}

func (s *Server) failPage(w http.ResponseWriter, r *http.Request) bool {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if status, ok := s.FailOffset[offset]; ok {
		w.WriteHeader(status)
		return true
	}
	return false
}

func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPage(w, r) {
		return
	}
	start, end := pageBounds(r, len(s.Ratings))
	writeJSON(w, laftel.Page[laftel.RatingRecord]{Count: len(s.Ratings), Results: s.Ratings[start:end]})
}

func (s *Server) handleWish(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPage(w, r) {
		return
	}
	start, end := pageBounds(r, len(s.Wish))
	writeJSON(w, laftel.Page[laftel.WishRecord]{Count: len(s.Wish), Results: s.Wish[start:end]})
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	var body map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for field, value := range body {
		s.toggles = append(s.toggles, Toggle{ItemID: id, Field: field, Value: value})
	}
	if status, ok := s.FailToggle[id]; ok {
		w.WriteHeader(status)
		return
	}

	if v, ok := body["is_wish"]; ok {
		s.Wish = slices.DeleteFunc(s.Wish, func(rec laftel.WishRecord) bool { return rec.Item.ID == id })
		if v {
			s.Wish = append([]laftel.WishRecord{{Item: laftel.RecordItem{ID: id}}}, s.Wish...)
		}
	}
	if v, ok := body["is_hate"]; ok {
		if v {
			s.Hate[id] = true
		} else {
			delete(s.Hate, id)
		}
	}
	writeJSON(w, map[string]any{"id": id})
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	s.mu.Lock()
	item, ok := s.Items[id]
	fail := s.FailItems
	s.mu.Unlock()

	if fail || !ok {
		http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
		return
	}

	resp := map[string]any{
		"id":     item.ID,
		"name":   item.Name,
		"genre":  item.Genre,
		"medium": item.Medium,
		"images": []map[string]string{{"img_url": item.Img}},
	}
	if item.Rating != nil {
		resp["max_episode_rating"] = map[string]int{"rating": *item.Rating}
	}
	writeJSON(w, resp)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = r.URL.RawQuery

	results := s.Catalog
	if kw := q.Get("keyword"); kw != "" {
		results = slices.DeleteFunc(slices.Clone(results), func(c backend.CatalogItem) bool {
			return !strings.Contains(c.Name, kw)
		})
	}

	offset, _ := strconv.Atoi(q.Get("offset"))
	size, _ := strconv.Atoi(q.Get("size"))
	if size <= 0 {
		size = backend.DefaultDiscoverPageSize
	}
	start := min(offset, len(results))
	end := min(start+size, len(results))
	writeJSON(w, laftel.Page[backend.CatalogItem]{Count: len(results), Results: results[start:end]})
}

func (s *Server) handleDiscoverInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, map[string]any{
		"genres": s.Options.Genres,
		"tags":   s.Options.Tags,
		"years":  map[string][]string{"animation": s.Options.Years},
	})
}
