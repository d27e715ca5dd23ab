package tui

import (
	"context"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/backend/laftel"
	"github.com/DOCHIS/laftel-plus/internal/listsync"
	"github.com/DOCHIS/laftel-plus/internal/views"
)

// Backend is what the browser needs from the catalog and the list caches
type Backend interface {
	Discover(ctx context.Context, q backend.DiscoverQuery) ([]backend.CatalogItem, int, error)
	Toggle(ctx context.Context, kind backend.ListKind, item backend.ListItem) (bool, error)
	SyncAll(ctx context.Context) error
	Lookups(ctx context.Context) (views.Lookups, error)
	Settings(ctx context.Context) (backend.Settings, error)
	SaveSettings(ctx context.Context, s backend.Settings) error
	SaveQuery(ctx context.Context, q backend.DiscoverQuery) error
}

// Service implements Backend with the Laftel client and the syncer
type Service struct {
	client *laftel.Client
	syncer *listsync.Syncer
}

// NewService wires the browser to real components
func NewService(client *laftel.Client, syncer *listsync.Syncer) *Service {
	return &Service{client: client, syncer: syncer}
}

// Discover runs one catalog search and returns the page and the total match count
func (s *Service) Discover(ctx context.Context, q backend.DiscoverQuery) ([]backend.CatalogItem, int, error) {
	page, err := s.client.Discover(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return page.Results, page.Count, nil
}

// Toggle flips item in kind on Laftel and in the cache
func (s *Service) Toggle(ctx context.Context, kind backend.ListKind, item backend.ListItem) (bool, error) {
	return s.syncer.Toggle(ctx, kind, item)
}

// SyncAll syncs the ratings and the wishlist
func (s *Service) SyncAll(ctx context.Context) error {
	_, err := s.syncer.SyncAll(ctx)
	return err
}

// Lookups loads the cached lists used to mark catalog rows
func (s *Service) Lookups(ctx context.Context) (views.Lookups, error) {
	return views.LoadLookups(ctx, s.syncer.Store())
}

// Settings loads the overlay settings
func (s *Service) Settings(ctx context.Context) (backend.Settings, error) {
	return backend.LoadSettings(ctx, s.syncer.Store())
}

// SaveSettings persists the overlay settings
func (s *Service) SaveSettings(ctx context.Context, settings backend.Settings) error {
	return backend.SaveSettings(ctx, s.syncer.Store(), settings)
}

// SaveQuery remembers q as the last discover query
func (s *Service) SaveQuery(ctx context.Context, q backend.DiscoverQuery) error {
	return views.SaveQuery(ctx, s.syncer.Store(), q)
}
