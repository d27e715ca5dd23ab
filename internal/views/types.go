// Package views filters catalog results against the user's lists and renders them.
package views

import "github.com/DOCHIS/laftel-plus/backend"

// Options are the client-side filter switches
type Options struct {
	ExcludeRated bool `json:"excludeRated"`
	ExcludeHate  bool `json:"excludeHate"`
}

// OptionsFromSettings maps persisted settings onto filter options
func OptionsFromSettings(s backend.Settings) Options {
	return Options{ExcludeRated: s.HideRated, ExcludeHate: s.HideHate}
}

// Card is a catalog item annotated with the user's list membership
type Card struct {
	Item    backend.CatalogItem `json:"item"`
	IsRated bool                `json:"isRated"`
	IsWish  bool                `json:"isWish"`
	IsHate  bool                `json:"isHate"`
	Rating  int                 `json:"rating,omitempty"` // the user's score when rated
}

// Badge is a status marker shown on a card
type Badge string

const (
	BadgeRated Badge = "rated"
	BadgeWish  Badge = "wish"
	BadgeHate  Badge = "hate"
)

// Badges returns the status badges to display.
// A rated card only shows its rating, even when it is also wished or hated.
func (c Card) Badges() []Badge {
	if c.IsRated {
		return []Badge{BadgeRated}
	}
	var badges []Badge
	if c.IsWish {
		badges = append(badges, BadgeWish)
	}
	if c.IsHate {
		badges = append(badges, BadgeHate)
	}
	return badges
}

// Lookups indexes the three list caches by item id
type Lookups struct {
	Rated map[int64]backend.ListItem
	Wish  map[int64]backend.ListItem
	Hate  map[int64]backend.ListItem
}

// NewLookups builds lookups from caches; nil caches count as empty
func NewLookups(rated, wish, hate *backend.ListCache) Lookups {
	index := func(c *backend.ListCache) map[int64]backend.ListItem {
		if c == nil {
			return map[int64]backend.ListItem{}
		}
		return c.Index()
	}
	return Lookups{Rated: index(rated), Wish: index(wish), Hate: index(hate)}
}

// AgeRatingLabel returns the display label of an age rating
func AgeRatingLabel(rating int) string {
	switch {
	case rating >= 19:
		return "19"
	case rating >= 15:
		return "15"
	case rating >= 12:
		return "12"
	}
	return "ALL"
}
