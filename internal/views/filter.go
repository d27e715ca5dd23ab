package views

import (
	"context"
	"slices"
	"strings"

	"github.com/DOCHIS/laftel-plus/backend"
)

// Apply filters items and annotates the survivors.
//
// A rated item is dropped when ExcludeRated is set; otherwise a hated item is dropped
// when ExcludeHate is set. Remaining items keep their order.
func Apply(items []backend.CatalogItem, lk Lookups, opts Options) []Card {
	cards := make([]Card, 0, len(items))
	for _, item := range items {
		card, keep := Annotate(item, lk, opts)
		if keep {
			cards = append(cards, card)
		}
	}
	return cards
}

// Annotate decides whether item is kept and attaches its membership flags
func Annotate(item backend.CatalogItem, lk Lookups, opts Options) (Card, bool) {
	rated, isRated := lk.Rated[item.ID]
	_, isHate := lk.Hate[item.ID]

	if opts.ExcludeRated && isRated {
		return Card{}, false
	}
	if opts.ExcludeHate && isHate {
		return Card{}, false
	}

	_, isWish := lk.Wish[item.ID]
	card := Card{Item: item, IsRated: isRated, IsWish: isWish, IsHate: isHate}
	if isRated {
		card.Rating = rated.Rating
	}
	return card, true
}

// LoadLookups reads all three caches from store
func LoadLookups(ctx context.Context, store backend.Store) (Lookups, error) {
	caches := make(map[backend.ListKind]*backend.ListCache, 3)
	for _, kind := range backend.Kinds() {
		c, err := backend.LoadCache(ctx, store, kind)
		if err != nil {
			return Lookups{}, err
		}
		caches[kind] = c
	}
	return NewLookups(caches[backend.KindRated], caches[backend.KindWish], caches[backend.KindHate]), nil
}

// FilterByName keeps list items whose name contains query, case-insensitively.
// An empty query keeps everything.
func FilterByName(items []backend.ListItem, query string) []backend.ListItem {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	var out []backend.ListItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), query) {
			out = append(out, item)
		}
	}
	return out
}

// CycleFilter advances value through none, include, exclude and back to none
func CycleFilter(set backend.FilterSet, value string) backend.FilterSet {
	include := slices.Clone(set.Include)
	exclude := slices.Clone(set.Exclude)

	switch set.State(value) {
	case "include":
		include = slices.DeleteFunc(include, func(v string) bool { return v == value })
		exclude = append(exclude, value)
	case "exclude":
		exclude = slices.DeleteFunc(exclude, func(v string) bool { return v == value })
	default:
		include = append(include, value)
	}

	if include == nil {
		include = []string{}
	}
	if exclude == nil {
		exclude = []string{}
	}
	return backend.FilterSet{Include: include, Exclude: exclude}
}

// ParseFilterArgs builds a filter set from "+value" (include) and "-value" (exclude) arguments.
// Bare values are included.
func ParseFilterArgs(args []string) backend.FilterSet {
	set := backend.FilterSet{Include: []string{}, Exclude: []string{}}
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			switch {
			case part == "" || part == "-" || part == "+":
			case strings.HasPrefix(part, "-"):
				set.Exclude = append(set.Exclude, part[1:])
			case strings.HasPrefix(part, "+"):
				set.Include = append(set.Include, part[1:])
			default:
				set.Include = append(set.Include, part)
			}
		}
	}
	return set
}

// LoadQuery returns the saved discover filters merged onto the defaults
func LoadQuery(ctx context.Context, store backend.Store) (backend.DiscoverQuery, error) {
	q := backend.DefaultDiscoverQuery()
	if _, err := store.Get(ctx, backend.FiltersKey, &q); err != nil {
		return backend.DefaultDiscoverQuery(), err
	}
	q.Size = backend.DefaultDiscoverPageSize
	return q, nil
}

// SaveQuery persists the filter part of q
func SaveQuery(ctx context.Context, store backend.Store, q backend.DiscoverQuery) error {
	return store.Set(ctx, map[string]any{backend.FiltersKey: q})
}
