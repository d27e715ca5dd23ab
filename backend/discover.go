package backend

import "slices"

// FilterSet holds the values explicitly included in and excluded from a discover query
type FilterSet struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// State returns "include", "exclude" or "" for value
func (f FilterSet) State(value string) string {
	switch {
	case slices.Contains(f.Include, value):
		return "include"
	case slices.Contains(f.Exclude, value):
		return "exclude"
	}
	return ""
}

// Empty reports whether no value is selected
func (f FilterSet) Empty() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

// DiscoverQuery describes one discover search. Keyword, Offset and Size are not persisted.
type DiscoverQuery struct {
	Sort     string    `json:"sort"`
	Genres   FilterSet `json:"genres"`
	Tags     FilterSet `json:"tags"`
	Years    FilterSet `json:"years"`
	Ending   []string  `json:"ending"`
	Viewable bool      `json:"viewable"`
	Svod     bool      `json:"svod"`

	Keyword string `json:"-"`
	Offset  int    `json:"-"`
	Size    int    `json:"-"`
}

// DefaultDiscoverPageSize is the number of results requested per discover page
const DefaultDiscoverPageSize = 100

// DefaultDiscoverQuery returns the query used before any filter is saved
func DefaultDiscoverQuery() DiscoverQuery {
	return DiscoverQuery{
		Sort:     "rank",
		Genres:   FilterSet{Include: []string{}, Exclude: []string{}},
		Tags:     FilterSet{Include: []string{}, Exclude: []string{}},
		Years:    FilterSet{Include: []string{}, Exclude: []string{}},
		Ending:   []string{},
		Viewable: true,
		Size:     DefaultDiscoverPageSize,
	}
}

// DiscoverOptions are the selectable filter values offered by the catalog
type DiscoverOptions struct {
	Genres []string `json:"genres"`
	Tags   []string `json:"tags"`
	Years  []string `json:"years"`
}
