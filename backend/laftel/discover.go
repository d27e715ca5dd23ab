package laftel

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DOCHIS/laftel-plus/backend"
)

// DiscoverParams encodes q as discover query parameters
func DiscoverParams(q backend.DiscoverQuery) url.Values {
	params := url.Values{}
	sort := q.Sort
	if sort == "" {
		sort = "rank"
	}
	size := q.Size
	if size <= 0 {
		size = backend.DefaultDiscoverPageSize
	}
	params.Set("sort", sort)
	params.Set("offset", strconv.Itoa(q.Offset))
	params.Set("size", strconv.Itoa(size))

	if q.Viewable {
		params.Set("viewable", "true")
	}
	if q.Svod {
		params.Set("svod", "true")
	}
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}

	addSet := func(name string, set backend.FilterSet) {
		if len(set.Include) > 0 {
			params.Set(name, strings.Join(set.Include, ","))
		}
		if len(set.Exclude) > 0 {
			params.Set("exclude_"+name, strings.Join(set.Exclude, ","))
		}
	}
	addSet("genres", q.Genres)
	addSet("tags", q.Tags)
	addSet("years", q.Years)

	if len(q.Ending) > 0 {
		params.Set("ending", q.Ending[0])
	}
	return params
}

// Discover runs a catalog search
func (c *Client) Discover(ctx context.Context, q backend.DiscoverQuery) (*Page[backend.CatalogItem], error) {
	var page Page[backend.CatalogItem]
	path := "/api/search/v1/discover/?" + DiscoverParams(q).Encode()
	if err := c.call(ctx, "discover", http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []backend.CatalogItem{}
	}
	return &page, nil
}

type discoverInfoResponse struct {
	Genres []string `json:"genres"`
	Tags   []string `json:"tags"`
	Years  struct {
		Animation []string `json:"animation"`
	} `json:"years"`
}

// DiscoverOptions fetches the selectable discover filter values
func (c *Client) DiscoverOptions(ctx context.Context) (*backend.DiscoverOptions, error) {
	var resp discoverInfoResponse
	if err := c.call(ctx, "discover options", http.MethodGet, "/api/v1.0/info/discover/", nil, &resp); err != nil {
		return nil, err
	}
	opts := &backend.DiscoverOptions{Genres: resp.Genres, Tags: resp.Tags, Years: resp.Years.Animation}
	if opts.Genres == nil {
		opts.Genres = []string{}
	}
	if opts.Tags == nil {
		opts.Tags = []string{}
	}
	if opts.Years == nil {
		opts.Years = []string{}
	}
	return opts, nil
}
