package laftel

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Remote list endpoints, ordered most recently added first
const (
	RatingsEndpoint = "/api/reviews/v1/my_ratings/?sorting=add"
	WishEndpoint    = "/api/items/v1/wish_item/?sorting=add"
)

// Page is the paginated response envelope
type Page[R any] struct {
	Count   int `json:"count"`
	Results []R `json:"results"`
}

// RecordItem is the catalog item embedded in list records
type RecordItem struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Img       string  `json:"img"`
	AvgRating float64 `json:"avg_rating"`
}

// RatingRecord is one entry of the ratings list
type RatingRecord struct {
	Value int        `json:"value"`
	Item  RecordItem `json:"item"`
}

// WishRecord is one entry of the wishlist
type WishRecord struct {
	Item RecordItem `json:"item"`
}

// FetchPage retrieves one page of a list endpoint
func FetchPage[R any](ctx context.Context, c *Client, endpoint string, offset, limit int) (*Page[R], error) {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	path := fmt.Sprintf("%s%soffset=%d&limit=%d", endpoint, sep, offset, limit)

	var page Page[R]
	if err := c.call(ctx, "fetch "+endpoint, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []R{}
	}
	return &page, nil
}
