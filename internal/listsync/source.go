package listsync

import (
	"context"

	"github.com/DOCHIS/laftel-plus/backend"
	"github.com/DOCHIS/laftel-plus/backend/laftel"
)

// Source binds a remote list endpoint to the list kind it feeds
type Source[R any] struct {
	Kind     backend.ListKind
	Endpoint string
	Page     PageFunc[R]
	ID       func(R) int64
	Map      func(R) backend.ListItem
}

func pagesOf[R any](c *laftel.Client, endpoint string) PageFunc[R] {
	return func(ctx context.Context, offset, limit int) (*laftel.Page[R], error) {
		return laftel.FetchPage[R](ctx, c, endpoint, offset, limit)
	}
}

// RatedSource is the user's ratings, carrying the given score
func RatedSource(c *laftel.Client) Source[laftel.RatingRecord] {
	return Source[laftel.RatingRecord]{
		Kind:     backend.KindRated,
		Endpoint: laftel.RatingsEndpoint,
		Page:     pagesOf[laftel.RatingRecord](c, laftel.RatingsEndpoint),
		ID:       func(r laftel.RatingRecord) int64 { return r.Item.ID },
		Map: func(r laftel.RatingRecord) backend.ListItem {
			return backend.ListItem{
				ID:        r.Item.ID,
				Name:      r.Item.Name,
				Img:       r.Item.Img,
				Rating:    r.Value,
				AvgRating: r.Item.AvgRating,
			}
		},
	}
}

// WishSource is the user's wishlist
func WishSource(c *laftel.Client) Source[laftel.WishRecord] {
	return Source[laftel.WishRecord]{
		Kind:     backend.KindWish,
		Endpoint: laftel.WishEndpoint,
		Page:     pagesOf[laftel.WishRecord](c, laftel.WishEndpoint),
		ID:       func(r laftel.WishRecord) int64 { return r.Item.ID },
		Map: func(r laftel.WishRecord) backend.ListItem {
			return backend.ListItem{
				ID:        r.Item.ID,
				Name:      r.Item.Name,
				Img:       r.Item.Img,
				AvgRating: r.Item.AvgRating,
			}
		},
	}
}
