package laftel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/DOCHIS/laftel-plus/backend"
)

// SetWish adds (true) or removes (false) an item from the wishlist
func (c *Client) SetWish(ctx context.Context, itemID int64, wish bool) error {
	return c.rate(ctx, "toggle wish", itemID, map[string]bool{"is_wish": wish})
}

// SetHate marks (true) or unmarks (false) an item as hated
func (c *Client) SetHate(ctx context.Context, itemID int64, hate bool) error {
	return c.rate(ctx, "toggle hate", itemID, map[string]bool{"is_hate": hate})
}

// SetMembership dispatches to SetWish or SetHate
func (c *Client) SetMembership(ctx context.Context, kind backend.ListKind, itemID int64, present bool) error {
	switch kind {
	case backend.KindWish:
		return c.SetWish(ctx, itemID, present)
	case backend.KindHate:
		return c.SetHate(ctx, itemID, present)
	}
	return fmt.Errorf("%w: %s cannot be toggled", backend.ErrUnsupportedKind, kind)
}

func (c *Client) rate(ctx context.Context, op string, itemID int64, body map[string]bool) error {
	path := fmt.Sprintf("/api/v1.0/items/%d/rate/", itemID)
	return c.call(ctx, op, http.MethodPost, path, body, nil)
}

// ItemDetail is the display metadata of one catalog item
type ItemDetail struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Img    string   `json:"img"`
	Genre  []string `json:"genre"`
	Medium string   `json:"medium"`
	Rating *int     `json:"rating"` // age rating of the strictest episode
}

type itemResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Images []struct {
		ImgURL string `json:"img_url"`
	} `json:"images"`
	Genre            []string `json:"genre"`
	Medium           string   `json:"medium"`
	MaxEpisodeRating *struct {
		Rating int `json:"rating"`
	} `json:"max_episode_rating"`
}

// GetItem fetches item details
func (c *Client) GetItem(ctx context.Context, itemID int64) (*ItemDetail, error) {
	var resp itemResponse
	if err := c.call(ctx, "get item", http.MethodGet, fmt.Sprintf("/api/items/v4/%d/", itemID), nil, &resp); err != nil {
		return nil, err
	}

	detail := &ItemDetail{
		ID:     resp.ID,
		Name:   resp.Name,
		Genre:  resp.Genre,
		Medium: resp.Medium,
	}
	if detail.Genre == nil {
		detail.Genre = []string{}
	}
	if len(resp.Images) > 0 {
		detail.Img = resp.Images[0].ImgURL
	}
	if resp.MaxEpisodeRating != nil && resp.MaxEpisodeRating.Rating != 0 {
		r := resp.MaxEpisodeRating.Rating
		detail.Rating = &r
	}
	return detail, nil
}
