package views

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
)

// DefaultDateFormat is the timestamp format used in list summaries
const DefaultDateFormat = "2006-01-02 15:04"

// Renderer writes cards and lists as text or JSON
type Renderer struct {
	writer io.Writer
	json   bool
}

// NewRenderer creates a renderer; asJSON selects JSON output
func NewRenderer(writer io.Writer, asJSON bool) *Renderer {
	return &Renderer{writer: writer, json: asJSON}
}

// Cards renders discover results
func (r *Renderer) Cards(cards []Card, total int) error {
	if r.json {
		return r.writeJSON(map[string]any{"count": total, "shown": len(cards), "results": cards})
	}

	_, _ = fmt.Fprintf(r.writer, "%d results (%d shown)\n", total, len(cards))
	for _, c := range cards {
		_, _ = fmt.Fprintln(r.writer, CardLine(c))
	}
	return nil
}

// CardLine formats one card as a single text line
func CardLine(c Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-8d [%-3s] %s", c.Item.ID, AgeRatingLabel(c.Item.AgeRating), c.Item.Name)
	if c.Item.Medium != "" {
		fmt.Fprintf(&b, " (%s)", c.Item.Medium)
	}
	if len(c.Item.Genres) > 0 {
		genres := c.Item.Genres
		if len(genres) > 3 {
			genres = genres[:3]
		}
		fmt.Fprintf(&b, " - %s", strings.Join(genres, ", "))
	}
	for _, badge := range c.Badges() {
		b.WriteString(" ")
		b.WriteString(BadgeLabel(badge, c.Rating))
	}
	return b.String()
}

// BadgeLabel returns the text shown for a badge
func BadgeLabel(b Badge, rating int) string {
	switch b {
	case BadgeRated:
		return fmt.Sprintf("★%d", rating)
	case BadgeWish:
		return "♥"
	case BadgeHate:
		return "✕"
	}
	return ""
}

// List renders the cached items of one list
func (r *Renderer) List(cache *backend.ListCache, items []backend.ListItem) error {
	if r.json {
		return r.writeJSON(map[string]any{
			"kind":       cache.Kind,
			"count":      len(items),
			"last_id":    cache.LastID,
			"updated_at": formatTime(cache.UpdatedAt, time.RFC3339),
			"items":      items,
		})
	}

	updated := formatTime(cache.UpdatedAt, DefaultDateFormat)
	if updated == "" {
		updated = "never"
	}
	_, _ = fmt.Fprintf(r.writer, "%s: %d items (updated %s)\n", cache.Kind, len(items), updated)
	for _, item := range items {
		line := fmt.Sprintf("  %-8d %s", item.ID, displayName(item))
		if item.Rating > 0 {
			line += fmt.Sprintf(" ★%d", item.Rating)
		}
		_, _ = fmt.Fprintln(r.writer, line)
	}
	return nil
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayName(item backend.ListItem) string {
	if item.Name == "" {
		return fmt.Sprintf("ID: %d", item.ID)
	}
	return item.Name
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(layout)
}
