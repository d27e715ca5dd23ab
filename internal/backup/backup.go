// Package backup exports and imports list caches as portable base64 strings.
package backup

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DOCHIS/laftel-plus/backend"
)

// Mode selects how imported items combine with the current list
type Mode int

const (
	// ModeReplace discards the current list
	ModeReplace Mode = iota
	// ModeMerge appends imported items whose ids are not already present
	ModeMerge
)

func (m Mode) String() string {
	if m == ModeMerge {
		return "merge"
	}
	return "replace"
}

// Filename returns the default export file name for the given day
func Filename(t time.Time) string {
	return fmt.Sprintf("laftel-plus-backup-%s.txt", t.Format("2006-01-02"))
}

// Encode returns base64 of the UTF-8 JSON array of items
func Encode(items []backend.ListItem) (string, error) {
	if items == nil {
		items = []backend.ListItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses a backup string. Any malformation yields a *backend.FormatError.
func Decode(payload string) ([]backend.ListItem, error) {
	payload = strings.Join(strings.Fields(payload), "")
	if payload == "" {
		return nil, &backend.FormatError{Reason: "empty backup"}
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &backend.FormatError{Reason: "not valid base64", Err: err}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &backend.FormatError{Reason: "not a JSON array"}
	}

	var items []backend.ListItem
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, &backend.FormatError{Reason: "not a list of items", Err: err}
	}
	for i, item := range items {
		if item.ID <= 0 {
			return nil, &backend.FormatError{Reason: fmt.Sprintf("entry %d has no valid id", i)}
		}
	}
	return items, nil
}

// Export encodes the cached items of kind
func Export(ctx context.Context, store backend.Store, kind backend.ListKind) (string, int, error) {
	cache, err := backend.LoadCache(ctx, store, kind)
	if err != nil {
		return "", 0, err
	}
	payload, err := Encode(cache.Items)
	if err != nil {
		return "", 0, err
	}
	return payload, len(cache.Items), nil
}

// Import decodes payload and writes it into the list of kind.
// The store is untouched unless the whole payload is valid. Returns the resulting list size.
func Import(ctx context.Context, store backend.Store, kind backend.ListKind, payload string, mode Mode) (int, error) {
	imported, err := Decode(payload)
	if err != nil {
		return 0, err
	}

	cache, err := backend.LoadCache(ctx, store, kind)
	if err != nil {
		return 0, err
	}

	seen := make(map[int64]bool, len(cache.Items)+len(imported))
	var items []backend.ListItem
	if mode == ModeMerge {
		for _, item := range cache.Items {
			seen[item.ID] = true
		}
		items = append(items, cache.Items...)
	}
	for _, item := range imported {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		items = append(items, item)
	}
	if items == nil {
		items = []backend.ListItem{}
	}

	cache.Items = items
	cache.UpdatedAt = time.Now()
	if err := backend.SaveCache(ctx, store, cache); err != nil {
		return 0, err
	}
	return len(items), nil
}
