package listsync

import "github.com/DOCHIS/laftel-plus/backend"

// Merge folds freshly fetched records into an existing cache.
//
// Fetched records are in descending recency order. Records whose id is not cached are
// prepended in remote order; cached ones are replaced in place with the remote data.
// LastID becomes the id of the first fetched record, or stays unchanged when nothing
// was fetched. Duplicate ids within fetched keep their first position and the data of
// their last occurrence. The existing cache is never modified.
func Merge(existing *backend.ListCache, fetched []backend.ListItem) (*backend.ListCache, int) {
	out := existing.Clone()
	if len(fetched) == 0 {
		return out, 0
	}

	// latest data per id, and first-seen order of new ids
	latest := make(map[int64]backend.ListItem, len(fetched))
	for _, item := range fetched {
		latest[item.ID] = item
	}

	known := make(map[int64]bool, len(out.Items))
	for _, item := range out.Items {
		known[item.ID] = true
	}

	var added []backend.ListItem
	queued := make(map[int64]bool)
	for _, item := range fetched {
		if known[item.ID] || queued[item.ID] {
			continue
		}
		queued[item.ID] = true
		added = append(added, latest[item.ID])
	}

	items := make([]backend.ListItem, 0, len(added)+len(out.Items))
	items = append(items, added...)
	for _, item := range out.Items {
		if remote, ok := latest[item.ID]; ok {
			item = remote
		}
		items = append(items, item)
	}
	out.Items = items

	head := fetched[0].ID
	out.LastID = &head

	return out, len(added)
}
