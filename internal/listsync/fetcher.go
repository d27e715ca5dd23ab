package listsync

import (
	"context"
	"iter"

	"github.com/DOCHIS/laftel-plus/backend/laftel"
)

// DefaultPageSize is the number of records requested per page
const DefaultPageSize = 25

// DefaultMaxPages caps incremental syncs when the high-water mark is not found
const DefaultMaxPages = 10

// PageFunc retrieves one page of a remote list
type PageFunc[R any] func(ctx context.Context, offset, limit int) (*laftel.Page[R], error)

// StopReason tells why a fetch ended
type StopReason string

const (
	StopMark      StopReason = "mark"      // reached the previous high-water mark
	StopExhausted StopReason = "exhausted" // the remote collection has no more records
	StopCap       StopReason = "cap"       // page cap reached
	StopError     StopReason = "error"
	StopConsumer  StopReason = "consumer" // the caller stopped iterating
)

// FetchReport collects statistics about one fetch
type FetchReport struct {
	Pages  int
	Total  int // count reported by the remote envelope
	Reason StopReason
}

// FetchOptions controls pagination
type FetchOptions struct {
	PageSize int
	MaxPages int    // 0 means no cap
	StopID   *int64 // records from this id on are already known

	// OnPage is called after every page with the number of records seen so far and the remote total
	OnPage func(fetched, total int)
	Report *FetchReport
}

// Fetch lazily pages through a remote list in descending recency order.
// The sequence ends at the record whose id equals StopID (not yielded), when the
// collection is exhausted, or after MaxPages pages. A failed page yields its error once and ends.
func Fetch[R any](ctx context.Context, page PageFunc[R], idOf func(R) int64, opts FetchOptions) iter.Seq2[R, error] {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	report := opts.Report
	if report == nil {
		report = &FetchReport{}
	}

	return func(yield func(R, error) bool) {
		var zero R
		offset, seen := 0, 0

		for {
			if opts.MaxPages > 0 && report.Pages >= opts.MaxPages {
				report.Reason = StopCap
				return
			}
			if err := ctx.Err(); err != nil {
				report.Reason = StopError
				yield(zero, err)
				return
			}

			p, err := page(ctx, offset, pageSize)
			if err != nil {
				report.Reason = StopError
				yield(zero, err)
				return
			}
			report.Pages++
			report.Total = p.Count

			if len(p.Results) == 0 {
				report.Reason = StopExhausted
				return
			}

			for _, rec := range p.Results {
				if opts.StopID != nil && idOf(rec) == *opts.StopID {
					report.Reason = StopMark
					return
				}
				seen++
				if !yield(rec, nil) {
					report.Reason = StopConsumer
					return
				}
			}
			if opts.OnPage != nil {
				opts.OnPage(seen, p.Count)
			}

			offset += len(p.Results)
			if len(p.Results) < pageSize || (p.Count > 0 && offset >= p.Count) {
				report.Reason = StopExhausted
				return
			}
		}
	}
}
