package pagination

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidTotal is returned when the requested total is below 1.
	ErrInvalidTotal = errors.New("total must be positive")

	// ErrInvalidPageSize is returned when the page size is below 1.
	ErrInvalidPageSize = errors.New("page size must be positive")
)

// PageRequest carries the paging parameters of one search call.
type PageRequest struct {
	// Size is the overall number of records wanted, not the page size.
	Size     int
	PageSize int
	Page     int
}

// SearchFunc fetches one page.
type SearchFunc func(ctx context.Context, page PageRequest) (client.Response, error)

// Meta summarizes a paginated fetch.
type Meta struct {
	TotalRequested int `json:"total_requested"`
	TotalCollected int `json:"total_collected"`
	PagesFetched   int `json:"pages_fetched"`
}

// Result is the combined output of a paginated fetch.
type Result struct {
	Status string           `json:"status"`
	Data   []map[string]any `json:"data"`
	Meta   Meta             `json:"meta"`
}

// Fetcher collects up to a total number of rows from a paginated search.
type Fetcher struct {
	logger zerolog.Logger
}

// NewFetcher creates a fetcher. Pass zerolog.Nop() for a quiet fetch.
func NewFetcher(logger zerolog.Logger) *Fetcher {
	return &Fetcher{logger: logger}
}

// maxPreallocRows bounds the row capacity reserved up front; total is user input.
const maxPreallocRows = 1000

// Fetch requests pages 1, 2, ... until total rows are collected. A page
// size larger than total is clamped to total before the first call. The
// loop stops on an empty page, on a page shorter than requested, or after
// ceil(total/pageSize) pages; the rows are trimmed to total.
//
// On a failed call Fetch returns the rows collected so far together with
// the error. Retries belong to fn.
func (f *Fetcher) Fetch(ctx context.Context, fn SearchFunc, total, pageSize int) (*Result, error) {
	if total < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidTotal, total)
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidPageSize, pageSize)
	}
	if pageSize > total {
		pageSize = total
	}

	maxPages := total / pageSize
	if total%pageSize != 0 {
		maxPages++
	}
	rows := make([]map[string]any, 0, min(total, maxPreallocRows))
	pagesFetched := 0

	for page := 1; len(rows) < total; {
		remaining := total - len(rows)
		currentSize := min(pageSize, remaining)

		f.logger.Debug().Int("page", page).Int("max_pages", maxPages).Msg("Fetching page")

		resp, err := fn(ctx, PageRequest{Size: total, PageSize: pageSize, Page: page})
		if err != nil {
			if len(rows) > 0 {
				f.logger.Warn().
					Int("collected", len(rows)).
					Int("requested", total).
					Int("page", page).
					Msgf("Collected %d of %d requested records before API error", len(rows), total)
			}
			return newResult(rows, total, pagesFetched), fmt.Errorf("fetch page %d: %w", page, err)
		}

		data := resp.Records("data")
		if len(data) == 0 {
			f.logger.Debug().Int("page", page).Msg("No more data")
			break
		}

		rows = append(rows, data...)
		pagesFetched++
		pagesFetchedTotal.Inc()
		f.logger.Info().
			Int("page", page).
			Int("max_pages", maxPages).
			Int("collected", len(rows)).
			Msgf("Fetched page %d/%d (%d records)", page, maxPages, len(rows))

		if len(data) < currentSize {
			break
		}

		page++
		if page > maxPages {
			break
		}
	}

	result := newResult(rows, total, pagesFetched)
	f.logger.Info().Int("collected", result.Meta.TotalCollected).Msgf("Collected %d records", result.Meta.TotalCollected)
	return result, nil
}

func newResult(rows []map[string]any, total, pages int) *Result {
	if len(rows) > total {
		rows = rows[:total]
	}
	return &Result{
		Status: "success",
		Data:   rows,
		Meta: Meta{
			TotalRequested: total,
			TotalCollected: len(rows),
			PagesFetched:   pages,
		},
	}
}
