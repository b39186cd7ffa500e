package pagination

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Filters is an opaque search filter object.
type Filters map[string]any

// Clone returns a shallow copy of f. Nested values are shared.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	return out
}

// EntitySearchFunc runs one search page with the given filters.
type EntitySearchFunc func(ctx context.Context, filters Filters, page PageRequest) (client.Response, error)

// FanOutConfig holds fan-out settings.
type FanOutConfig struct {
	// Concurrency bounds the searches in flight.
	Concurrency int

	PageSize int

	// Total is the row cap per entity. 0 fetches a single page of PageSize.
	Total int

	// EntityFilterKey is the filter injected per entity, e.g. "business_id".
	EntityFilterKey string

	// CorrelationKey identifies a row across entities, e.g. "prospect_id".
	CorrelationKey string
}

// DefaultFanOutConfig returns settings for prospect searches across businesses.
func DefaultFanOutConfig() FanOutConfig {
	return FanOutConfig{
		Concurrency:     5,
		PageSize:        100,
		EntityFilterKey: "business_id",
		CorrelationKey:  "prospect_id",
	}
}

// TaskResult is the outcome of one entity search.
type TaskResult struct {
	EntityID string
	Data     []map[string]any
	Err      error
}

// EntityStat reports one entity of a fan-out.
type EntityStat struct {
	EntityID string `json:"entity_id"`

	// Count is the number of rows kept after deduplication.
	Count int `json:"count"`

	// Found is the number of rows the search returned.
	Found int `json:"found"`

	Error string `json:"error,omitempty"`
}

// FanOutMeta aggregates a fan-out. Min, Max and Avg cover entities
// without error and are zero when there are none.
type FanOutMeta struct {
	CompaniesSearched int          `json:"companies_searched"`
	Concurrency       int          `json:"concurrency"`
	TotalResults      int          `json:"total_results"`
	Errors            int          `json:"errors"`
	Duplicates        int          `json:"duplicates"`
	PerCompany        []EntityStat `json:"per_company"`
	Min               int          `json:"min"`
	Max               int          `json:"max"`
	Avg               float64      `json:"avg"`
}

// SortPerCompany orders PerCompany by entity ID.
func (m *FanOutMeta) SortPerCompany() {
	sort.Slice(m.PerCompany, func(i, j int) bool {
		return m.PerCompany[i].EntityID < m.PerCompany[j].EntityID
	})
}

// FanOutResult is the merged output of a fan-out.
type FanOutResult struct {
	Status string           `json:"status"`
	Data   []map[string]any `json:"data"`
	Meta   FanOutMeta       `json:"_search_meta"`
}

// FanOut runs one search per entity concurrently.
type FanOut struct {
	config  FanOutConfig
	fetcher *Fetcher
	logger  zerolog.Logger
}

// NewFanOut creates a fan-out runner. Zero config fields take the values
// of DefaultFanOutConfig.
func NewFanOut(cfg FanOutConfig, logger zerolog.Logger) *FanOut {
	defaults := DefaultFanOutConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.Total < 0 {
		cfg.Total = 0
	}
	if cfg.EntityFilterKey == "" {
		cfg.EntityFilterKey = defaults.EntityFilterKey
	}
	if cfg.CorrelationKey == "" {
		cfg.CorrelationKey = defaults.CorrelationKey
	}

	return &FanOut{
		config:  cfg,
		fetcher: NewFetcher(zerolog.Nop()),
		logger:  logger,
	}
}

// Config returns the effective configuration.
func (f *FanOut) Config() FanOutConfig {
	return f.config
}

// UniqueIDs trims ids, drops empty ones and removes duplicates while
// keeping first-seen order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

// Search runs one search per unique entity ID with shared filters plus the
// entity filter. shared is never modified. Search returns once every task
// has finished; failed tasks are reported in the meta.
func (f *FanOut) Search(ctx context.Context, fn EntitySearchFunc, entityIDs []string, shared Filters) *FanOutResult {
	start := time.Now()
	ids := UniqueIDs(entityIDs)

	f.logger.Info().
		Int("companies", len(ids)).
		Int("concurrency", f.config.Concurrency).
		Msgf("Searching %d companies (concurrency: %d)", len(ids), f.config.Concurrency)

	results := make(chan TaskResult, len(ids))

	var g errgroup.Group
	g.SetLimit(f.config.Concurrency)
	go func() {
		for _, id := range ids {
			id := id
			g.Go(func() error {
				results <- f.searchOne(ctx, fn, id, shared)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	// Only this goroutine touches the accumulator, the dedup set and the stats.
	merged := make([]map[string]any, 0)
	seen := make(map[string]struct{})
	meta := FanOutMeta{
		CompaniesSearched: len(ids),
		Concurrency:       f.config.Concurrency,
		PerCompany:        make([]EntityStat, 0, len(ids)),
	}

	for res := range results {
		if res.Err != nil {
			meta.Errors++
			fanoutTasksTotal.WithLabelValues("failed").Inc()
			meta.PerCompany = append(meta.PerCompany, EntityStat{EntityID: res.EntityID, Error: res.Err.Error()})
			f.logger.Warn().Err(res.Err).Str("entity_id", res.EntityID).Msg("Entity search failed")
			continue
		}

		kept := 0
		for _, row := range res.Data {
			if key := correlationID(row[f.config.CorrelationKey]); key != "" {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			merged = append(merged, row)
			kept++
		}

		duplicates := len(res.Data) - kept
		meta.Duplicates += duplicates
		fanoutDuplicatesTotal.Add(float64(duplicates))
		fanoutTasksTotal.WithLabelValues("success").Inc()
		meta.PerCompany = append(meta.PerCompany, EntityStat{EntityID: res.EntityID, Count: kept, Found: len(res.Data)})

		event := f.logger.Info().Str("entity_id", res.EntityID).Int("found", len(res.Data))
		if duplicates > 0 {
			event = event.Int("duplicates", duplicates)
		}
		event.Msg("Entity search complete")
	}

	meta.TotalResults = len(merged)
	meta.Min, meta.Max, meta.Avg = countStats(meta.PerCompany)

	f.logger.Info().
		Int("results", meta.TotalResults).
		Int("companies", meta.CompaniesSearched).
		Int("errors", meta.Errors).
		Dur("duration", time.Since(start)).
		Msgf("Search complete: %d results from %d companies", meta.TotalResults, meta.CompaniesSearched)

	return &FanOutResult{Status: "success", Data: merged, Meta: meta}
}

// searchOne runs the search of one entity. It never panics and never
// returns an error; failures travel in the TaskResult.
func (f *FanOut) searchOne(ctx context.Context, fn EntitySearchFunc, id string, shared Filters) (res TaskResult) {
	res.EntityID = id
	defer func() {
		if r := recover(); r != nil {
			res.Data = nil
			res.Err = fmt.Errorf("search panicked: %v", r)
		}
	}()

	filters := shared.Clone()
	filters[f.config.EntityFilterKey] = map[string]any{
		"type":   "includes",
		"values": []string{id},
	}
	search := func(ctx context.Context, page PageRequest) (client.Response, error) {
		return fn(ctx, filters, page)
	}

	if f.config.Total > 0 {
		result, err := f.fetcher.Fetch(ctx, search, f.config.Total, f.config.PageSize)
		if err != nil {
			res.Err = err
			return res
		}
		res.Data = result.Data
		return res
	}

	resp, err := search(ctx, PageRequest{Size: f.config.PageSize, PageSize: f.config.PageSize, Page: 1})
	if err != nil {
		res.Err = err
		return res
	}
	res.Data = resp.Records("data")
	return res
}

// countStats returns min, max and mean (one decimal) of the counts of
// entities without error.
func countStats(stats []EntityStat) (int, int, float64) {
	lo, hi, sum, n := 0, 0, 0, 0
	for _, s := range stats {
		if s.Error != "" {
			continue
		}
		if n == 0 || s.Count < lo {
			lo = s.Count
		}
		if n == 0 || s.Count > hi {
			hi = s.Count
		}
		sum += s.Count
		n++
	}
	if n == 0 {
		return 0, 0, 0
	}
	return lo, hi, math.Round(float64(sum)/float64(n)*10) / 10
}

func correlationID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
