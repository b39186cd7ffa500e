package batch

import (
	"context"

	"github.com/Sternrassler/explorium-cli/pkg/client"
)

// MatchFunc submits one chunk of match requests.
type MatchFunc func(ctx context.Context, items []Item) (client.Response, error)

// MatchOptions controls result extraction and accounting.
type MatchOptions struct {
	// ResultKey is the response field holding matched rows, e.g.
	// "matched_businesses". "data" is tried when it is missing or empty.
	ResultKey string

	// IDKey is the entity ID field of a matched row. When set, rows with
	// an empty ID count as not found.
	IDKey string

	// EntityName labels progress logs ("businesses", "prospects").
	EntityName string

	// PreserveInput copies each input field into the positionally
	// corresponding output row as input_<field>.
	PreserveInput bool
}

// MatchMeta aggregates a match run. For a completed run with IDKey set,
// Matched + NotFound == TotalInput.
type MatchMeta struct {
	TotalInput int `json:"total_input"`
	Matched    int `json:"matched"`
	NotFound   int `json:"not_found"`
	Errors     int `json:"errors"`
}

// MatchResult holds the accumulated rows of a match run.
type MatchResult struct {
	ResultKey string
	Records   []map[string]any
	Meta      MatchMeta

	// Response is the raw response when the run needed a single call.
	Response client.Response
}

// Body renders the result the way the API shapes a single match response:
// the rows under ResultKey plus "_match_meta". Extra top-level fields of a
// single-call response are kept.
func (r MatchResult) Body() map[string]any {
	body := make(map[string]any, len(r.Response)+2)
	for k, v := range r.Response {
		body[k] = v
	}
	key := r.ResultKey
	if key == "" {
		key = "data"
	}
	body[key] = r.Records
	body["_match_meta"] = r.Meta
	return body
}

// Match submits items in chunks and accumulates the matched rows in input
// order. An empty input succeeds without calling fn. The first chunk that
// fails after batch-level retries aborts the run.
func (e *Executor) Match(ctx context.Context, fn MatchFunc, items []Item, opts MatchOptions) Outcome[MatchResult] {
	entity := opts.EntityName
	if entity == "" {
		entity = "records"
	}

	result := MatchResult{
		ResultKey: opts.ResultKey,
		Records:   []map[string]any{},
	}
	if len(items) == 0 {
		result.Meta = matchMeta(result.Records, 0, 0, opts.IDKey, 0)
		return Outcome[MatchResult]{Data: result}
	}

	batches, err := Split(items, e.batchSize)
	if err != nil {
		return Outcome[MatchResult]{Data: result, Err: err}
	}

	attempted := 0
	for i, chunk := range batches {
		if len(batches) == 1 {
			e.logger.Info().Int("count", len(chunk)).Msgf("Matching %d %s", len(chunk), entity)
		} else {
			e.logger.Info().
				Int("batch", i+1).
				Int("batches", len(batches)).
				Int("count", len(chunk)).
				Msgf("Batch %d/%d: matching %d %s", i+1, len(batches), len(chunk), entity)
		}

		resp, err := client.Retry(ctx, e.retrier, func(ctx context.Context) (client.Response, error) {
			return fn(ctx, chunk)
		})
		if err != nil {
			batchesTotal.WithLabelValues("match", "failed").Inc()
			errorCount := len(chunk)
			e.logger.Error().
				Err(err).
				Int("batch", i+1).
				Int("matched_so_far", len(result.Records)).
				Msgf("Match failed, %d %s matched before error", len(result.Records), entity)

			result.Meta = matchMeta(result.Records, len(items), attempted, opts.IDKey, errorCount)
			return Outcome[MatchResult]{
				Data: result,
				Err: &AbortError{
					Operation: "match",
					Batch:     i + 1,
					Batches:   len(batches),
					Completed: len(result.Records),
					Failed:    errorCount,
					Err:       err,
				},
			}
		}

		rows := resp.Records(opts.ResultKey)
		if opts.PreserveInput {
			annotateInput(rows, chunk)
		}

		batchesTotal.WithLabelValues("match", "success").Inc()
		batchRecordsTotal.WithLabelValues("match").Add(float64(len(rows)))
		e.logger.Info().Int("batch", i+1).Int("matched", len(rows)).Msg("Batch matched")

		attempted += len(chunk)
		result.Records = append(result.Records, rows...)
		if len(batches) == 1 {
			result.Response = resp
		}
	}

	result.Meta = matchMeta(result.Records, len(items), attempted, opts.IDKey, 0)
	if len(batches) > 1 {
		e.logger.Info().
			Int("matched", len(result.Records)).
			Int("total", len(items)).
			Msgf("Matched %d/%d %s total", len(result.Records), len(items), entity)
	}
	return Outcome[MatchResult]{Data: result}
}

// annotateInput copies input fields into output rows by position within
// one chunk. Rows past the end of the chunk are left untouched.
func annotateInput(rows []map[string]any, chunk []Item) {
	for i := 0; i < min(len(rows), len(chunk)); i++ {
		for k, v := range chunk[i] {
			rows[i]["input_"+k] = v
		}
	}
}

// matchMeta computes run statistics. attempted counts the inputs of the
// chunks that returned a response.
func matchMeta(rows []map[string]any, total, attempted int, idKey string, errorCount int) MatchMeta {
	meta := MatchMeta{TotalInput: total, Errors: errorCount}
	if idKey == "" {
		meta.Matched = len(rows)
		return meta
	}

	for _, row := range rows {
		if hasValue(row[idKey]) {
			meta.Matched++
		}
	}
	meta.NotFound = max(attempted-meta.Matched, 0)
	return meta
}
