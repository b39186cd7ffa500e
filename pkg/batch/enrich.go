package batch

import (
	"context"

	"github.com/Sternrassler/explorium-cli/pkg/client"
)

// EnrichFunc submits one chunk of entity IDs. Endpoint parameters beyond
// the IDs are captured by the closure.
type EnrichFunc func(ctx context.Context, ids []string) (client.Response, error)

// EnrichOptions controls record correlation and logging.
type EnrichOptions struct {
	// IDKey is back-filled into records that lack it when the response
	// list is as long as the chunk.
	IDKey string

	// EntityName labels progress logs.
	EntityName string
}

// EnrichResult is the combined enrichment output.
type EnrichResult struct {
	Status string           `json:"status"`
	Data   []map[string]any `json:"data"`
}

// Enrich submits ids in chunks and concatenates the enriched records in
// input order. The first chunk that fails after batch-level retries aborts
// the run; chunks after it are never sent.
func (e *Executor) Enrich(ctx context.Context, fn EnrichFunc, ids []string, opts EnrichOptions) Outcome[EnrichResult] {
	entity := opts.EntityName
	if entity == "" {
		entity = "records"
	}

	result := EnrichResult{Status: "success", Data: []map[string]any{}}
	if len(ids) == 0 {
		return Outcome[EnrichResult]{Data: result}
	}

	batches, err := Split(ids, e.batchSize)
	if err != nil {
		return Outcome[EnrichResult]{Data: result, Err: err}
	}

	for i, chunk := range batches {
		if len(batches) == 1 {
			e.logger.Info().Int("count", len(chunk)).Msgf("Enriching %d %s", len(chunk), entity)
		} else {
			e.logger.Info().
				Int("batch", i+1).
				Int("batches", len(batches)).
				Int("count", len(chunk)).
				Msgf("Batch %d/%d: enriching %d %s", i+1, len(batches), len(chunk), entity)
		}

		resp, err := client.Retry(ctx, e.retrier, func(ctx context.Context) (client.Response, error) {
			return fn(ctx, chunk)
		})
		if err != nil {
			batchesTotal.WithLabelValues("enrich", "failed").Inc()
			e.logger.Error().
				Err(err).
				Int("batch", i+1).
				Int("enriched_so_far", len(result.Data)).
				Msgf("Enrichment failed, %d %s enriched before error", len(result.Data), entity)

			result.Status = "failed"
			return Outcome[EnrichResult]{
				Data: result,
				Err: &AbortError{
					Operation: "enrich",
					Batch:     i + 1,
					Batches:   len(batches),
					Completed: len(result.Data),
					Failed:    len(chunk),
					Err:       err,
				},
			}
		}

		records := unwrapEnrichment(resp, chunk, opts.IDKey)
		batchesTotal.WithLabelValues("enrich", "success").Inc()
		batchRecordsTotal.WithLabelValues("enrich").Add(float64(len(records)))
		e.logger.Debug().Int("batch", i+1).Int("records", len(records)).Msg("Batch enriched")

		result.Data = append(result.Data, records...)
	}

	e.logger.Info().Int("records", len(result.Data)).Msgf("Enriched %d %s total", len(ids), entity)
	return Outcome[EnrichResult]{Data: result}
}

// unwrapEnrichment turns one bulk response into records. A "data" list
// yields one record per element; any other "data" value yields a single
// record; without "data" the whole response is the record.
func unwrapEnrichment(resp client.Response, chunk []string, idKey string) []map[string]any {
	data, ok := resp["data"]
	if !ok {
		return []map[string]any{map[string]any(resp)}
	}

	var list []any
	switch t := data.(type) {
	case []any:
		list = t
	case []map[string]any:
		list = make([]any, len(t))
		for i, record := range t {
			list[i] = record
		}
	case map[string]any:
		return []map[string]any{t}
	default:
		return []map[string]any{{"data": data}}
	}

	backfill := idKey != "" && len(list) == len(chunk)
	records := make([]map[string]any, 0, len(list))
	for i, element := range list {
		record, ok := element.(map[string]any)
		if !ok {
			record = map[string]any{"data": element}
		}
		if backfill && !hasValue(record[idKey]) {
			record[idKey] = chunk[i]
		}
		records = append(records, record)
	}
	return records
}
