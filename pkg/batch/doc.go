// Package batch runs match and enrich workloads against bulk API endpoints
// in fixed-size chunks.
//
// Every chunk is submitted through a batch-level retrier (see
// client.BatchRetryConfig) that sits on top of the transport's own retry,
// so a chunk whose transport retries are exhausted is retried again as a
// whole. Chunks run strictly in order, one call at a time.
//
// An unrecoverable chunk aborts the run. The executor does not panic or
// exit; it returns an Outcome whose Err is an *AbortError and whose Data
// holds what was secured before the failing chunk:
//
//	exec, err := batch.NewExecutor(batch.DefaultConfig(), logger)
//	out := exec.Enrich(ctx, enrichFn, ids, batch.EnrichOptions{IDKey: "business_id"})
//	if out.Err != nil {
//		var abort *batch.AbortError
//		if errors.As(out.Err, &abort) {
//			log.Error().Int("secured", abort.Completed).Msg("Enrichment aborted")
//		}
//	}
//
// Whether partial data is used is the caller's decision.
package batch
