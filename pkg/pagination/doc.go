// Package pagination drives paginated search endpoints.
//
// Fetcher walks pages of one search sequentially until the requested total
// is collected, the API returns a short or empty page, or the page cap is
// reached. The API's "size" parameter always carries the overall total;
// "page_size" is the per-request cap.
//
// FanOut runs one search per parent entity (e.g. one prospect search per
// business ID) on a bounded worker pool and merges the rows:
//
//	fan := pagination.NewFanOut(pagination.DefaultFanOutConfig(), logger)
//	res := fan.Search(ctx, searchFn, businessIDs, pagination.Filters{
//		"job_level": map[string]any{"type": "includes", "values": []string{"cxo"}},
//	})
//	res.Meta.SortPerCompany()
//
// A failing entity never aborts the fan-out; it is reported in
// FanOutMeta.PerCompany and counted in FanOutMeta.Errors.
//
// Rows are deduplicated across entities by a correlation key in
// completion order. Which entity a duplicate is attributed to depends on
// which search finishes first and is therefore not deterministic; the
// merged row order is not deterministic either.
package pagination
