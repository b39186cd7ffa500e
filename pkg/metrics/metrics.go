// Package metrics exports the Prometheus metrics of the CLI.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, batch, pagination) and registered with the default registry
// through promauto.
//
// A CLI run has no scrape endpoint, so WriteTextfile dumps the registry in
// the node-exporter textfile format at the end of a command.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the registerer all packages use.
var Registry = prometheus.DefaultRegisterer

// Gatherer is read by WriteTextfile.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes every gathered metric to path. The file is replaced
// atomically. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - explorium_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - explorium_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - explorium_errors_total{class} (Counter): Errors by class
//
// Retry Metrics (pkg/client):
//   - explorium_retries_total{layer, error_class} (Counter): Retry attempts
//   - explorium_retry_backoff_seconds{layer} (Histogram): Backoff before each retry
//   - explorium_retry_exhausted_total{layer} (Counter): Calls that ran out of retries
//
// Cache Metrics (pkg/cache):
//   - explorium_cache_hits_total (Counter): Responses served from Redis
//   - explorium_cache_misses_total (Counter): Cache misses
//   - explorium_cache_writes_total (Counter): Responses stored
//   - explorium_cache_errors_total{operation} (Counter): Cache operation errors
//   - explorium_cache_shared_fetches_total (Counter): Misses answered by a concurrent identical fetch
//
// Pacing Metrics (pkg/ratelimit):
//   - explorium_throttle_wait_seconds (Histogram): Time spent waiting for the local limiter
//
// Batch Metrics (pkg/batch):
//   - explorium_batches_total{operation, outcome} (Counter): Batches by outcome
//   - explorium_batch_records_total{operation} (Counter): Records collected by batches
//
// Pagination Metrics (pkg/pagination):
//   - explorium_pages_fetched_total (Counter): Search pages fetched
//   - explorium_fanout_tasks_total{outcome} (Counter): Fan-out entity searches by outcome
//   - explorium_fanout_duplicates_total (Counter): Records dropped as duplicates
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(explorium_cache_hits_total) /
//   (sum(explorium_cache_hits_total) + sum(explorium_cache_misses_total))
//
//   # Retry pressure per layer
//   sum by (layer) (explorium_retries_total)
//
//   # P95 Request Latency
//   histogram_quantile(0.95, sum by (le) (explorium_request_duration_seconds_bucket))
