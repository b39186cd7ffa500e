package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorium_batches_total",
		Help: "Total batch calls by operation and outcome",
	}, []string{"operation", "outcome"})

	batchRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorium_batch_records_total",
		Help: "Total records produced by batch calls by operation",
	}, []string{"operation"})
)
