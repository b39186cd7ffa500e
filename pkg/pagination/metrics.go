package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorium_pages_fetched_total",
		Help: "Total non-empty search pages fetched",
	})

	fanoutTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorium_fanout_tasks_total",
		Help: "Total fan-out entity searches by outcome",
	}, []string{"outcome"})

	fanoutDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorium_fanout_duplicates_total",
		Help: "Total rows dropped as cross-entity duplicates",
	})
)
