package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks responses served from Redis
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorium_cache_hits_total",
			Help: "Total number of API response cache hits",
		},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorium_cache_misses_total",
			Help: "Total number of API response cache misses",
		},
	)

	// CacheWrites tracks stored responses
	CacheWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorium_cache_writes_total",
			Help: "Total number of API responses written to cache",
		},
	)

	// SharedFetches tracks misses that were served by another caller's in-flight fetch
	SharedFetches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "explorium_cache_shared_fetches_total",
			Help: "Total number of cache misses collapsed into a concurrent fetch",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorium_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
