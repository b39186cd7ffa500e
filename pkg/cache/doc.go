// Package cache provides API response caching with a Redis backend.
//
// Only read-only requests (match, search, enrich, autocomplete, event
// listings) are routed through the cache; mutations never are. Entries
// live for a fixed TTL taken from configuration.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, time.Hour)
//
//	key := cache.CacheKey{
//		Method: "POST",
//		Path:   "/businesses/firmographics/bulk_enrich",
//		Body:   body,
//	}
//
//	entry, hit, err := manager.GetOrFetch(ctx, key, func(ctx context.Context) ([]byte, int, error) {
//		return fetchFromAPI(ctx)
//	})
//
// GetOrFetch collapses concurrent misses on the same key with
// singleflight, so a fan-out search that asks for the same page from
// several workers reaches the API once.
//
// # Metrics
//
//   - explorium_cache_hits_total - Cache hits
//   - explorium_cache_misses_total - Cache misses
//   - explorium_cache_writes_total - Stored responses
//   - explorium_cache_shared_fetches_total - Misses served by a concurrent fetch
//   - explorium_cache_errors_total{operation} - Cache operation errors
package cache
