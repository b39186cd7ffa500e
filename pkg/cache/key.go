package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// keyPrefix namespaces all entries written by this client.
const keyPrefix = "explorium"

// CacheKey represents a unique identifier for a cached API response.
type CacheKey struct {
	// Method is the HTTP method (e.g., "POST")
	Method string

	// Path is the API path relative to the base URL (e.g., "/businesses/match")
	Path string

	// Query are the query parameters (e.g., {"query": "acme"})
	Query url.Values

	// Body is the encoded JSON request body, hashed into the key
	Body []byte
}

// String generates a deterministic cache key string.
// Format: explorium:METHOD:path:query1=val1:body=<sha256 prefix>
//
// Example:
//
//	explorium:POST:businesses/firmographics/enrich:body=4f2a9c1b0d3e5f67
func (k CacheKey) String() string {
	parts := []string{keyPrefix, strings.ToUpper(k.Method)}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Query params sorted for determinism; repeated values keep their order.
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Query[key], ",")))
		}
	}

	if len(k.Body) > 0 {
		sum := sha256.Sum256(k.Body)
		parts = append(parts, "body="+hex.EncodeToString(sum[:8]))
	}

	return strings.Join(parts, ":")
}
