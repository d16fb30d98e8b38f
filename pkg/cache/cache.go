// Package cache defines the response cache contract for the router. A cache
// stores serialized responses keyed by a digest of the request, so repeated
// identical requests can skip the chain walk entirely.
package cache

import (
	"context"
	"time"
)

// Cache is the interface every cache backend implements.
type Cache interface {
	// Get retrieves a value. A (nil, nil) return means the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A TTL of 0 uses the backend
	// default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Ping checks backend health.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error

	// Stats returns hit/miss counters for the diagnostics surface.
	Stats() Stats
}

// Stats holds cache statistics for monitoring.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Deletes int64   `json:"deletes"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// RateOf computes the hit rate from raw counters.
func RateOf(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
