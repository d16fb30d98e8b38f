package secret

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedSource decorates a Source with in-memory TTL caching so that
// hot-reload cycles do not hammer the backing store.
type CachedSource struct {
	inner Source
	cache *cache.Cache
}

// NewCachedSource wraps inner with a TTL cache.
func NewCachedSource(inner Source, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner: inner,
		cache: cache.New(ttl, ttl*2),
	}
}

// Get returns the cached value for path, falling through to the inner
// source on a miss.
func (s *CachedSource) Get(ctx context.Context, path string) (string, error) {
	if val, found := s.cache.Get(path); found {
		if str, ok := val.(string); ok {
			return str, nil
		}
	}

	val, err := s.inner.Get(ctx, path)
	if err != nil {
		return "", err
	}
	s.cache.Set(path, val, cache.DefaultExpiration)
	return val, nil
}

// Close closes the inner source.
func (s *CachedSource) Close() error {
	return s.inner.Close()
}
