// Package memory provides an in-process cache backend.
package memory

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/switchboard-ai/switchboard/pkg/cache"
)

// Config holds configuration for the memory cache.
type Config struct {
	DefaultTTL      time.Duration `yaml:"default_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: 10 * time.Minute,
	}
}

// Cache implements cache.Cache over patrickmn/go-cache.
type Cache struct {
	store      *gocache.Cache
	defaultTTL time.Duration

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
}

// New creates a memory cache.
func New(cfg Config) *Cache {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	return &Cache{
		store:      gocache.New(cfg.DefaultTTL, cfg.CleanupInterval),
		defaultTTL: cfg.DefaultTTL,
	}
}

// Get retrieves a value. Absent keys return (nil, nil).
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.store.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, nil
	}
	c.hits.Add(1)
	data, _ := v.([]byte)
	return data, nil
}

// Set stores a value.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.store.Set(key, value, ttl)
	c.sets.Add(1)
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	c.deletes.Add(1)
	return nil
}

// Ping always succeeds for the in-process backend.
func (c *Cache) Ping(_ context.Context) error {
	return nil
}

// Close flushes the store.
func (c *Cache) Close() error {
	c.store.Flush()
	return nil
}

// Stats returns hit/miss counters.
func (c *Cache) Stats() cache.Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return cache.Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
		HitRate: cache.RateOf(hits, misses),
	}
}
