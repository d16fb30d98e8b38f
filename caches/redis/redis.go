// Package redis provides a Redis-backed cache for shared deployments.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/switchboard-ai/switchboard/pkg/cache"
)

// Config holds configuration for the Redis cache.
type Config struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Namespace    string        `yaml:"namespace"`
	DefaultTTL   time.Duration `yaml:"default_ttl"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Namespace:    "switchboard",
		DefaultTTL:   time.Hour,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	}
}

// Cache implements cache.Cache over go-redis.
type Cache struct {
	client     *goredis.Client
	namespace  string
	defaultTTL time.Duration

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	errs    atomic.Int64
}

// New creates a Redis cache and verifies connectivity.
func New(cfg Config) (*Cache, error) {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Cache{
		client:     client,
		namespace:  cfg.Namespace,
		defaultTTL: cfg.DefaultTTL,
	}, nil
}

func (c *Cache) prefixKey(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + ":" + key
}

// Get retrieves a value. Absent keys return (nil, nil).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefixKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			c.misses.Add(1)
			return nil, nil
		}
		c.errs.Add(1)
		return nil, fmt.Errorf("redis get: %w", err)
	}
	c.hits.Add(1)
	return val, nil
}

// Set stores a value with TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.prefixKey(key), value, ttl).Err(); err != nil {
		c.errs.Add(1)
		return fmt.Errorf("redis set: %w", err)
	}
	c.sets.Add(1)
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefixKey(key)).Err(); err != nil {
		c.errs.Add(1)
		return fmt.Errorf("redis del: %w", err)
	}
	c.deletes.Add(1)
	return nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Stats returns hit/miss counters.
func (c *Cache) Stats() cache.Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return cache.Stats{
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
		Errors:  c.errs.Load(),
		HitRate: cache.RateOf(hits, misses),
	}
}
