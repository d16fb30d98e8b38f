// Package caches builds cache backends from configuration.
package caches

import (
	"fmt"
	"time"

	"github.com/switchboard-ai/switchboard/caches/memory"
	"github.com/switchboard-ai/switchboard/caches/redis"
	"github.com/switchboard-ai/switchboard/pkg/cache"
)

// Backend names accepted in configuration.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options selects and parameterizes a backend.
type Options struct {
	Backend         string
	TTL             time.Duration
	CleanupInterval time.Duration // memory backend
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
}

// New builds the configured cache backend.
func New(opts Options) (cache.Cache, error) {
	switch opts.Backend {
	case "", BackendMemory:
		cfg := memory.DefaultConfig()
		if opts.TTL > 0 {
			cfg.DefaultTTL = opts.TTL
		}
		if opts.CleanupInterval > 0 {
			cfg.CleanupInterval = opts.CleanupInterval
		}
		return memory.New(cfg), nil

	case BackendRedis:
		cfg := redis.DefaultConfig()
		if opts.RedisAddr != "" {
			cfg.Addr = opts.RedisAddr
		}
		cfg.Password = opts.RedisPassword
		cfg.DB = opts.RedisDB
		if opts.TTL > 0 {
			cfg.DefaultTTL = opts.TTL
		}
		return redis.New(cfg)

	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
