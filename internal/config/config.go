// Package config provides configuration management with hot-reload support.
// It uses fsnotify to watch for file changes and atomic pointer swaps for
// zero-downtime updates.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/switchboard-ai/switchboard/internal/observability"
	"github.com/switchboard-ai/switchboard/internal/pricing"
	"github.com/switchboard-ai/switchboard/pkg/policy"
	"github.com/switchboard-ai/switchboard/pkg/provider"
)

// Config represents the complete router configuration.
type Config struct {
	Server     ServerConfig                `yaml:"server"`
	Providers  []provider.Config           `yaml:"providers"`
	Routing    RoutingConfig               `yaml:"routing"`
	Policy     policy.Document             `yaml:"policy"`
	Pricing    []pricing.Rate              `yaml:"pricing"`
	Cache      CacheConfig                 `yaml:"cache"`
	AttemptLog AttemptLogConfig            `yaml:"attempt_log"`
	Database   DatabaseConfig              `yaml:"database"`
	Secrets    SecretsConfig               `yaml:"secrets"`
	Logging    observability.LoggerConfig  `yaml:"logging"`
	Metrics    MetricsConfig               `yaml:"metrics"`
	Tracing    observability.TracingConfig `yaml:"tracing"`
	Alerts     observability.SlackConfig   `yaml:"alerts"`
	Export     observability.S3Config      `yaml:"export"`
	Admin      AdminConfig                 `yaml:"admin"`

	checksum string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// RoutingConfig contains chain-walk settings shared by all intents.
type RoutingConfig struct {
	// FallbackEnabled toggles multi-provider chains globally. When false,
	// every resolved chain is truncated to its first entry before
	// sanitization.
	FallbackEnabled bool `yaml:"fallback_enabled"`
	// RouteTimeout bounds one full chain walk when the caller supplies no
	// deadline of its own.
	RouteTimeout   time.Duration `yaml:"route_timeout"`
	MaxEscalations int           `yaml:"max_escalations"`
}

// CacheConfig controls the optional response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend"` // memory, redis
	TTL     time.Duration `yaml:"ttl"`
	Memory  MemoryCacheConfig `yaml:"memory"`
	Redis   RedisCacheConfig  `yaml:"redis"`
}

// MemoryCacheConfig contains settings for the in-process cache backend.
type MemoryCacheConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// RedisCacheConfig contains settings for the Redis cache backend.
type RedisCacheConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AttemptLogConfig controls persistence of per-request attempt records.
type AttemptLogConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Backend  string `yaml:"backend"` // memory, postgres
	Capacity int    `yaml:"capacity"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN builds a lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Database, d.SSLMode)
	if d.Password != "" {
		dsn += " password=" + d.Password
	}
	return dsn
}

// SecretsConfig controls resolution of secret:// indirections in provider
// credentials.
type SecretsConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Vault    VaultConfig   `yaml:"vault"`
}

// VaultConfig contains HashiCorp Vault client settings. An empty Token
// falls through to the VAULT_TOKEN environment variable.
type VaultConfig struct {
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AdminConfig contains settings for the admin endpoints. An empty JWTSecret
// disables them.
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Routing: RoutingConfig{
			FallbackEnabled: true,
			RouteTimeout:    30 * time.Second,
			MaxEscalations:  3,
		},
		Cache: CacheConfig{
			Enabled: false,
			Backend: "memory",
			TTL:     5 * time.Minute,
			Memory: MemoryCacheConfig{
				CleanupInterval: 10 * time.Minute,
			},
		},
		AttemptLog: AttemptLogConfig{
			Enabled:  true,
			Backend:  "memory",
			Capacity: 1024,
		},
		Database: DatabaseConfig{
			Enabled:         false,
			Port:            5432,
			Database:        "switchboard",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Secrets: SecretsConfig{
			CacheTTL: 5 * time.Minute,
		},
		Logging: observability.LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: observability.DefaultTracingConfig(),
		Alerts:  observability.DefaultSlackConfig(),
		Export:  observability.DefaultS3Config(),
	}
}

// LoadFromFile reads and parses a YAML configuration file.
// Environment variables in the format ${VAR_NAME} are expanded.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Load(data)
}

// Load parses raw YAML configuration bytes into defaults and validates the
// result. The policy version, unless set explicitly in the file, is derived
// from the checksum of the raw bytes so that every revision of the file is
// distinguishable in status output and logs.
func Load(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	sum := sha256.Sum256(data)
	cfg.checksum = hex.EncodeToString(sum[:])[:12]
	if cfg.Policy.Version == "" {
		cfg.Policy.Version = cfg.checksum
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Checksum returns the first 12 hex characters of the SHA-256 of the raw
// bytes this configuration was loaded from. Hand-built configurations
// return "".
func (c *Config) Checksum() string {
	return c.checksum
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	seen := make(map[string]struct{}, len(c.Providers))
	for i, p := range c.Providers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("provider[%d]: %w", i, err)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("provider[%d]: duplicate provider name %q", i, p.Name)
		}
		seen[p.Name] = struct{}{}

		if len(p.Models) == 0 {
			return fmt.Errorf("provider[%d] %q: at least one model must be configured", i, p.Name)
		}
		if p.TimeoutSec < 0 {
			return fmt.Errorf("provider[%d] %q: timeout cannot be negative", i, p.Name)
		}
	}

	if c.Routing.RouteTimeout < 0 {
		return fmt.Errorf("routing.route_timeout cannot be negative")
	}
	if c.Routing.MaxEscalations < 0 {
		return fmt.Errorf("routing.max_escalations cannot be negative")
	}

	if err := c.Policy.Validate(); err != nil {
		return err
	}

	for i, r := range c.Pricing {
		if r.Model == "" {
			return fmt.Errorf("pricing[%d]: model is required", i)
		}
		if r.InputCostPer1K < 0 || r.OutputCostPer1K < 0 {
			return fmt.Errorf("pricing[%d] %q: cost rates must not be negative", i, r.Model)
		}
	}

	switch c.Cache.Backend {
	case "", "memory":
	case "redis":
		if c.Cache.Enabled && c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}

	switch c.AttemptLog.Backend {
	case "", "memory":
	case "postgres":
		if c.AttemptLog.Enabled && !c.Database.Enabled {
			return fmt.Errorf("attempt_log.backend postgres requires database.enabled")
		}
	default:
		return fmt.Errorf("attempt_log.backend must be memory or postgres, got %q", c.AttemptLog.Backend)
	}
	if c.AttemptLog.Capacity < 0 {
		return fmt.Errorf("attempt_log.capacity cannot be negative")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required when database.enabled")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database.port: %d", c.Database.Port)
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required when database.enabled")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required when database.enabled")
		}
	}

	if c.Secrets.CacheTTL < 0 {
		return fmt.Errorf("secrets.cache_ttl cannot be negative")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be in [0, 1], got %v", c.Tracing.SampleRate)
	}

	if c.Export.Enabled && c.Export.Bucket == "" {
		return fmt.Errorf("export.bucket is required when export.enabled")
	}

	return nil
}
