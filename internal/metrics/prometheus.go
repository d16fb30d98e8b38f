// Package metrics provides Prometheus metrics collection for the routing
// engine. It tracks chain walks, provider attempts, policy outcomes, token
// usage, and spend.
package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "switchboard"
)

// LatencyBuckets defines histogram buckets for latency metrics (in seconds).
var LatencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	1.0, 1.5, 2.0, 2.5, 3.0, 4.0, 5.0,
	7.5, 10.0, 15.0, 20.0, 30.0, 60.0, 120.0,
}

// =============================================================================
// Routing Metrics
// =============================================================================

var (
	// RoutingRequests counts completed routing operations.
	RoutingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_requests_total",
			Help:      "Total number of routing operations by terminal disposition",
		},
		[]string{"intent", "disposition"},
	)

	// RoutingLatency tracks end-to-end routing latency.
	RoutingLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "routing_latency_seconds",
			Help:      "End-to-end routing latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"intent"},
	)

	// Fallbacks counts chain walks that needed more than one attempt.
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total number of requests served by a fallback provider",
		},
		[]string{"intent", "reason"},
	)

	// ChainEntriesDropped counts configured providers removed during
	// sanitization.
	ChainEntriesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_entries_dropped_total",
			Help:      "Configured chain entries dropped because no provider is registered",
		},
		[]string{"provider"},
	)
)

// =============================================================================
// Provider Attempt Metrics
// =============================================================================

var (
	// ProviderAttempts counts individual provider invocations.
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Total provider invocation attempts",
		},
		[]string{"provider", "outcome", "failure_kind"},
	)

	// AttemptLatency tracks per-provider invocation latency.
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_latency_seconds",
			Help:      "Provider invocation latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"provider"},
	)

	// ContractDefects counts adapter responses that broke the structured
	// outcome contract.
	ContractDefects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contract_defects_total",
			Help:      "Provider responses coerced to contract violations",
		},
		[]string{"provider"},
	)
)

// =============================================================================
// Policy Metrics
// =============================================================================

var (
	// PolicyViolations counts budget violations found during validation.
	PolicyViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_violations_total",
			Help:      "Policy violations by kind",
		},
		[]string{"intent", "kind"},
	)

	// Escalations counts escalation passes executed after violations.
	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Escalation passes by stage",
		},
		[]string{"intent", "final"},
	)

	// PolicyReloads counts hot reload attempts.
	PolicyReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_reloads_total",
			Help:      "Policy reload attempts by result",
		},
		[]string{"status"},
	)
)

// =============================================================================
// Token and Cost Metrics
// =============================================================================

var (
	// InputTokens counts input tokens.
	InputTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "input_tokens_total",
			Help:      "Total input tokens",
		},
		[]string{"provider", "model"},
	)

	// OutputTokens counts output tokens.
	OutputTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_tokens_total",
			Help:      "Total output tokens",
		},
		[]string{"provider", "model"},
	)

	// SpendUSD tracks estimated spend.
	SpendUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spend_usd_total",
			Help:      "Estimated spend in USD",
		},
		[]string{"provider", "model"},
	)
)

// =============================================================================
// Storage Metrics
// =============================================================================

var (
	// DBConnectionPoolSize tracks attempt log database pool usage.
	DBConnectionPoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connection_pool_size",
			Help:      "Database connection pool size by state",
		},
		[]string{"state"},
	)
)

// UpdateDBPoolStats updates database connection pool metrics from sql.DBStats.
func UpdateDBPoolStats(stats sql.DBStats) {
	DBConnectionPoolSize.WithLabelValues("active").Set(float64(stats.InUse))
	DBConnectionPoolSize.WithLabelValues("idle").Set(float64(stats.Idle))
	DBConnectionPoolSize.WithLabelValues("max").Set(float64(stats.MaxOpenConnections))
}
