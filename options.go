package switchboard

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/switchboard-ai/switchboard/internal/attemptlog"
	"github.com/switchboard-ai/switchboard/internal/observability"
	"github.com/switchboard-ai/switchboard/internal/pricing"
	"github.com/switchboard-ai/switchboard/pkg/cache"
	"github.com/switchboard-ai/switchboard/pkg/policy"
	"github.com/switchboard-ai/switchboard/pkg/provider"
)

// routerConfig collects everything New needs before wiring components.
type routerConfig struct {
	providerConfigs []provider.Config
	descriptors     []*provider.Descriptor
	policyDoc       *policy.Document
	pricingRates    []pricing.Rate

	fallbackEnabled bool
	routeTimeout    time.Duration
	maxEscalations  int

	logger      *observability.Logger
	tracer      trace.Tracer
	otelMetrics *observability.OTelMetricsProvider
	alerter     *observability.Alerter
	exporter    *observability.S3Exporter

	cache    cache.Cache
	cacheTTL time.Duration
	store    attemptlog.Store
}

// Option configures a Router.
type Option func(*routerConfig)

// WithProviders declares providers built through the adapter registry.
func WithProviders(configs ...provider.Config) Option {
	return func(c *routerConfig) {
		c.providerConfigs = append(c.providerConfigs, configs...)
	}
}

// WithDescriptor registers a pre-built provider descriptor. Intended for
// custom adapters and tests.
func WithDescriptor(desc *provider.Descriptor) Option {
	return func(c *routerConfig) {
		if desc != nil {
			c.descriptors = append(c.descriptors, desc)
		}
	}
}

// WithPolicy sets the routing policy document. Required.
func WithPolicy(doc *policy.Document) Option {
	return func(c *routerConfig) {
		c.policyDoc = doc
	}
}

// WithPricing seeds the pricing table used for cost validation and spend
// accounting.
func WithPricing(rates []pricing.Rate) Option {
	return func(c *routerConfig) {
		c.pricingRates = rates
	}
}

// WithFallbackEnabled toggles multi-provider chains globally. When
// disabled, every resolved chain is truncated to its first entry before
// sanitization.
func WithFallbackEnabled(enabled bool) Option {
	return func(c *routerConfig) {
		c.fallbackEnabled = enabled
	}
}

// WithRouteTimeout bounds one full routing operation, escalations
// included, when the caller supplies no deadline of its own.
func WithRouteTimeout(d time.Duration) Option {
	return func(c *routerConfig) {
		c.routeTimeout = d
	}
}

// WithMaxEscalations caps policy escalations per request regardless of
// rule budgets. Zero means rule budgets alone apply.
func WithMaxEscalations(n int) Option {
	return func(c *routerConfig) {
		c.maxEscalations = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *observability.Logger) Option {
	return func(c *routerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry tracer for route and attempt spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *routerConfig) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithOTelMetrics attaches an OTLP metrics provider.
func WithOTelMetrics(p *observability.OTelMetricsProvider) Option {
	return func(c *routerConfig) {
		c.otelMetrics = p
	}
}

// WithAlerter attaches a Slack alerter for violations, escalations, and
// exhausted chains.
func WithAlerter(a *observability.Alerter) Option {
	return func(c *routerConfig) {
		c.alerter = a
	}
}

// WithExporter attaches a batched attempt-record exporter.
func WithExporter(e *observability.S3Exporter) Option {
	return func(c *routerConfig) {
		c.exporter = e
	}
}

// WithCache enables the response cache. Only compliant successes are
// stored.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cfg *routerConfig) {
		cfg.cache = c
		cfg.cacheTTL = ttl
	}
}

// WithAttemptStore attaches the attempt log store. One entry is appended
// per finished request.
func WithAttemptStore(s attemptlog.Store) Option {
	return func(c *routerConfig) {
		c.store = s
	}
}
