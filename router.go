package switchboard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/switchboard-ai/switchboard/internal/attemptlog"
	"github.com/switchboard-ai/switchboard/internal/chain"
	"github.com/switchboard-ai/switchboard/internal/executor"
	"github.com/switchboard-ai/switchboard/internal/metrics"
	"github.com/switchboard-ai/switchboard/internal/observability"
	"github.com/switchboard-ai/switchboard/internal/pricing"
	"github.com/switchboard-ai/switchboard/internal/registry"
	"github.com/switchboard-ai/switchboard/internal/resilience"
	rescache "github.com/switchboard-ai/switchboard/pkg/cache"
	sberrors "github.com/switchboard-ai/switchboard/pkg/errors"
	"github.com/switchboard-ai/switchboard/pkg/policy"
	"github.com/switchboard-ai/switchboard/pkg/provider"
	"github.com/switchboard-ai/switchboard/pkg/types"
	"github.com/switchboard-ai/switchboard/providers"
)

// Router is the routing engine: it owns the provider registry, the policy
// engine, and the chain executor. A Router is safe for concurrent use;
// policy swaps are atomic and in-flight requests finish on the engine they
// started with.
type Router struct {
	registry *registry.Registry
	chains   *chain.Resolver
	exec     *executor.Executor
	engine   atomic.Pointer[policy.Engine]
	throttle atomic.Pointer[resilience.Throttle]
	calc     *pricing.Calculator

	fallbackEnabled bool
	routeTimeout    time.Duration
	maxEscalations  int

	logger      *observability.Logger
	tracer      trace.Tracer
	otelMetrics *observability.OTelMetricsProvider
	alerter     *observability.Alerter
	exporter    *observability.S3Exporter

	cache    rescache.Cache
	keys     *rescache.KeyGenerator
	cacheTTL time.Duration
	store    attemptlog.Store
}

// New builds a Router. At least one provider and a policy document are
// required; everything else is optional wiring.
func New(opts ...Option) (*Router, error) {
	cfg := routerConfig{
		fallbackEnabled: true,
		logger:          observability.Default(),
		tracer:          noop.NewTracerProvider().Tracer(observability.TracerName),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.policyDoc == nil {
		return nil, fmt.Errorf("switchboard: a policy document is required")
	}
	if len(cfg.providerConfigs) == 0 && len(cfg.descriptors) == 0 {
		return nil, fmt.Errorf("switchboard: at least one provider is required")
	}

	r := &Router{
		calc:            pricing.NewCalculator(cfg.pricingRates),
		fallbackEnabled: cfg.fallbackEnabled,
		routeTimeout:    cfg.routeTimeout,
		maxEscalations:  cfg.maxEscalations,
		logger:          cfg.logger,
		tracer:          cfg.tracer,
		otelMetrics:     cfg.otelMetrics,
		alerter:         cfg.alerter,
		exporter:        cfg.exporter,
		cache:           cfg.cache,
		cacheTTL:        cfg.cacheTTL,
		store:           cfg.store,
	}
	if r.cache != nil {
		r.keys = rescache.NewKeyGenerator("switchboard")
	}

	engine, err := policy.NewEngine(cfg.policyDoc, policy.WithCalculator(r.calc))
	if err != nil {
		return nil, err
	}
	r.engine.Store(engine)
	r.throttle.Store(resilience.NewThrottle(cfg.policyDoc.Profiles))

	reg := registry.New()
	for _, pc := range cfg.providerConfigs {
		desc, err := providers.Build(pc)
		if err != nil {
			return nil, err
		}
		cfg.descriptors = append(cfg.descriptors, desc)
	}
	for _, desc := range cfg.descriptors {
		desc.Adapter = r.throttled(desc.Name, desc.Adapter)
		if err := reg.Register(desc); err != nil {
			return nil, err
		}
	}
	reg.Freeze()

	r.registry = reg
	r.chains = chain.NewResolver(reg)
	r.exec = executor.New(executor.WithLogger(r.logger))
	return r, nil
}

// throttled wraps an adapter with the per-provider client-side limiter.
// The limiter set swaps with the policy, so the current one is loaded per
// invocation.
func (r *Router) throttled(name string, inner provider.Adapter) provider.Adapter {
	return provider.AdapterFunc(func(ctx context.Context, req *types.Request) (*types.Response, error) {
		t := r.throttle.Load()
		if err := t.Acquire(ctx, name); err != nil {
			if ctx.Err() != nil {
				return nil, sberrors.NewTimeoutError(name, req.Model, err.Error())
			}
			return nil, sberrors.NewRateLimitedError(name, req.Model, err.Error())
		}
		defer t.Release(name)
		return inner.Invoke(ctx, req)
	})
}

// Route resolves, executes, validates, and (when policy demands) escalates
// one request. Configuration errors (an unknown intent or a chain with no
// registered provider) return a plain error with no result; request-time
// failures return a result carrying the terminal classified error and the
// full attempt trail.
func (r *Router) Route(ctx context.Context, req *types.Request) (*types.RoutingResult, error) {
	if req == nil {
		return nil, fmt.Errorf("switchboard: request is required")
	}
	if req.Intent == "" {
		return nil, fmt.Errorf("switchboard: request intent is required")
	}

	ctx, requestID := observability.EnsureRequestID(ctx)
	start := time.Now()
	log := r.logger.WithRequestID(ctx)

	ctx, span := observability.StartRouteSpan(ctx, r.tracer, req.Intent)
	defer span.End()

	var cacheKey string
	if r.cache != nil {
		cacheKey = r.keys.Key(req)
		if cached := r.cacheLookup(ctx, cacheKey); cached != nil {
			cached.RequestID = requestID
			cached.Elapsed = time.Since(start)
			log.Debug("served from cache", "intent", req.Intent)
			observability.RecordRouteOutcome(span, string(cached.Disposition), 0, false)
			return cached, nil
		}
	}

	engine := r.engine.Load()
	resolution, err := engine.ResolveChain(req.Intent)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	chainNames := resolution.Chain
	if !r.fallbackEnabled && len(chainNames) > 1 {
		chainNames = chainNames[:1]
	}

	sanitized, err := r.chains.Sanitize(chainNames)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	for _, note := range sanitized.Notes {
		log.Warn("chain entry dropped",
			"intent", req.Intent,
			"provider", note.Provider,
			"reason", string(note.Reason),
		)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && r.routeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.routeTimeout)
		defer cancel()
	}

	res := &types.RoutingResult{
		RequestID: requestID,
		Notes:     sanitized.Notes,
	}

	exec := r.exec.Execute(ctx, sanitized, req, 0)
	res.Attempts = exec.Attempts

	if exec.Response == nil {
		res.Error = exec.Err
		res.Disposition = types.DispositionExhaustedFatal
	} else {
		r.validateAndEscalate(ctx, engine, resolution, req, exec, res, log)
	}

	res.FallbackUsed = len(res.Attempts) > 1
	if res.FallbackUsed {
		res.FallbackReason = res.Attempts[0].FailureKind
	}
	res.Elapsed = time.Since(start)

	r.finish(ctx, req.Intent, res, cacheKey, span, log)
	return res, nil
}

// validateAndEscalate runs the post-hoc budget check and the bounded
// escalation loop. A failed escalation execution keeps the best response
// seen so far; escalation never turns a success into a failure.
func (r *Router) validateAndEscalate(
	ctx context.Context,
	engine *policy.Engine,
	resolution *policy.Resolution,
	req *types.Request,
	exec *executor.Result,
	res *types.RoutingResult,
	log *observability.Logger,
) {
	resp := exec.Response
	latency := lastAttemptDuration(exec.Attempts)
	violations := engine.Validate(resolution, resp.Provider, resp, latency)
	escalations := 0

	for len(violations) > 0 {
		if r.maxEscalations > 0 && escalations >= r.maxEscalations {
			log.Warn("escalation cap reached", "intent", req.Intent, "escalations", escalations)
			break
		}
		esc, ok := engine.Escalate(violations, escalations)
		if !ok {
			break
		}
		escalations++
		metrics.RecordEscalation(req.Intent, esc.Final)
		if err := r.alerter.EscalationAlert(ctx, req.Intent, esc.Chain, esc.Final); err != nil {
			log.Warn("escalation alert failed", "error", err.Error())
		}
		log.Info("escalating after policy violation",
			"intent", req.Intent,
			"chain", esc.Chain,
			"final", esc.Final,
		)

		escalated, err := r.chains.Sanitize(esc.Chain)
		if err != nil {
			log.Warn("escalation chain unusable", "intent", req.Intent, "error", err.Error())
			break
		}
		res.Notes = append(res.Notes, escalated.Notes...)

		escExec := r.exec.Execute(ctx, escalated, req, 0)
		res.Attempts = append(res.Attempts, escExec.Attempts...)
		if escExec.Response == nil {
			log.Warn("escalation execution failed, keeping prior response",
				"intent", req.Intent,
				"kind", string(escExec.Err.Kind),
			)
			break
		}

		resp = escExec.Response
		latency = lastAttemptDuration(escExec.Attempts)
		violations = engine.Validate(resolution, resp.Provider, resp, latency)
	}

	res.Response = resp
	res.Violations = violations
	res.Escalations = escalations
	if len(violations) == 0 {
		res.Disposition = types.DispositionSucceededCompliant
	} else {
		res.Disposition = types.DispositionSucceededNonCompliant
	}
}

// finish fans the terminal result out to every attached sink.
func (r *Router) finish(
	ctx context.Context,
	intent string,
	res *types.RoutingResult,
	cacheKey string,
	span trace.Span,
	log *observability.Logger,
) {
	metrics.RecordResult(intent, res)
	observability.RecordRouteOutcome(span, string(res.Disposition), len(res.Attempts), res.FallbackUsed)

	var costUSD float64
	if res.Response != nil && res.Response.Usage != nil {
		usage := res.Response.Usage
		costUSD = r.costOf(res.Response.Provider, res.Response.Model, usage)
		metrics.RecordUsage(res.Response.Provider, res.Response.Model, usage, costUSD)
		observability.RecordUsageOnSpan(span, usage.PromptTokens, usage.CompletionTokens, res.Response.FinishReason)
	}
	r.otelMetrics.RecordResult(ctx, intent, res, costUSD)

	switch res.Disposition {
	case types.DispositionSucceededCompliant:
		if cacheKey != "" {
			r.cacheStore(ctx, cacheKey, res, log)
		}
	case types.DispositionSucceededNonCompliant:
		if err := r.alerter.ViolationAlert(ctx, intent, res.Violations); err != nil {
			log.Warn("violation alert failed", "error", err.Error())
		}
	case types.DispositionExhaustedFatal:
		observability.RecordError(span, res.Error)
		if err := r.alerter.ExhaustedAlert(ctx, intent, res); err != nil {
			log.Warn("exhausted alert failed", "error", err.Error())
		}
	}

	if r.store != nil {
		if err := r.store.Append(ctx, attemptlog.NewEntry(intent, res)); err != nil {
			log.Warn("attempt log append failed", "error", err.Error())
		}
	}
	r.exporter.Enqueue(observability.EntryFromResult(intent, res))
}

// costOf prefers policy profile rates and falls back to the pricing table,
// mirroring the validation cost model so metrics and budgets agree.
func (r *Router) costOf(providerName, model string, usage *types.Usage) float64 {
	doc := r.engine.Load().Document()
	if profile, ok := doc.Profiles[providerName]; ok && (profile.CostPer1KInput > 0 || profile.CostPer1KOutput > 0) {
		return float64(usage.PromptTokens)/1000.0*profile.CostPer1KInput +
			float64(usage.CompletionTokens)/1000.0*profile.CostPer1KOutput
	}
	return r.calc.CostOf(model, usage)
}

func (r *Router) cacheLookup(ctx context.Context, key string) *types.RoutingResult {
	raw, err := r.cache.Get(ctx, key)
	if err != nil || raw == nil {
		return nil
	}
	var cached types.RoutingResult
	if err := json.Unmarshal(raw, &cached); err != nil || cached.Response == nil {
		return nil
	}
	return &cached
}

func (r *Router) cacheStore(ctx context.Context, key string, res *types.RoutingResult, log *observability.Logger) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, raw, r.cacheTTL); err != nil {
		log.Warn("cache store failed", "error", err.Error())
	}
}

// SwapPolicy atomically replaces the policy document. In-flight requests
// finish on the engine they started with; the next request sees the new
// one. The provider registry is frozen and never changes on swap.
func (r *Router) SwapPolicy(doc *policy.Document) error {
	engine, err := policy.NewEngine(doc, policy.WithCalculator(r.calc))
	if err != nil {
		return err
	}
	r.engine.Store(engine)
	r.throttle.Store(resilience.NewThrottle(doc.Profiles))
	r.logger.Info("policy swapped", "version", engine.Version())
	return nil
}

// IntentStatus describes one intent's resolved routing in a status report.
type IntentStatus struct {
	Chain []string          `json:"chain"`
	Notes []types.ChainNote `json:"notes,omitempty"`
}

// Status is the read-only diagnostics view of the router.
type Status struct {
	PolicyVersion   string                  `json:"policy_version"`
	FallbackEnabled bool                    `json:"fallback_enabled"`
	Providers       []string                `json:"providers"`
	Intents         map[string]IntentStatus `json:"intents"`
	CacheStats      *rescache.Stats         `json:"cache_stats,omitempty"`
}

// Status reports the routing surface as currently resolved. It performs no
// provider calls and mutates nothing.
func (r *Router) Status() *Status {
	engine := r.engine.Load()
	doc := engine.Document()

	st := &Status{
		PolicyVersion:   engine.Version(),
		FallbackEnabled: r.fallbackEnabled,
		Providers:       r.registry.Names(),
		Intents:         make(map[string]IntentStatus, len(doc.Intents)),
	}

	for intent, route := range doc.Intents {
		names := route.Chain()
		if !r.fallbackEnabled && len(names) > 1 {
			names = names[:1]
		}
		is := IntentStatus{}
		sanitized, err := r.chains.Sanitize(names)
		if err != nil {
			// Every entry unregistered; report the configured names as
			// dropped.
			for _, name := range names {
				is.Notes = append(is.Notes, types.ChainNote{
					Provider: name,
					Reason:   sberrors.KindProviderNotFound,
				})
			}
		} else {
			is.Chain = sanitized.Names()
			is.Notes = sanitized.Notes
		}
		st.Intents[intent] = is
	}

	if r.cache != nil {
		stats := r.cache.Stats()
		st.CacheStats = &stats
	}
	return st
}

// AttemptStore exposes the attached attempt log for diagnostics surfaces.
// Nil when none is configured.
func (r *Router) AttemptStore() attemptlog.Store {
	return r.store
}

// Close releases attached resources: the attempt store and the cache.
func (r *Router) Close() error {
	var firstErr error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			firstErr = err
		}
	}
	if r.cache != nil {
		if err := r.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func lastAttemptDuration(attempts []types.AttemptRecord) time.Duration {
	if len(attempts) == 0 {
		return 0
	}
	return attempts[len(attempts)-1].Duration
}
