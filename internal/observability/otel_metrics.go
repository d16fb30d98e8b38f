// OpenTelemetry Metrics for routing outcomes, following the gen_ai
// semantic conventions where they apply.
//
// Reference: https://opentelemetry.io/docs/specs/semconv/gen-ai/
package observability

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/switchboard-ai/switchboard/pkg/types"
)

// OTelMetricsConfig contains configuration for OpenTelemetry Metrics.
type OTelMetricsConfig struct {
	Enabled        bool
	Endpoint       string
	ExporterType   ExporterType
	ServiceName    string
	Insecure       bool
	Headers        map[string]string
	ExportInterval time.Duration
}

// DefaultOTelMetricsConfig returns defaults driven by environment, matching
// the OTLP exporter conventions.
func DefaultOTelMetricsConfig() OTelMetricsConfig {
	return OTelMetricsConfig{
		Enabled:        os.Getenv("SWITCHBOARD_OTEL_METRICS_ENABLED") == "true",
		Endpoint:       os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"),
		ExporterType:   ExporterGRPC,
		ServiceName:    "switchboard",
		Insecure:       true,
		Headers:        make(map[string]string),
		ExportInterval: 60 * time.Second,
	}
}

// OTelMetricsProvider wraps the OpenTelemetry meter provider and the
// instruments the router records into.
type OTelMetricsProvider struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter

	operationDuration metric.Float64Histogram
	tokenUsage        metric.Int64Counter
	tokenCost         metric.Float64Counter
	attemptCount      metric.Int64Counter
	fallbackCount     metric.Int64Counter
	errorCount        metric.Int64Counter
}

// InitOTelMetrics initializes OpenTelemetry Metrics. A nil provider is
// returned when disabled; every Record method tolerates a nil receiver.
func InitOTelMetrics(ctx context.Context, cfg OTelMetricsConfig) (*OTelMetricsProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch cfg.ExporterType {
	case ExporterHTTP:
		exporter, err = newHTTPMetricExporter(ctx, cfg)
	default:
		exporter, err = newGRPCMetricExporter(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("gen_ai.system", "switchboard"),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.ExportInterval)),
		),
	)

	otel.SetMeterProvider(provider)

	omp := &OTelMetricsProvider{
		provider: provider,
		meter:    provider.Meter(TracerName),
	}
	if err := omp.initInstruments(); err != nil {
		return nil, err
	}
	return omp, nil
}

func (o *OTelMetricsProvider) initInstruments() error {
	var err error

	o.operationDuration, err = o.meter.Float64Histogram(
		"gen_ai.client.operation.duration",
		metric.WithDescription("Duration of routed GenAI operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.tokenUsage, err = o.meter.Int64Counter(
		"gen_ai.client.token.usage",
		metric.WithDescription("Number of tokens used"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return err
	}

	o.tokenCost, err = o.meter.Float64Counter(
		"gen_ai.client.token.cost",
		metric.WithDescription("Cost of tokens used"),
		metric.WithUnit("{currency}"),
	)
	if err != nil {
		return err
	}

	o.attemptCount, err = o.meter.Int64Counter(
		"switchboard.chain.attempts",
		metric.WithDescription("Number of provider attempts per chain walk"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	o.fallbackCount, err = o.meter.Int64Counter(
		"switchboard.chain.fallbacks",
		metric.WithDescription("Number of routing operations that used fallback"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	o.errorCount, err = o.meter.Int64Counter(
		"switchboard.route.errors",
		metric.WithDescription("Number of routing operations ending in error"),
		metric.WithUnit("{error}"),
	)
	return err
}

// RecordResult records the terminal routing outcome plus usage of the
// winning provider.
func (o *OTelMetricsProvider) RecordResult(ctx context.Context, intent string, res *types.RoutingResult, costUSD float64) {
	if o == nil || res == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("switchboard.intent", intent),
		attribute.String("switchboard.disposition", string(res.Disposition)),
	}
	if res.Response != nil {
		attrs = append(attrs,
			attribute.String("gen_ai.system", res.Response.Provider),
			attribute.String("gen_ai.request.model", res.Response.Model),
		)
	}

	o.operationDuration.Record(ctx, res.Elapsed.Seconds(), metric.WithAttributes(attrs...))
	o.attemptCount.Add(ctx, int64(len(res.Attempts)), metric.WithAttributes(attrs...))

	if res.FallbackUsed {
		fbAttrs := append([]attribute.KeyValue{
			attribute.String("switchboard.fallback_reason", string(res.FallbackReason)),
		}, attrs...)
		o.fallbackCount.Add(ctx, 1, metric.WithAttributes(fbAttrs...))
	}

	if res.Response != nil && res.Response.Usage != nil {
		usage := res.Response.Usage
		inAttrs := append([]attribute.KeyValue{attribute.String("gen_ai.token.type", "input")}, attrs...)
		o.tokenUsage.Add(ctx, int64(usage.PromptTokens), metric.WithAttributes(inAttrs...))
		outAttrs := append([]attribute.KeyValue{attribute.String("gen_ai.token.type", "output")}, attrs...)
		o.tokenUsage.Add(ctx, int64(usage.CompletionTokens), metric.WithAttributes(outAttrs...))
		if costUSD > 0 {
			o.tokenCost.Add(ctx, costUSD, metric.WithAttributes(attrs...))
		}
	}

	if res.Error != nil {
		errAttrs := append([]attribute.KeyValue{
			attribute.String("error.type", string(res.Error.Kind)),
		}, attrs...)
		o.errorCount.Add(ctx, 1, metric.WithAttributes(errAttrs...))
	}
}

// Shutdown gracefully shuts down the metrics provider.
func (o *OTelMetricsProvider) Shutdown(ctx context.Context) error {
	if o == nil || o.provider == nil {
		return nil
	}
	return o.provider.Shutdown(ctx)
}

func newGRPCMetricExporter(ctx context.Context, cfg OTelMetricsConfig) (sdkmetric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func newHTTPMetricExporter(ctx context.Context, cfg OTelMetricsConfig) (sdkmetric.Exporter, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	return otlpmetrichttp.New(ctx, opts...)
}
