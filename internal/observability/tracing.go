// Package observability provides OpenTelemetry tracing utilities for the
// routing engine.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for all router spans.
const TracerName = "switchboard"

// ExporterType selects the OTLP transport.
type ExporterType string

const (
	ExporterGRPC ExporterType = "grpc"
	ExporterHTTP ExporterType = "http"
)

// TracingConfig contains configuration for OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	Protocol    string  `yaml:"protocol" json:"protocol"` // grpc or http
	ServiceName string  `yaml:"service_name" json:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate"`
	Insecure    bool    `yaml:"insecure" json:"insecure"`
}

// DefaultTracingConfig returns sensible defaults.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:     false,
		Endpoint:    "localhost:4317",
		Protocol:    string(ExporterGRPC),
		ServiceName: "switchboard",
		SampleRate:  1.0,
		Insecure:    true,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing. When disabled it returns a
// provider backed by the global no-op tracer, so callers never need a nil
// check around span creation.
func InitTracing(ctx context.Context, cfg TracingConfig) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	exporter, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
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

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

func newTraceExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	if ExporterType(cfg.Protocol) == ExporterHTTP {
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

// Tracer returns the tracer instance.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Shutdown gracefully shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// StartRouteSpan starts the span covering one full routing operation.
func StartRouteSpan(ctx context.Context, tracer trace.Tracer, intent string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "switchboard.route",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("switchboard.intent", intent),
		),
	)
}

// StartAttemptSpan starts a span for one provider invocation within a chain
// walk.
func StartAttemptSpan(ctx context.Context, tracer trace.Tracer, providerName, model string, position int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "switchboard.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.system", providerName),
			attribute.String("gen_ai.request.model", model),
			attribute.Int("switchboard.chain.position", position),
		),
	)
}

// RecordRouteOutcome records the terminal disposition on a route span.
func RecordRouteOutcome(span trace.Span, disposition string, attempts int, fallbackUsed bool) {
	span.SetAttributes(
		attribute.String("switchboard.disposition", disposition),
		attribute.Int("switchboard.attempts", attempts),
		attribute.Bool("switchboard.fallback_used", fallbackUsed),
	)
}

// RecordUsageOnSpan records token usage attributes on an attempt span.
func RecordUsageOnSpan(span trace.Span, inputTokens, outputTokens int, finishReason string) {
	span.SetAttributes(
		attribute.Int("gen_ai.usage.input_tokens", inputTokens),
		attribute.Int("gen_ai.usage.output_tokens", outputTokens),
		attribute.String("gen_ai.response.finish_reason", finishReason),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("error", true))
}

// SpanFromContext extracts the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
