// OpenTelemetry Logs integration. A slog.Handler bridge forwards the
// router's structured logs to an OTLP collector with trace correlation.
//
// Reference: https://opentelemetry.io/docs/specs/otel/logs/
package observability

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelLogsConfig contains configuration for OpenTelemetry Logs.
type OTelLogsConfig struct {
	Enabled      bool
	Endpoint     string
	ExporterType ExporterType
	ServiceName  string
	Insecure     bool
	Headers      map[string]string
}

// DefaultOTelLogsConfig returns defaults driven by environment.
func DefaultOTelLogsConfig() OTelLogsConfig {
	return OTelLogsConfig{
		Enabled:      os.Getenv("SWITCHBOARD_OTEL_LOGS_ENABLED") == "true",
		Endpoint:     os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"),
		ExporterType: ExporterGRPC,
		ServiceName:  "switchboard",
		Insecure:     true,
		Headers:      make(map[string]string),
	}
}

// OTelLogsProvider wraps the OpenTelemetry logger provider.
type OTelLogsProvider struct {
	provider *sdklog.LoggerProvider
	logger   otellog.Logger
}

// InitOTelLogs initializes OpenTelemetry Logs. A nil provider is returned
// when disabled.
func InitOTelLogs(ctx context.Context, cfg OTelLogsConfig) (*OTelLogsProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var exporter sdklog.Exporter
	var err error
	switch cfg.ExporterType {
	case ExporterHTTP:
		exporter, err = newHTTPLogExporter(ctx, cfg)
	default:
		exporter, err = newGRPCLogExporter(ctx, cfg)
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

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	global.SetLoggerProvider(provider)

	return &OTelLogsProvider{
		provider: provider,
		logger:   provider.Logger(TracerName),
	}, nil
}

// Logger returns the logger instance.
func (o *OTelLogsProvider) Logger() otellog.Logger {
	return o.logger
}

// Shutdown gracefully shuts down the logger provider.
func (o *OTelLogsProvider) Shutdown(ctx context.Context) error {
	if o == nil || o.provider == nil {
		return nil
	}
	return o.provider.Shutdown(ctx)
}

// SlogHandler returns a slog.Handler that forwards each record to the OTLP
// pipeline. Wrap it together with a local handler in a fan-out handler when
// logs should hit both stderr and the collector.
func (o *OTelLogsProvider) SlogHandler() slog.Handler {
	return &bridgeHandler{provider: o}
}

func newGRPCLogExporter(ctx context.Context, cfg OTelLogsConfig) (sdklog.Exporter, error) {
	opts := []otlploggrpc.Option{
		otlploggrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(cfg.Headers))
	}
	return otlploggrpc.New(ctx, opts...)
}

func newHTTPLogExporter(ctx context.Context, cfg OTelLogsConfig) (sdklog.Exporter, error) {
	opts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(cfg.Headers))
	}
	return otlploghttp.New(ctx, opts...)
}

// bridgeHandler adapts slog records onto the OTel log API.
type bridgeHandler struct {
	provider *OTelLogsProvider
	attrs    []slog.Attr
	group    string
}

func (h *bridgeHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return h.provider != nil && h.provider.logger != nil
}

func (h *bridgeHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := otellog.Record{}
	out.SetTimestamp(rec.Time)
	out.SetSeverity(mapSeverity(rec.Level))
	out.SetBody(otellog.StringValue(rec.Message))

	for _, a := range h.attrs {
		out.AddAttributes(convertAttr(h.group, a))
	}
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttributes(convertAttr(h.group, a))
		return true
	})

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		out.AddAttributes(
			otellog.String("trace_id", span.SpanContext().TraceID().String()),
			otellog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}

	h.provider.logger.Emit(ctx, out)
	return nil
}

func (h *bridgeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *bridgeHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group != "" {
		next.group += "." + name
	} else {
		next.group = name
	}
	return &next
}

func mapSeverity(level slog.Level) otellog.Severity {
	switch {
	case level >= slog.LevelError:
		return otellog.SeverityError
	case level >= slog.LevelWarn:
		return otellog.SeverityWarn
	case level >= slog.LevelInfo:
		return otellog.SeverityInfo
	default:
		return otellog.SeverityDebug
	}
}

func convertAttr(group string, a slog.Attr) otellog.KeyValue {
	key := a.Key
	if group != "" {
		key = group + "." + key
	}

	switch a.Value.Kind() {
	case slog.KindBool:
		return otellog.Bool(key, a.Value.Bool())
	case slog.KindInt64:
		return otellog.Int64(key, a.Value.Int64())
	case slog.KindFloat64:
		return otellog.Float64(key, a.Value.Float64())
	case slog.KindDuration:
		return otellog.Int64(key, a.Value.Duration().Milliseconds())
	default:
		return otellog.String(key, a.Value.String())
	}
}
