package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"vstupcli/internal/config"
)

const (
	ServiceName    = config.AppName
	ServiceVersion = config.AppVersion
	MeterName      = "vstupcli/dataprocessing"
)

// Trace exporters accepted in TelemetryConfig.TraceExporter
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// OTelProviders holds the tracing and metrics providers for one process.
// Metrics live in a private Prometheus registry so repeated initialisation
// in tests never collides with the global one.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *promclient.Registry
	Metrics        *PipelineMetrics
	Logger         *slog.Logger

	metricsTextfile string
}

// InitializeOTel builds the providers described by cfg. Spans from the
// stdout exporter are written to traceOut (stderr when nil).
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger, traceOut io.Writer) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}
	if traceOut == nil {
		traceOut = os.Stderr
	}
	ctx := context.Background()

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger:          logger,
		metricsTextfile: cfg.MetricsTextfile,
	}

	if err := initializeTracing(cfg, res, traceOut, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := initializeMetrics(res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.DebugContext(ctx, "Telemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metrics_textfile", cfg.MetricsTextfile))

	return providers, nil
}

// initializeTracing sets up the tracer; "none" yields a no-op tracer
func initializeTracing(cfg config.TelemetryConfig, res *resource.Resource, out io.Writer, providers *OTelProviders) error {
	switch cfg.TraceExporter {
	case TraceExporterStdout:
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(out),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
	case TraceExporterNone, "":
		providers.Tracer = noop.NewTracerProvider().Tracer(MeterName)
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	return nil
}

// initializeMetrics wires a meter provider to a private Prometheus registry
func initializeMetrics(res *resource.Resource, providers *OTelProviders) error {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithoutScopeInfo(),
		prometheus.WithoutTargetInfo(),
	)
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.Registry = registry
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))

	metrics, err := CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return err
	}
	providers.Metrics = metrics
	return nil
}

// PipelineMetrics holds the counters recorded by one processing run
type PipelineMetrics struct {
	RunsTotal          metric.Int64Counter
	RowsRead           metric.Int64Counter
	RowsDropped        metric.Int64Counter
	GroupsTotal        metric.Int64Counter
	SubjectsRegistered metric.Int64Counter
	RunDuration        metric.Float64Histogram
}

// CreatePipelineMetrics registers the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	runsTotal, err := meter.Int64Counter(
		"vstup_runs",
		metric.WithDescription("Processing runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	rowsRead, err := meter.Int64Counter(
		"vstup_rows_read",
		metric.WithDescription("Data rows read from the workbook"),
	)
	if err != nil {
		return nil, err
	}

	rowsDropped, err := meter.Int64Counter(
		"vstup_rows_dropped",
		metric.WithDescription("Rows removed by sanitisation, by reason"),
	)
	if err != nil {
		return nil, err
	}

	groupsTotal, err := meter.Int64Counter(
		"vstup_groups",
		metric.WithDescription("Aggregated groups emitted, by document"),
	)
	if err != nil {
		return nil, err
	}

	subjectsRegistered, err := meter.Int64Counter(
		"vstup_subjects_registered",
		metric.WithDescription("Subject score columns registered"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"vstup_run_duration",
		metric.WithDescription("Processing run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RunsTotal:          runsTotal,
		RowsRead:           rowsRead,
		RowsDropped:        rowsDropped,
		GroupsTotal:        groupsTotal,
		SubjectsRegistered: subjectsRegistered,
		RunDuration:        runDuration,
	}, nil
}

// RecordRows records the number of data rows read
func (m *PipelineMetrics) RecordRows(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.RowsRead.Add(ctx, int64(n))
}

// RecordDropped records rows removed for reason
func (m *PipelineMetrics) RecordDropped(ctx context.Context, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsDropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordGroups records emitted groups for the given document kind
func (m *PipelineMetrics) RecordGroups(ctx context.Context, kind string, n int) {
	if m == nil {
		return
	}
	m.GroupsTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordSubjects records the number of registered subject columns
func (m *PipelineMetrics) RecordSubjects(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.SubjectsRegistered.Add(ctx, int64(n))
}

// RecordRun records a finished run
func (m *PipelineMetrics) RecordRun(ctx context.Context, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, duration.Seconds(), attrs)
}

// WriteMetrics writes the registry in Prometheus text format to path
func (p *OTelProviders) WriteMetrics(path string) error {
	if p.Registry == nil {
		return fmt.Errorf("metrics are not initialized")
	}
	if err := promclient.WriteToTextfile(path, p.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}

// Shutdown flushes spans, writes the metrics textfile if one is configured,
// and releases the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.metricsTextfile != "" {
		if err := p.WriteMetrics(p.metricsTextfile); err != nil {
			errs = append(errs, err)
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %v", errs)
	}

	p.Logger.DebugContext(ctx, "Telemetry shutdown complete")
	return nil
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}
