package telemetry

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sammcj/mcp-excel/internal/grid"
	"github.com/sammcj/mcp-excel/internal/workbook"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const defaultMetricExportInterval = 60 * time.Second

// instruments holds the metric instruments of the enabled groups. A nil
// instrument means its group is disabled.
type instruments struct {
	toolCalls    metric.Int64Counter
	toolDuration metric.Float64Histogram
	toolErrors   metric.Int64Counter

	activeSessions  metric.Int64UpDownCounter
	sessionDuration metric.Float64Histogram

	cells metric.Int64Counter
}

var (
	metricsMutex        sync.RWMutex
	globalMeterProvider *sdkmetric.MeterProvider
	metricsEnabled      bool
	current             instruments
)

// InitMetrics sets up OTLP metrics when OTEL_EXPORTER_OTLP_ENDPOINT is set.
// MCP_METRICS_GROUPS selects groups out of tool, session and workbook; tool
// and session are on by default.
func InitMetrics(logger *logrus.Logger, version string) (func() error, error) {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	groups := parseList(os.Getenv("MCP_METRICS_GROUPS"))
	if len(groups) == 0 {
		groups = map[string]bool{"tool": true, "session": true}
	}

	noopShutdown := func() error { return nil }
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" || strings.EqualFold(os.Getenv("OTEL_SDK_DISABLED"), "true") {
		logger.Debug("OTEL Metrics: Not configured, metrics disabled")
		metricsEnabled = false
		current = instruments{}
		return noopShutdown, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var exporter sdkmetric.Exporter
	var err error
	if getOTLPProtocol() == "grpc" {
		exporter, err = otlpmetricgrpc.New(ctx)
	} else {
		exporter, err = otlpmetrichttp.New(ctx)
	}
	if err != nil {
		logger.WithError(err).Warn("OTEL Metrics: Failed to create exporter, metrics disabled")
		metricsEnabled = false
		return noopShutdown, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(getMetricExportInterval(logger)),
		)),
		sdkmetric.WithResource(newResource(ctx, logger, version)),
	)
	otel.SetMeterProvider(provider)

	inst, err := newInstruments(provider.Meter(serviceName), groups)
	if err != nil {
		logger.WithError(err).Error("OTEL Metrics: Failed to create instruments")
		_ = provider.Shutdown(ctx)
		return noopShutdown, err
	}

	globalMeterProvider = provider
	current = inst
	metricsEnabled = true
	logger.WithField("groups", groups).Info("OTEL Metrics: Meter initialised successfully")

	return func() error {
		metricsMutex.Lock()
		defer metricsMutex.Unlock()

		if globalMeterProvider == nil {
			return nil
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		err := globalMeterProvider.Shutdown(shutdownCtx)
		globalMeterProvider = nil
		return err
	}, nil
}

func newInstruments(meter metric.Meter, groups map[string]bool) (instruments, error) {
	var inst instruments
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if groups["tool"] {
		var err error
		inst.toolCalls, err = meter.Int64Counter("mcp.tool.calls",
			metric.WithDescription("Total tool invocations"),
			metric.WithUnit("{call}"))
		collect(err)
		inst.toolDuration, err = meter.Float64Histogram("mcp.tool.duration",
			metric.WithDescription("Tool execution duration"),
			metric.WithUnit("ms"),
			metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000))
		collect(err)
		inst.toolErrors, err = meter.Int64Counter("mcp.tool.errors",
			metric.WithDescription("Tool execution errors by type"),
			metric.WithUnit("{error}"))
		collect(err)
	}

	if groups["session"] {
		var err error
		inst.activeSessions, err = meter.Int64UpDownCounter("mcp.session.active",
			metric.WithDescription("Active concurrent sessions"),
			metric.WithUnit("{session}"))
		collect(err)
		inst.sessionDuration, err = meter.Float64Histogram("mcp.session.duration",
			metric.WithDescription("Session duration"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(10, 30, 60, 300, 600, 1800, 3600, 7200))
		collect(err)
	}

	if groups["workbook"] {
		var err error
		inst.cells, err = meter.Int64Counter("workbook.cells",
			metric.WithDescription("Cells read or written"),
			metric.WithUnit("{cell}"))
		collect(err)
	}

	return inst, errors.Join(errs...)
}

func instrumentsIfEnabled() (instruments, bool) {
	metricsMutex.RLock()
	defer metricsMutex.RUnlock()
	return current, metricsEnabled
}

// RecordToolCall records a tool invocation and its duration
func RecordToolCall(ctx context.Context, toolName, transport string, success bool, durationMs float64) {
	inst, ok := instrumentsIfEnabled()
	if !ok || inst.toolCalls == nil {
		return
	}

	result := "success"
	if !success {
		result = "error"
	}
	inst.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("transport", transport),
		attribute.String("result", result),
	))
	inst.toolDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("transport", transport),
	))
}

// RecordToolError records a categorised tool error
func RecordToolError(ctx context.Context, toolName, errorType string) {
	inst, ok := instrumentsIfEnabled()
	if !ok || inst.toolErrors == nil {
		return
	}
	inst.toolErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool.name", toolName),
		attribute.String("error.type", errorType),
	))
}

// CategoriseToolError maps errors to metric-friendly categories
func CategoriseToolError(err error) string {
	if err == nil {
		return ""
	}

	var (
		addrErr    *grid.AddressError
		validErr   *workbook.ValidationError
		missingErr *workbook.SheetNotFoundError
	)
	switch {
	case errors.Is(err, workbook.ErrNoActiveWorkbook):
		return "no_workbook"
	case errors.As(err, &addrErr), errors.As(err, &validErr):
		return "validation"
	case errors.As(err, &missingErr):
		return "sheet"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, fs.ErrPermission):
		return "filesystem"
	}

	// errors that crossed a string boundary, e.g. tool results
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "no active workbook"):
		return "no_workbook"
	case strings.Contains(errStr, "invalid address"),
		strings.Contains(errStr, "parameter is required"):
		return "validation"
	case strings.Contains(errStr, "not found, did you mean"),
		strings.HasPrefix(errStr, "worksheet '") && strings.Contains(errStr, "not found"):
		return "sheet"
	case strings.Contains(errStr, "the limit is"):
		return "limit"
	case strings.Contains(errStr, "deadline exceeded"), strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "permission denied"), strings.Contains(errStr, "locked"):
		return "filesystem"
	default:
		return "internal"
	}
}

// RecordSessionStart increments the active session count
func RecordSessionStart(ctx context.Context, transport string) {
	inst, ok := instrumentsIfEnabled()
	if !ok || inst.activeSessions == nil {
		return
	}
	inst.activeSessions.Add(ctx, 1, metric.WithAttributes(attribute.String("transport", transport)))
}

// RecordSessionEnd decrements the active session count and records the session duration
func RecordSessionEnd(ctx context.Context, transport string, durationSeconds float64) {
	inst, ok := instrumentsIfEnabled()
	if !ok || inst.activeSessions == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("transport", transport))
	inst.activeSessions.Add(ctx, -1, attrs)
	inst.sessionDuration.Record(ctx, durationSeconds, attrs)
}

// RecordCells counts cells read or written by a workbook tool and notes the
// range on the current span
func RecordCells(ctx context.Context, operation, sheet, rng string, cells int) {
	AnnotateRange(ctx, operation, sheet, rng, cells)

	inst, ok := instrumentsIfEnabled()
	if !ok || inst.cells == nil {
		return
	}
	inst.cells.Add(ctx, int64(cells), metric.WithAttributes(attribute.String("operation", operation)))
}

func getMetricExportInterval(logger *logrus.Logger) time.Duration {
	intervalStr := os.Getenv("OTEL_METRIC_EXPORT_INTERVAL")
	if intervalStr == "" {
		return defaultMetricExportInterval
	}

	// Bare numbers are seconds
	duration, err := time.ParseDuration(intervalStr)
	if err != nil {
		duration, err = time.ParseDuration(intervalStr + "s")
	}
	if err != nil || duration <= 0 {
		logger.WithField("interval", intervalStr).Warn("OTEL Metrics: Invalid export interval, using default")
		return defaultMetricExportInterval
	}
	return duration
}
