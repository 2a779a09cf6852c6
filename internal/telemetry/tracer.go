package telemetry

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	defaultMaxAttributeSize = 4096
	minAttributeSize        = 1024
	maxAttributeSize        = 65536
)

var (
	// globalMutex guards the tracer state below
	globalMutex          sync.RWMutex
	globalTracer         trace.Tracer
	globalTracerProvider *sdktrace.TracerProvider
	disabledTools        map[string]bool
	tracingEnabled       bool

	// stdio serves a single session, tool spans become children of it
	globalSessionSpanContext trace.SpanContext
	globalSessionID          string
)

// otelErrorHandler routes SDK errors to the logger. Writing them to stderr
// would corrupt the stdio transport.
type otelErrorHandler struct {
	logger *logrus.Logger
}

func (h *otelErrorHandler) Handle(err error) {
	if err != nil {
		h.logger.WithError(err).Debug("OTEL: SDK error occurred")
	}
}

// InitTracer sets up OTLP tracing when OTEL_EXPORTER_OTLP_ENDPOINT is set.
// Otherwise, or when setup fails, a noop tracer is used. The returned
// function flushes and stops the exporter.
func InitTracer(logger *logrus.Logger, version string) (func() error, error) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	globalSessionSpanContext = trace.SpanContext{}
	globalSessionID = ""
	disabledTools = parseList(os.Getenv("MCP_TRACING_DISABLED_TOOLS"))

	noopShutdown := func() error { return nil }
	useNoop := func() {
		globalTracer = noop.NewTracerProvider().Tracer(serviceName)
		tracingEnabled = false
	}

	if strings.EqualFold(os.Getenv("OTEL_SDK_DISABLED"), "true") {
		logger.Debug("OTEL: Explicitly disabled via OTEL_SDK_DISABLED")
		useNoop()
		return noopShutdown, nil
	}

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		logger.Debug("OTEL: Not configured (OTEL_EXPORTER_OTLP_ENDPOINT not set), using noop tracer")
		useNoop()
		return noopShutdown, nil
	}

	logger.WithField("endpoint", endpoint).Info("OTEL: Initialising tracer")
	otel.SetErrorHandler(&otelErrorHandler{logger: logger})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var exporter *otlptrace.Exporter
	var err error
	if getOTLPProtocol() == "grpc" {
		exporter, err = otlptracegrpc.New(ctx)
	} else {
		exporter, err = otlptracehttp.New(ctx)
	}
	if err != nil {
		logger.WithError(err).Warn("OTEL: Failed to create exporter, falling back to noop tracer")
		useNoop()
		return noopShutdown, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(ctx, logger, version)),
		sdktrace.WithSampler(createSampler(logger)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	globalTracer = tp.Tracer(serviceName)
	globalTracerProvider = tp
	tracingEnabled = true
	logger.Info("OTEL: Tracer initialised successfully")

	return func() error {
		globalMutex.Lock()
		defer globalMutex.Unlock()

		if globalTracerProvider == nil {
			return nil
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := globalTracerProvider.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown tracer provider: %w", err)
		}
		globalTracerProvider = nil
		return nil
	}, nil
}

// newResource describes this service to the collector
func newResource(ctx context.Context, logger *logrus.Logger, version string) *resource.Resource {
	name := os.Getenv("OTEL_SERVICE_NAME")
	if name == "" {
		name = serviceName
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(name),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithFromEnv(),
	)
	if err != nil {
		logger.WithError(err).Warn("OTEL: Failed to create resource, using default")
		return resource.Default()
	}
	return res
}

// GetTracer returns the global tracer, or a noop tracer before InitTracer
func GetTracer() trace.Tracer {
	globalMutex.RLock()
	defer globalMutex.RUnlock()

	if globalTracer == nil {
		return noop.NewTracerProvider().Tracer(serviceName)
	}
	return globalTracer
}

// IsEnabled returns true if tracing is enabled
func IsEnabled() bool {
	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return tracingEnabled
}

// IsToolTracingDisabled reports whether MCP_TRACING_DISABLED_TOOLS names the tool
func IsToolTracingDisabled(toolName string) bool {
	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return disabledTools[toolName]
}

// GenerateSessionID generates a new unique session ID
func GenerateSessionID() string {
	return uuid.New().String()
}

// StartSessionSpan records the start of a session. The span is ended and
// flushed straight away so the collector has the parent before any tool span
// arrives. Tool spans started afterwards are parented to it.
func StartSessionSpan(ctx context.Context, sessionID, transport string) {
	if !IsEnabled() {
		return
	}

	_, span := GetTracer().Start(ctx, SpanNameSession,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(AttrMCPSessionID, sessionID),
			attribute.String(AttrMCPTransport, transport),
		),
	)
	spanContext := span.SpanContext()
	span.End()

	globalMutex.Lock()
	tp := globalTracerProvider
	globalSessionSpanContext = spanContext
	globalSessionID = sessionID
	globalMutex.Unlock()

	if tp != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tp.ForceFlush(flushCtx)
	}
}

// EndSessionSpan clears the session started by StartSessionSpan
func EndSessionSpan() {
	globalMutex.Lock()
	globalSessionSpanContext = trace.SpanContext{}
	globalSessionID = ""
	globalMutex.Unlock()
}

// StartToolSpan starts a span for one tool call. The caller must pass the
// span to EndToolSpan.
func StartToolSpan(ctx context.Context, toolName string, args map[string]any) (context.Context, trace.Span) {
	if !IsEnabled() || IsToolTracingDisabled(toolName) {
		return ctx, trace.SpanFromContext(ctx)
	}

	globalMutex.RLock()
	sessionSpanCtx := globalSessionSpanContext
	sessionID := globalSessionID
	globalMutex.RUnlock()

	if sessionSpanCtx.IsValid() && !trace.SpanContextFromContext(ctx).IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, sessionSpanCtx)
	}

	ctx, span := GetTracer().Start(ctx, SpanNameToolExecute, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String(AttrMCPToolName, toolName))
	if sessionID != "" {
		span.SetAttributes(attribute.String(AttrMCPSessionID, sessionID))
	}

	sanitised := SanitiseArguments(args)
	if limit := getMaxAttributeSize(); len(sanitised) > limit {
		span.SetAttributes(
			attribute.String(AttrMCPToolArgs, TruncateString(sanitised, limit)),
			attribute.Bool(AttrMCPToolArgs+".truncated", true),
		)
	} else {
		span.SetAttributes(attribute.String(AttrMCPToolArgs, sanitised))
	}

	return ctx, span
}

// EndToolSpan ends a tool span with success or error
func EndToolSpan(span trace.Span, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(
			attribute.Bool(AttrMCPToolSuccess, false),
			attribute.String(AttrMCPToolError, err.Error()),
		)
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.Bool(AttrMCPToolSuccess, true))
	}
	span.End()
}

// AnnotateRange adds the sheet and range a tool touched to the current span
func AnnotateRange(ctx context.Context, operation, sheet, rng string, cells int) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String(AttrWorkbookOperation, operation),
		attribute.String(AttrWorkbookSheet, sheet),
		attribute.String(AttrWorkbookRange, rng),
		attribute.Int(AttrWorkbookCells, cells),
	)
}

func parseList(s string) map[string]bool {
	out := make(map[string]bool)
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
}

func getOTLPProtocol() string {
	protocol := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL")
	if protocol != "" {
		return protocol
	}
	if strings.Contains(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), ":4317") {
		return "grpc"
	}
	return "http/protobuf"
}

func createSampler(logger *logrus.Logger) sdktrace.Sampler {
	ratio := parseRatio(os.Getenv("OTEL_TRACES_SAMPLER_ARG"), 1.0)

	switch samplerType := os.Getenv("OTEL_TRACES_SAMPLER"); samplerType {
	case "", "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(ratio)
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	default:
		logger.WithField("sampler", samplerType).Warn("OTEL: Unknown sampler type, using always_on")
		return sdktrace.AlwaysSample()
	}
}

// parseRatio parses a sampling ratio clamped to [0, 1]
func parseRatio(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return min(max(f, 0), 1)
}

func getMaxAttributeSize() int {
	size, err := strconv.Atoi(os.Getenv("MCP_TRACING_MAX_ATTRIBUTE_SIZE"))
	if err != nil {
		return defaultMaxAttributeSize
	}
	return min(max(size, minAttributeSize), maxAttributeSize)
}
