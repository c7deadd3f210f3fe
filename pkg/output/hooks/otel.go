package hooks

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/duration"
	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*OTelHook)(nil)

// OTelHook turns each panel invocation into one span. The start event
// opens it and the result or error event ends it.
type OTelHook struct {
	provider        trace.TracerProvider
	shutdown        func(context.Context) error
	shutdownTimeout time.Duration
	tracer          trace.Tracer

	mu     sync.Mutex
	spans  map[string]trace.Span
	closed bool
}

// OTelOptions configures the OpenTelemetry hook behavior.
type OTelOptions struct {
	// Endpoint is the OTLP endpoint (e.g., "localhost:4317").
	Endpoint string

	// ServiceName is the service name for traces (default: "TheCyberX").
	ServiceName string

	// Insecure uses insecure connection (no TLS).
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ShutdownTimeout bounds the final export on Close.
	ShutdownTimeout time.Duration
}

// NewOTelHook exports spans over OTLP/gRPC. The exporter connects lazily;
// an unreachable collector never blocks a panel.
func NewOTelHook(opts OTelOptions) (*OTelHook, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.Endpoint == "" {
		opts.Endpoint = "localhost:4317"
	}

	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	exporter, err := otlptracegrpc.New(context.Background(), exporterOpts...)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.ServiceVersion(defaults.Version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	h := NewOTelHookWithProvider(tp)
	h.shutdown = tp.Shutdown
	if opts.ShutdownTimeout > 0 {
		h.shutdownTimeout = opts.ShutdownTimeout
	}
	return h, nil
}

// NewOTelHookWithProvider records spans on an existing provider. Close
// does not shut the provider down.
func NewOTelHookWithProvider(tp trace.TracerProvider) *OTelHook {
	return &OTelHook{
		provider:        tp,
		tracer:          tp.Tracer("cyberx/panel"),
		shutdownTimeout: duration.TracerShutdown,
		spans:           make(map[string]trace.Span),
	}
}

// OnEvent opens or closes the span for the event's run.
func (h *OTelHook) OnEvent(ctx context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.StartEvent:
		_, span := h.tracer.Start(ctx, "panel."+e.Panel.ID,
			trace.WithTimestamp(e.Time),
			trace.WithAttributes(
				attribute.String("panel.id", e.Panel.ID),
				attribute.String("panel.category", e.Panel.Category),
				attribute.String("run_id", e.Run),
			),
		)
		h.spans[e.Run] = span
	case *events.ResultEvent:
		span, ok := h.take(e.Run)
		if !ok {
			return nil
		}
		span.SetAttributes(attribute.Float64("duration_ms", e.DurationMs))
		if e.Severity != "" {
			span.SetAttributes(attribute.String("severity", string(e.Severity)))
		}
		if e.Table != nil {
			span.SetAttributes(attribute.Int("rows", e.Table.Len()))
		}
		span.SetStatus(codes.Ok, "")
		span.End(trace.WithTimestamp(e.Time))
	case *events.ErrorEvent:
		span, ok := h.take(e.Run)
		if !ok {
			return nil
		}
		span.SetAttributes(attribute.String("error.type", string(e.ErrorType)))
		span.AddEvent("panel_failed", trace.WithAttributes(attribute.String("message", e.Message)))
		span.SetStatus(codes.Error, e.Message)
		span.End(trace.WithTimestamp(e.Time))
	}
	return nil
}

func (h *OTelHook) take(run string) (trace.Span, bool) {
	span, ok := h.spans[run]
	if ok {
		delete(h.spans, run)
	}
	return span, ok
}

// EventTypes returns the event types this hook handles.
func (h *OTelHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypeResult,
		events.EventTypeError,
	}
}

// Close ends any span still open and flushes the exporter.
func (h *OTelHook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for run, span := range h.spans {
		span.SetStatus(codes.Error, "unfinished")
		span.End()
		delete(h.spans, run)
	}
	h.mu.Unlock()

	if h.shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()
	return h.shutdown(ctx)
}
