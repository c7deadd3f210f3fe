package hooks

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Hook = (*PrometheusHook)(nil)

// PrometheusHook counts panel invocations on its own registry. Handler
// serves the registry; the REST server mounts it at /metrics.
type PrometheusHook struct {
	registry *prometheus.Registry

	// Counters
	invocationsTotal *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	findingsTotal    *prometheus.CounterVec

	// Gauges
	inFlight *prometheus.GaugeVec

	// Histograms
	durationSeconds *prometheus.HistogramVec

	mu     sync.Mutex
	closed bool
}

// PrometheusOptions configures the Prometheus hook.
type PrometheusOptions struct {
	// Namespace prefixes metric names (default "cyberx").
	Namespace string

	// Buckets for the duration histogram in seconds.
	Buckets []float64
}

// NewPrometheusHook creates the hook and registers its metrics.
func NewPrometheusHook(opts PrometheusOptions) (*PrometheusHook, error) {
	if opts.Namespace == "" {
		opts.Namespace = "cyberx"
	}
	if len(opts.Buckets) == 0 {
		opts.Buckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	}

	h := &PrometheusHook{registry: prometheus.NewRegistry()}
	if err := h.initMetrics(opts); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return h, nil
}

// initMetrics creates and registers all Prometheus metrics.
func (h *PrometheusHook) initMetrics(opts PrometheusOptions) error {
	h.invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "panel_invocations_total",
			Help:      "Panel invocations that returned a result",
		},
		[]string{"panel", "category"},
	)
	h.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "panel_errors_total",
			Help:      "Panel invocations that failed, by error type",
		},
		[]string{"panel", "type"},
	)
	h.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: opts.Namespace,
			Name:      "panel_findings_total",
			Help:      "Graded panel results by worst severity",
		},
		[]string{"panel", "severity"},
	)
	h.inFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "panel_in_flight",
			Help:      "Panel invocations currently running",
		},
		[]string{"panel"},
	)
	h.durationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "panel_duration_seconds",
			Help:      "Panel run time in seconds",
			Buckets:   opts.Buckets,
		},
		[]string{"panel", "outcome"},
	)

	collectors := []prometheus.Collector{
		h.invocationsTotal,
		h.errorsTotal,
		h.findingsTotal,
		h.inFlight,
		h.durationSeconds,
	}
	for _, c := range collectors {
		if err := h.registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// OnEvent updates the metrics for one event.
func (h *PrometheusHook) OnEvent(_ context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.StartEvent:
		h.inFlight.WithLabelValues(e.Panel.ID).Inc()
	case *events.ResultEvent:
		h.inFlight.WithLabelValues(e.Panel.ID).Dec()
		h.invocationsTotal.WithLabelValues(e.Panel.ID, e.Panel.Category).Inc()
		h.durationSeconds.WithLabelValues(e.Panel.ID, "ok").Observe(e.DurationMs / 1000)
		if e.Severity != "" {
			h.findingsTotal.WithLabelValues(e.Panel.ID, string(e.Severity)).Inc()
		}
	case *events.ErrorEvent:
		h.inFlight.WithLabelValues(e.Panel.ID).Dec()
		h.errorsTotal.WithLabelValues(e.Panel.ID, string(e.ErrorType)).Inc()
		h.durationSeconds.WithLabelValues(e.Panel.ID, string(e.ErrorType)).Observe(e.DurationMs / 1000)
	}
	return nil
}

// EventTypes returns the event types this hook handles.
func (h *PrometheusHook) EventTypes() []events.EventType {
	return []events.EventType{
		events.EventTypeStart,
		events.EventTypeResult,
		events.EventTypeError,
	}
}

// Registry exposes the hook's registry, mainly for tests.
func (h *PrometheusHook) Registry() *prometheus.Registry { return h.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (h *PrometheusHook) Handler() http.Handler {
	return promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Close stops metric updates.
func (h *PrometheusHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
