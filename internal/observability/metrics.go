package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the orchestrator daemon.
type Metrics struct {
	registry       *prometheus.Registry
	Requests       *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	Tokens         *prometheus.CounterVec
	Cost           *prometheus.CounterVec
	ModelUsage     *prometheus.CounterVec
	ModelFailures  *prometheus.CounterVec
	ActiveStreams  *prometheus.GaugeVec
	TransportErrs  *prometheus.CounterVec
	TelemetryDepth prometheus.Gauge
}

// NewMetrics constructs a metrics registry with orchestrator collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	reqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyroute_requests_total",
		Help: "Generation requests by strategy and outcome",
	}, []string{"strategy", "outcome"})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polyroute_request_duration_seconds",
		Help:    "End-to-end request duration by strategy",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"strategy"})

	tokens := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyroute_tokens_total",
		Help: "Tokens consumed by direction (input/output)",
	}, []string{"direction"})

	cost := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyroute_cost_dollars_total",
		Help: "Estimated spend by model",
	}, []string{"model"})

	modelUsage := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyroute_model_usage_total",
		Help: "Model selections by role in the decision",
	}, []string{"role", "model"})

	modelFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyroute_model_failures_total",
		Help: "Model call failures by model",
	}, []string{"model"})

	active := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "polyroute_active_streams",
		Help: "Active generation streams by transport",
	}, []string{"transport"})

	trErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "polyroute_transport_errors_total",
		Help: "Transport-level errors by transport and reason",
	}, []string{"transport", "reason"})

	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "polyroute_telemetry_buffer_depth",
		Help: "Records currently waiting in the telemetry buffer",
	})

	reg.MustRegister(reqs, durs, tokens, cost, modelUsage, modelFailures, active, trErrors, depth)

	return &Metrics{
		registry:       reg,
		Requests:       reqs,
		Duration:       durs,
		Tokens:         tokens,
		Cost:           cost,
		ModelUsage:     modelUsage,
		ModelFailures:  modelFailures,
		ActiveStreams:  active,
		TransportErrs:  trErrors,
		TelemetryDepth: depth,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records one finished request.
func (m *Metrics) RecordRequest(strategy, outcome string, duration time.Duration, inputTokens, outputTokens int, cost float64, model string) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.Requests.WithLabelValues(strategy, outcome).Inc()
	m.Duration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.Tokens.WithLabelValues("input").Add(float64(inputTokens))
	m.Tokens.WithLabelValues("output").Add(float64(outputTokens))
	if model != "" {
		m.Cost.WithLabelValues(model).Add(cost)
	}
}

// RecordModelUsage increments the selection counter for a role/model pair.
func (m *Metrics) RecordModelUsage(role, model string) {
	if m == nil || model == "" {
		return
	}
	m.ModelUsage.WithLabelValues(role, model).Inc()
}

// RecordModelFailure increments the failure counter for a model.
func (m *Metrics) RecordModelFailure(model string) {
	if m == nil {
		return
	}
	if model == "" {
		model = "unknown"
	}
	m.ModelFailures.WithLabelValues(model).Inc()
}

// IncActiveStreams increments the active stream gauge.
func (m *Metrics) IncActiveStreams(transport string) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(transport).Inc()
}

// DecActiveStreams decrements the active stream gauge.
func (m *Metrics) DecActiveStreams(transport string) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(transport).Dec()
}

// RecordTransportError records a transport-level error.
func (m *Metrics) RecordTransportError(transport, reason string) {
	if m == nil {
		return
	}
	if transport == "" {
		transport = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	m.TransportErrs.WithLabelValues(transport, reason).Inc()
}

// SetTelemetryDepth reports the current buffer depth.
func (m *Metrics) SetTelemetryDepth(n int) {
	if m == nil {
		return
	}
	m.TelemetryDepth.Set(float64(n))
}
