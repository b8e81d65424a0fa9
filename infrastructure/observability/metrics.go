package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics for the client.
// Each collector owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// Gateway metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec

	// Store metrics
	Actions        *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec

	// Session metrics
	SessionInvalidations *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	actions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_actions_total",
			Help:      "Total number of store actions by kind, verb and outcome",
		},
		[]string{"kind", "verb", "outcome"},
	)

	actionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_action_duration_seconds",
			Help:      "Store action duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "verb"},
	)

	invalidations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_invalidations_total",
			Help:      "Total number of sessions torn down, by reason",
		},
		[]string{"reason"},
	)

	registry.MustRegister(
		requests,
		requestDuration,
		breakerState,
		actions,
		actionDuration,
		invalidations,
	)

	return &Collector{
		registry:             registry,
		Requests:             requests,
		RequestDuration:      requestDuration,
		BreakerState:         breakerState,
		Actions:              actions,
		ActionDuration:       actionDuration,
		SessionInvalidations: invalidations,
	}
}

// Registry returns the registry the metrics are registered with
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRequest records one settled API request. Status 0 marks a
// transport failure.
func (c *Collector) ObserveRequest(method string, status int, duration time.Duration) {
	label := strconv.Itoa(status)
	if status == 0 {
		label = "error"
	}
	c.Requests.WithLabelValues(method, label).Inc()
	c.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// SetBreakerState records the breaker state for name
func (c *Collector) SetBreakerState(name string, state int) {
	c.BreakerState.WithLabelValues(name).Set(float64(state))
}

// ObserveAction records one store action
func (c *Collector) ObserveAction(kind, verb, outcome string, duration time.Duration) {
	c.Actions.WithLabelValues(kind, verb, outcome).Inc()
	c.ActionDuration.WithLabelValues(kind, verb).Observe(duration.Seconds())
}

// IncSessionInvalidation counts a session teardown
func (c *Collector) IncSessionInvalidation(reason string) {
	c.SessionInvalidations.WithLabelValues(reason).Inc()
}

// WriteTextfile dumps every metric in the text exposition format, for the
// node_exporter textfile collector
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
