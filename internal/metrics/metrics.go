package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the tool registry
type Metrics struct {
	registry *prometheus.Registry

	// Registration metrics
	RegistrationsTotal *prometheus.CounterVec

	// Load metrics
	ToolLoadsTotal   *prometheus.CounterVec
	ToolLoadDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheEntries     prometheus.Gauge

	// Execution metrics
	ToolExecutionsTotal   *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec

	// Build metrics
	ToolBuildsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_registrations_total",
				Help: "Total number of tool registrations",
			},
			[]string{"status"},
		),

		ToolLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_loads_total",
				Help: "Total number of tool loads from disk",
			},
			[]string{"tool_name", "status"},
		),
		ToolLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_load_duration_seconds",
				Help:    "Duration of tool loads in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_cache_hits_total",
				Help: "Total number of tool cache hits",
			},
			[]string{"tool_name"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_cache_misses_total",
				Help: "Total number of tool cache misses, forced reloads included",
			},
			[]string{"tool_name"},
		),
		CacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tool_cache_entries",
				Help: "Number of tools currently cached",
			},
		),

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),

		ToolBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_builds_total",
				Help: "Total number of compile and install steps run for tools",
			},
			[]string{"tool_name", "step", "status"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.RegistrationsTotal)

	m.registry.MustRegister(m.ToolLoadsTotal)
	m.registry.MustRegister(m.ToolLoadDuration)

	m.registry.MustRegister(m.CacheHitsTotal)
	m.registry.MustRegister(m.CacheMissesTotal)
	m.registry.MustRegister(m.CacheEntries)

	m.registry.MustRegister(m.ToolExecutionsTotal)
	m.registry.MustRegister(m.ToolExecutionDuration)

	m.registry.MustRegister(m.ToolBuildsTotal)
}

// Status returns the status label for an operation outcome
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
