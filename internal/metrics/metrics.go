// Package metrics exposes RiskMesh's counters, histograms, and gauges in the
// standard Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// Metrics bundles every collector named in the external-interfaces contract.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
	RequestLatencyMs    prometheus.Histogram
	PropagationLatency  prometheus.Histogram
	GraphNodes          prometheus.Gauge
	GraphEdges          prometheus.Gauge
	CacheHitRate         prometheus.Gauge
	SinkDeadLetterTotal  prometheus.Counter

	registry *prometheus.Registry
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskmesh_requests_total",
			Help: "Total number of ingest requests handled.",
		}, []string{"outcome"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskmesh_errors_total",
			Help: "Total number of requests that failed, by class.",
		}, []string{"class"}),
		RequestLatencyMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskmesh_request_latency_ms",
			Help:    "End-to-end ingest request latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500},
		}),
		PropagationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "riskmesh_propagation_latency_ms",
			Help:    "Risk-propagation step latency in milliseconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50},
		}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskmesh_graph_nodes",
			Help: "Current number of nodes in the in-memory graph.",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskmesh_graph_edges",
			Help: "Current number of edges in the in-memory graph.",
		}),
		CacheHitRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "riskmesh_cache_hit_rate",
			Help: "Rolling cache hit rate.",
		}),
		SinkDeadLetterTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "riskmesh_sink_dead_letters_total",
			Help: "Total number of durable-sink writes dropped after exhausting retries.",
		}),
		registry: reg,
	}

	reg.MustRegister(m.RequestsTotal, m.ErrorsTotal, m.RequestLatencyMs, m.PropagationLatency,
		m.GraphNodes, m.GraphEdges, m.CacheHitRate, m.SinkDeadLetterTotal)

	return m
}

// Handler returns the /metrics HTTP handler in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
