package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	ChatRequests         *prometheus.CounterVec
	LoopRounds           prometheus.Histogram
	ToolExecutions       *prometheus.CounterVec
	SessionsBootstrapped prometheus.Counter
	CompactionRuns       prometheus.Counter
}

// NewMetrics creates and registers the gateway collectors on a fresh
// registry, alongside the standard Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mapgate_chat_requests_total",
			Help: "Chat requests handled, by outcome status.",
		}, []string{"status"}),
		LoopRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mapgate_loop_rounds",
			Help:    "Reasoning loop rounds consumed per chat request.",
			Buckets: []float64{0, 1, 2, 3, 4},
		}),
		ToolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mapgate_tool_executions_total",
			Help: "Server-side tool executions, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		SessionsBootstrapped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mapgate_sessions_bootstrapped_total",
			Help: "Sessions created via bootstrap.",
		}),
		CompactionRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mapgate_history_compactions_total",
			Help: "History compaction runs.",
		}),
	}
	reg.MustRegister(
		m.ChatRequests,
		m.LoopRounds,
		m.ToolExecutions,
		m.SessionsBootstrapped,
		m.CompactionRuns,
	)
	return m
}

// Handler returns the HTTP handler exposing the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
