package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stock_agent"

type Metrics struct {
	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	RunsInFlight prometheus.Gauge

	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec

	ToolCallsTotal   *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	ResponsesSavedTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of analysis runs",
			},
			[]string{"provider", "mode", "status"},
		),
		RunDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Analysis run duration in seconds",
				Buckets:   []float64{1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"provider", "mode"},
		),
		RunsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runs_in_flight",
				Help:      "Number of analysis runs currently executing",
			},
		),

		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM API requests",
			},
			[]string{"agent", "status"},
		),
		LLMRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "LLM request duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"agent"},
		),

		ToolCallsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool invocations",
			},
			[]string{"tool", "status"},
		),
		ToolCallDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "Tool invocation duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"tool"},
		),

		CacheHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of tool cache hits",
			},
			[]string{"tool"},
		),
		CacheMissesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of tool cache misses",
			},
			[]string{"tool"},
		),

		ResponsesSavedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_saved_total",
				Help:      "Response files written, by status",
			},
			[]string{"status"},
		),

		gatherer: gatherer,
	}
}

// Handler serves the registry this Metrics was built on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRun(provider, mode, status string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(provider, mode, status).Inc()
	m.RunDuration.WithLabelValues(provider, mode).Observe(duration.Seconds())
}

func (m *Metrics) RecordLLMRequest(agent, status string, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(agent, status).Inc()
	m.LLMRequestDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

func (m *Metrics) RecordToolCall(tool, status string, duration time.Duration) {
	m.ToolCallsTotal.WithLabelValues(tool, status).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheHit(tool string) {
	m.CacheHitsTotal.WithLabelValues(tool).Inc()
}

func (m *Metrics) RecordCacheMiss(tool string) {
	m.CacheMissesTotal.WithLabelValues(tool).Inc()
}

func (m *Metrics) RecordResponseSaved(status string) {
	m.ResponsesSavedTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncRunsInFlight() {
	m.RunsInFlight.Inc()
}

func (m *Metrics) DecRunsInFlight() {
	m.RunsInFlight.Dec()
}
