// Package metrics provides Prometheus metrics for the analysis service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"semanticheck/internal/domain"
)

// Metrics contains the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	similarityTotal *prometheus.CounterVec
	similarityScore prometheus.Histogram

	aiVerdictsTotal *prometheus.CounterVec

	llmCallsTotal   *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec

	embeddingDuration *prometheus.HistogramVec
	embeddingErrors   *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// New creates and registers the service metrics on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semanticheck_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semanticheck_http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.similarityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semanticheck_similarity_comparisons_total",
			Help: "Total number of similarity comparisons by risk level",
		},
		[]string{"risk_level"},
	)

	m.similarityScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "semanticheck_similarity_score",
			Help:    "Distribution of similarity scores",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	m.aiVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semanticheck_ai_verdicts_total",
			Help: "Total number of AI-content verdicts by label",
		},
		[]string{"verdict"},
	)

	m.llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semanticheck_llm_calls_total",
			Help: "Total number of LLM analysis calls by outcome",
		},
		[]string{"operation", "status", "error_code"},
	)

	m.llmCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semanticheck_llm_call_duration_seconds",
			Help:    "Time taken for LLM analysis calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
		[]string{"operation"},
	)

	m.embeddingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semanticheck_embedding_duration_seconds",
			Help:    "Time taken to embed a batch of texts",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"provider"},
	)

	m.embeddingErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semanticheck_embedding_errors_total",
			Help: "Total number of failed embedding calls",
		},
		[]string{"provider"},
	)

	m.collectors = []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.similarityTotal,
		m.similarityScore,
		m.aiVerdictsTotal,
		m.llmCallsTotal,
		m.llmCallDuration,
		m.embeddingDuration,
		m.embeddingErrors,
	}
}

// Describe implements the Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records a completed HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordSimilarity records a completed similarity comparison.
func (m *Metrics) RecordSimilarity(risk domain.RiskLevel, score float64) {
	if m == nil {
		return
	}
	m.similarityTotal.WithLabelValues(string(risk)).Inc()
	m.similarityScore.Observe(score)
}

// RecordAIVerdict records the verdict label returned by the classifier.
func (m *Metrics) RecordAIVerdict(verdict string) {
	if m == nil {
		return
	}
	m.aiVerdictsTotal.WithLabelValues(verdict).Inc()
}

// RecordLLMCall records one remote analysis call. err is the underlying
// failure, if any; it is reduced to its domain error code.
func (m *Metrics) RecordLLMCall(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status, code := "success", ""
	if err != nil {
		status, code = "error", string(domain.ErrorCodeOf(err))
	}
	m.llmCallsTotal.WithLabelValues(operation, status, code).Inc()
	m.llmCallDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordEmbedding records one embedding batch.
func (m *Metrics) RecordEmbedding(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.embeddingDuration.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		m.embeddingErrors.WithLabelValues(provider).Inc()
	}
}
