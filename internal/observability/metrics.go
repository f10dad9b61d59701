// Package observability defines the Prometheus metrics exported by faqbot.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "faqbot"

// Metrics groups all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	ChatRequests       *prometheus.CounterVec
	Fallbacks          prometheus.Counter
	UpstreamErrors     *prometheus.CounterVec
	StreamFrames       *prometheus.CounterVec
	StreamSkippedLines prometheus.Counter
	EmbeddingDuration  prometheus.Histogram
	EmbeddingWorkers   prometheus.Gauge
	SearchTopScore     prometheus.Histogram
	RateLimited        prometheus.Counter
}

// NewMetrics registers all collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		ChatRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by safety classification.",
		}, []string{"classification"}),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_fallbacks_total",
			Help:      "Searches that found no confident FAQ match.",
		}),
		UpstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "LLM upstream failures by kind.",
		}, []string{"kind"}),
		StreamFrames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_frames_total",
			Help:      "Frames written to clients by kind.",
		}, []string{"kind"}),
		StreamSkippedLines: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_skipped_lines_total",
			Help:      "Malformed upstream lines that were skipped.",
		}),
		EmbeddingDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_duration_seconds",
			Help:      "Time spent computing one query embedding, including queueing.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),
		EmbeddingWorkers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "embedding_workers",
			Help:      "Live embedding workers.",
		}),
		SearchTopScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_top_score",
			Help:      "Best merged candidate score per search.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(classification string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(classification).Inc()
}

func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.Fallbacks.Inc()
}

func (m *Metrics) ObserveUpstreamError(kind string) {
	if m == nil {
		return
	}
	m.UpstreamErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveFrame(kind string) {
	if m == nil {
		return
	}
	m.StreamFrames.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveSkippedLine() {
	if m == nil {
		return
	}
	m.StreamSkippedLines.Inc()
}

func (m *Metrics) ObserveEmbedding(d time.Duration) {
	if m == nil {
		return
	}
	m.EmbeddingDuration.Observe(d.Seconds())
}

func (m *Metrics) SetWorkers(n int) {
	if m == nil {
		return
	}
	m.EmbeddingWorkers.Set(float64(n))
}

func (m *Metrics) ObserveTopScore(score float64) {
	if m == nil {
		return
	}
	m.SearchTopScore.Observe(score)
}

func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
