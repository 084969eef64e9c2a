package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Model call kinds.
const (
	KindEmbed    = "embed"
	KindGenerate = "generate"
)

// Model call outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

var (
	// ModelCallsTotal counts embedding and generation calls by outcome.
	ModelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Total number of embedding and generation model calls",
		},
		[]string{"kind", "provider", "outcome"},
	)

	// ModelCallDuration observes model call latency.
	ModelCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Model call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind", "provider"},
	)

	// EmbeddingCacheTotal counts embedding cache hits and misses.
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(ModelCallsTotal)
	prometheus.MustRegister(ModelCallDuration)
	prometheus.MustRegister(EmbeddingCacheTotal)
}

// ObserveModelCall records one model call that started at start.
func ObserveModelCall(kind, provider string, start time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	ModelCallsTotal.WithLabelValues(kind, provider, outcome).Inc()
	ModelCallDuration.WithLabelValues(kind, provider).Observe(time.Since(start).Seconds())
}
