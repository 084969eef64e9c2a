package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// StageDuration observes how long each pipeline stage takes.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Answer pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// AnswersTotal counts pipeline invocations by synthesis mode and outcome.
	AnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_total",
			Help:      "Total number of answer pipeline invocations",
		},
		[]string{"mode", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(AnswersTotal)
}
