package feed

import "github.com/prometheus/client_golang/prometheus"

var (
	publishedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "feed",
		Name:      "events_published_total",
		Help:      "Number of ledger change events written to Kafka, labeled by event type.",
	}, []string{"event_type"})

	failedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "feed",
		Name:      "events_failed_total",
		Help:      "Number of ledger change events that could not be published, labeled by event type.",
	}, []string{"event_type"})

	publishDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitness_tracker",
		Subsystem: "feed",
		Name:      "publish_duration_seconds",
		Help:      "Time spent resolving the schema id and writing one change event.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(publishedCounter, failedCounter, publishDuration)
}
