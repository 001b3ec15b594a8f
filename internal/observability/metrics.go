package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes besides the validation kinds.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
)

var (
	submissionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "ledger",
		Name:      "submissions_total",
		Help:      "Number of submit attempts grouped by outcome (created, updated, or validation kind).",
	}, []string{"outcome"})

	editsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "ledger",
		Name:      "edits_begun_total",
		Help:      "Number of times an activity was loaded into the draft for editing.",
	})

	deletionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "ledger",
		Name:      "deletions_total",
		Help:      "Number of activities removed from a ledger.",
	})

	sessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitness_tracker",
		Subsystem: "ledger",
		Name:      "sessions",
		Help:      "Number of ledger sessions held in memory.",
	})

	lastChangeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitness_tracker",
		Subsystem: "ledger",
		Name:      "last_change_timestamp_seconds",
		Help:      "Unix timestamp of the most recent committed ledger change.",
	})
)

func init() {
	prometheus.MustRegister(submissionCounter, editsCounter, deletionsCounter, sessionsGauge, lastChangeGauge)
}

// RecordSubmission counts one submit attempt.
func RecordSubmission(outcome string) {
	submissionCounter.WithLabelValues(outcome).Inc()
}

// RecordEditBegun counts a successful beginEdit.
func RecordEditBegun() {
	editsCounter.Inc()
}

// RecordDeletion counts a removed activity.
func RecordDeletion() {
	deletionsCounter.Inc()
}

// SetSessions publishes the number of live sessions.
func SetSessions(n int) {
	sessionsGauge.Set(float64(n))
}

// RecordLedgerChange updates the last-change watermark gauge.
func RecordLedgerChange(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastChangeGauge.Set(float64(ts.Unix()))
}
