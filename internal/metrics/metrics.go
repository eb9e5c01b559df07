// Package metrics exposes Prometheus collectors for the replay
// pipeline, replacing the teacher's hand-rolled atomic-counter
// /metrics handler with github.com/prometheus/client_golang.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PointsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackwatch_points_processed_total",
		Help: "AIS points evaluated by the rule engine.",
	})

	RecordsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackwatch_records_rejected_total",
		Help: "Records dropped by the loader before reaching the rule engine.",
	}, []string{"reason"})

	CandidatesByRule = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackwatch_candidates_total",
		Help: "Candidate alerts produced per rule, before the cooldown gate.",
	}, []string{"rule_type"})

	AlertsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackwatch_alerts_accepted_total",
		Help: "Alerts accepted by the cooldown gate and persisted.",
	}, []string{"rule_type"})

	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackwatch_alerts_suppressed_total",
		Help: "Candidate alerts suppressed as duplicates by the cooldown gate.",
	}, []string{"rule_type"})

	DetectionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackwatch_detection_failures_total",
		Help: "Rule evaluator panics recovered by the engine.",
	}, []string{"rule_type"})

	PersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackwatch_persistence_failures_total",
		Help: "Per-point persistence transactions that were rolled back.",
	})

	SubscriberMailboxDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackwatch_subscriber_mailbox_drops_total",
		Help: "Bus messages dropped from a subscriber mailbox under backpressure.",
	}, []string{"kind"})

	ReplaySessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackwatch_replay_sessions_started_total",
		Help: "Replay sessions that transitioned into Running.",
	})

	ReplayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trackwatch_replay_duration_seconds",
		Help:    "Wall-clock duration of completed replay sessions.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)
