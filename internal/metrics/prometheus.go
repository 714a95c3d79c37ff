package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts jobs accepted by the registry, by type.
	JobsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botilito_jobs_submitted_total",
			Help: "Total number of jobs accepted by the registry",
		},
		[]string{"type"},
	)

	// JobTransitions counts job status transitions, by type and new status.
	JobTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botilito_job_transitions_total",
			Help: "Total number of job status transitions",
		},
		[]string{"type", "status"},
	)

	// PollRounds counts completed poll scheduler ticks.
	PollRounds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "botilito_poll_rounds_total",
			Help: "Total number of completed poll rounds",
		},
	)

	// PollDuration tracks the wall time of one poll round in seconds.
	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "botilito_poll_round_duration_seconds",
			Help:    "Duration of poll rounds in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
	)

	// JobsInFlight tracks jobs currently in a non-terminal status.
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "botilito_jobs_in_flight",
			Help: "Number of jobs currently pending or processing",
		},
	)

	// NotificationsCreated counts notifications synthesized from terminal
	// task transitions, by notification type.
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botilito_notifications_created_total",
			Help: "Total number of notifications created from task transitions",
		},
		[]string{"type"},
	)

	// TransportRetries counts status polls retried after a transport failure.
	TransportRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "botilito_transport_retries_total",
			Help: "Total number of status polls retried after transport errors",
		},
	)
)
