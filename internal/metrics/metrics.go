// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "virtual_queue"

var (
	// Joins counts admission attempts by outcome.
	Joins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "joins_total",
		Help:      "Join requests by result.",
	}, []string{"result"})

	// Transitions counts committed lifecycle transitions by target state.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Session state transitions by target state.",
	}, []string{"to"})

	// Releases counts sessions moved to called, by trigger.
	Releases = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "releases_total",
		Help:      "Sessions released by the scheduler or by staff.",
	}, []string{"trigger"})

	// LockBusy counts queue lock acquisitions that timed out.
	LockBusy = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lock_busy_total",
		Help:      "Queue lock acquisitions that gave up with Busy.",
	})

	// OutboxFailures counts persistence and publish failures after commit.
	OutboxFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_failures_total",
		Help:      "Post-commit side effects that failed.",
	}, []string{"stage"})

	// Waiting tracks the waiting line length per queue.
	Waiting = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "waiting_sessions",
		Help:      "Sessions currently waiting, per queue.",
	}, []string{"queue_id"})
)
