// Package metrics registers the Prometheus collectors for command dispatch
// and store contention.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moviedb_command_duration_seconds",
			Help:    "Duration of dispatched commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviedb_commands_total",
			Help: "Dispatched commands by outcome kind (ok or an error kind)",
		},
		[]string{"command", "outcome"},
	)

	StoreAcquireWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moviedb_store_acquire_wait_seconds",
			Help:    "Time spent waiting for a read or write slot",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"side"},
	)

	StoreAcquireTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviedb_store_acquire_timeouts_total",
			Help: "Slot acquisitions that gave up with ResourceBusy",
		},
		[]string{"side"},
	)

	StoreWriteRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moviedb_store_write_retries_total",
			Help: "Write transactions retried after SQLite reported BUSY or LOCKED",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moviedb_events_published_total",
			Help: "Change events published to subscribers",
		},
		[]string{"type"},
	)
)

// RecordCommand records one dispatched command. outcome is "ok" or the
// error kind.
func RecordCommand(command, outcome string, duration time.Duration) {
	CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
	CommandsTotal.WithLabelValues(command, outcome).Inc()
}

func RecordEvent(eventType string) {
	EventsPublished.WithLabelValues(eventType).Inc()
}

// StoreObserver feeds store contention into the collectors above.
type StoreObserver struct{}

func (StoreObserver) ObserveAcquire(side string, wait time.Duration, acquired bool) {
	StoreAcquireWait.WithLabelValues(side).Observe(wait.Seconds())
	if !acquired {
		StoreAcquireTimeouts.WithLabelValues(side).Inc()
	}
}

func (StoreObserver) ObserveWriteRetry() {
	StoreWriteRetries.Inc()
}
