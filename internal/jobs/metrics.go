package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the sweep job counters exported on /metrics.
type Metrics struct {
	Runs      *prometheus.CounterVec
	Expired   prometheus.Counter
	Conflicts prometheus.Counter
	Purged    prometheus.Counter
	Duration  *prometheus.HistogramVec
}

// NewMetrics registers the sweep metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "programmes",
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Sweep passes by task and outcome (ok, error, skipped).",
		}, []string{"task", "outcome"}),
		Expired: f.NewCounter(prometheus.CounterOpts{
			Namespace: "programmes",
			Subsystem: "sweep",
			Name:      "pending_updates_expired_total",
			Help:      "Pending updates cleared after the expiry window.",
		}),
		Conflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "programmes",
			Subsystem: "sweep",
			Name:      "expiry_conflicts_total",
			Help:      "Pending updates that changed between scan and conditional clear.",
		}),
		Purged: f.NewCounter(prometheus.CounterOpts{
			Namespace: "programmes",
			Subsystem: "sweep",
			Name:      "rejected_purged_total",
			Help:      "Rejected assignments deleted after the retention window.",
		}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "programmes",
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Duration of one sweep task.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
	}
}
