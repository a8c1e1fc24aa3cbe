package transition

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation for the scheduler
// driver, per-user migrator, and integrity verifier.
type Metrics struct {
	MigrationDuration   *prometheus.HistogramVec
	MigrationsInFlight  prometheus.Gauge
	MigrationsTotal     *prometheus.CounterVec
	RevisionsMigrated   prometheus.Counter
	IntegrityFailures   prometheus.Counter
	SchedulerUsersSeen  prometheus.Counter
	SchedulerRequested  prometheus.Counter
}

var defaultMetrics = newMetrics()

func newMetrics() *Metrics {
	return &Metrics{
		MigrationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transition_migration_duration_seconds",
				Help:    "Duration of a per-user migration attempt",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transition_type", "outcome"},
		),
		MigrationsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "transition_migrations_in_flight",
			Help: "Number of per-user migrations currently running in this process",
		}),
		MigrationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transition_migrations_total",
				Help: "Total per-user migration attempts by outcome",
			},
			[]string{"transition_type", "outcome"},
		),
		RevisionsMigrated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transition_revisions_migrated_total",
			Help: "Total revisions copied from secondary to primary",
		}),
		IntegrityFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transition_integrity_failures_total",
			Help: "Total integrity verification failures",
		}),
		SchedulerUsersSeen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transition_scheduler_users_seen_total",
			Help: "Total users paged through by the scheduler driver",
		}),
		SchedulerRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "transition_scheduler_requested_total",
			Help: "Total TransitionRequested events published by the scheduler driver",
		}),
	}
}
