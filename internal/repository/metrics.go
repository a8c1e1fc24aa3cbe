package repository

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QueryMetrics contains the Prometheus metrics shared by the repository
// implementations in this package.
type QueryMetrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
	QueryResults  *prometheus.HistogramVec
}

var defaultQueryMetrics = newQueryMetrics()

func newQueryMetrics() *QueryMetrics {
	return &QueryMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transition_repository_query_duration_seconds",
				Help:    "Duration of revision/item/status repository queries",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"store", "operation", "status"},
		),
		QueryErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transition_repository_query_errors_total",
				Help: "Total number of repository query errors",
			},
			[]string{"store", "operation", "error_type"},
		),
		QueryResults: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "transition_repository_query_results_total",
				Help:    "Number of rows returned by paged repository queries",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"store", "operation"},
		),
	}
}
