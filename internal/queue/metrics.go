package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	// TasksProcessedTotal counts handled tasks by type and outcome (ok, error, invalid).
	TasksProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lavado",
		Subsystem: "worker",
		Name:      "tasks_processed_total",
		Help:      "Tasks handled by the worker by type and outcome.",
	}, []string{"type", "outcome"})
	// ReportKeysPurgedTotal counts cached report entries removed by invalidations.
	ReportKeysPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lavado",
		Subsystem: "worker",
		Name:      "report_cache_keys_purged_total",
		Help:      "Cached report entries removed after invoice changes.",
	})
	// PurgeDuration observes how long one report cache purge takes.
	PurgeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lavado",
		Subsystem: "worker",
		Name:      "report_cache_purge_seconds",
		Help:      "Duration of report cache purges.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 6),
	})
)

func init() {
	prometheus.MustRegister(TasksProcessedTotal, ReportKeysPurgedTotal, PurgeDuration)
}
