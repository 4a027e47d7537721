// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// WorkerFallbacks counts jobs that completed with substituted data.
	WorkerFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_fallbacks_total",
			Help: "Total number of jobs completed with fallback data",
		},
		[]string{"task_type", "reason"},
	)

	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_cache_operations_total",
			Help: "Workspace cache reads and writes by key and result",
		},
		[]string{"op", "key", "result"},
	)
)

// RecordFallback is a shorthand used by handlers when they degrade.
func RecordFallback(taskType, reason string) {
	WorkerFallbacks.WithLabelValues(taskType, reason).Inc()
}
