// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"swedana-forms/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FormstoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstore_operations_total",
			Help: "Total number of submission store operations by outcome",
		},
		[]string{"operation", "result"},
	)

	FormstoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formstore_operation_duration_seconds",
			Help:    "Duration of submission store operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"operation"},
	)

	FormstoreStorageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstore_storage_failures_total",
			Help: "Total number of failed reads or writes against the storage device",
		},
		[]string{"operation"},
	)

	SubmissionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_created_total",
			Help: "Total number of submissions persisted by type",
		},
		[]string{"type"},
	)

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
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
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

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_notifications_total",
			Help: "Submission alerts by channel and outcome",
		},
		[]string{"channel", "result"},
	)
)

// StoreRecorder feeds formstore outcomes into the prometheus counters.
type StoreRecorder struct{}

func (StoreRecorder) Operation(op string, ok bool, d time.Duration) {
	result := "success"
	if !ok {
		result = "failure"
	}
	FormstoreOperations.WithLabelValues(op, result).Inc()
	FormstoreOperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (StoreRecorder) StorageFailure(op string) {
	FormstoreStorageFailures.WithLabelValues(op).Inc()
}

func (StoreRecorder) Created(t models.SubmissionType) {
	SubmissionsCreated.WithLabelValues(string(t)).Inc()
}
