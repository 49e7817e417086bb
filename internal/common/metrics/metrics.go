// internal/common/metrics/metrics.go
package metrics

import (
	"time"

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
)

// Lending orchestration.
var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lending_submissions_total",
			Help: "Submissions by outcome (success, partial, failed, duplicate, no_lenders)",
		},
		[]string{"result"},
	)

	LenderDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lending_lender_decisions_total",
			Help: "Lender outcomes recorded by the orchestrator",
		},
		[]string{"lender", "status"},
	)

	LenderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lending_lender_call_duration_seconds",
			Help:    "Time spent waiting for a lender decision",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"lender"},
	)

	FanoutInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lending_fanout_inflight",
			Help: "Lender tasks currently running",
		},
	)

	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lending_retries_total",
			Help: "Retry attempts by lender and outcome (accepted, rejected)",
		},
		[]string{"lender", "outcome"},
	)

	ExternalUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lending_external_updates_total",
			Help: "Status updates pushed by lenders",
		},
		[]string{"status"},
	)
)

// ObserveJob records a finished worker job. errorCode is empty on success.
func ObserveJob(taskType string, started time.Time, errorCode string) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(started).Seconds())
	if errorCode != "" {
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
		return
	}
	WorkerJobsCompleted.WithLabelValues(taskType).Inc()
}

// ObserveLenderCall records the latency and outcome of one lender task.
func ObserveLenderCall(lenderID, status string, elapsed time.Duration) {
	LenderCallDuration.WithLabelValues(lenderID).Observe(elapsed.Seconds())
	LenderDecisionsTotal.WithLabelValues(lenderID, status).Inc()
}
