package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RejectedLabel is the card_type label used for requests that matched no tier.
const RejectedLabel = "rejected"

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

	CardRequestsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_requests_classified_total",
			Help: "Card requests classified, by resulting card type",
		},
		[]string{"card_type"},
	)

	CardPipelineFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_pipeline_failures_total",
			Help: "Card request pipeline runs that ended in a failure",
		},
		[]string{"operation", "error_code"},
	)
)

// ObserveClassification counts one classified request.
func ObserveClassification(cardType string) {
	if cardType == "" {
		cardType = RejectedLabel
	}
	CardRequestsClassified.WithLabelValues(cardType).Inc()
}
