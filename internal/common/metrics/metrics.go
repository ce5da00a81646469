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
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of jobs currently being processed per worker",
		},
		[]string{"task_type"},
	)

	TemplateSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sow_template_selections_total",
			Help: "Primary template chosen per selection",
		},
		[]string{"template_id", "engine_version"},
	)

	SelectionConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sow_selection_confidence",
			Help:    "Confidence score of primary template selections",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	WindZoneLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sow_wind_zone_lookups_total",
			Help: "Wind zone lookups by source (cache, database) and result",
		},
		[]string{"source", "result"},
	)
)
