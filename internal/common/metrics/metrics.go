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

	// FlightSearches counts per-origin searches by outcome: ok, empty, error, timeout, cached.
	FlightSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_flight_searches_total",
			Help: "Flight searches issued per origin, by outcome",
		},
		[]string{"outcome"},
	)

	FlightSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "travel_flight_search_duration_seconds",
			Help:    "Latency of a single origin flight search",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	RankedBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "travel_ranked_batch_size",
			Help:    "Number of offers scored per ranking call",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	GroupsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "travel_groups_detected_total",
			Help: "Travel groups produced by clustering",
		},
	)

	PlansBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_group_plans_total",
			Help: "Group travel plans built, by result",
		},
		[]string{"result"},
	)

	FlowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "travel_flow_transitions_total",
			Help: "Group flow state transitions",
		},
		[]string{"from", "to"},
	)
)

// JobTimer tracks one job for the worker metrics above.
type JobTimer struct {
	taskType string
	timer    *prometheus.Timer
}

func StartJob(taskType string) *JobTimer {
	WorkerJobsActive.WithLabelValues(taskType).Inc()
	return &JobTimer{
		taskType: taskType,
		timer:    prometheus.NewTimer(WorkerJobDuration.WithLabelValues(taskType)),
	}
}

func (j *JobTimer) Completed() {
	j.finish()
	WorkerJobsCompleted.WithLabelValues(j.taskType).Inc()
}

func (j *JobTimer) Failed(errorCode string) {
	j.finish()
	WorkerJobsFailed.WithLabelValues(j.taskType, errorCode).Inc()
}

func (j *JobTimer) finish() {
	j.timer.ObserveDuration()
	WorkerJobsActive.WithLabelValues(j.taskType).Dec()
}
