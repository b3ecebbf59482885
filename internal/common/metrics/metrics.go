// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"drift-workers/internal/risk"
)

// Metrics holds every Prometheus collector of the process. It satisfies the
// recorder interfaces of the deal service and the notifiers.
type Metrics struct {
	WorkerJobsCompleted *prometheus.CounterVec
	WorkerJobsFailed    *prometheus.CounterVec
	WorkerJobDuration   *prometheus.HistogramVec
	WorkerJobsActive    *prometheus.GaugeVec

	RiskAssessments   *prometheus.CounterVec
	RiskScores        prometheus.Histogram
	RescoreDuration   *prometheus.HistogramVec
	TrackedDeals      prometheus.Gauge
	NotificationsSent *prometheus.CounterVec
}

// New registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WorkerJobsCompleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_jobs_completed_total",
				Help: "Total number of jobs completed by worker",
			},
			[]string{"task_type"},
		),
		WorkerJobsFailed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worker_jobs_failed_total",
				Help: "Total number of jobs failed by worker",
			},
			[]string{"task_type", "error_code"},
		),
		WorkerJobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "worker_job_duration_seconds",
				Help: "Duration of job processing in seconds",
			},
			[]string{"task_type"},
		),
		WorkerJobsActive: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "worker_jobs_active",
				Help: "Number of active jobs per worker",
			},
			[]string{"task_type"},
		),
		RiskAssessments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drift_risk_assessments_total",
				Help: "Deals scored, by resulting risk level",
			},
			[]string{"level"},
		),
		RiskScores: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "drift_risk_score",
			Help:    "Distribution of computed risk scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
		RescoreDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "drift_rescore_duration_seconds",
				Help:    "Duration of a rescoring pass",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"trigger"},
		),
		TrackedDeals: f.NewGauge(prometheus.GaugeOpts{
			Name: "drift_tracked_deals",
			Help: "Deals held by the session",
		}),
		NotificationsSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drift_notifications_total",
				Help: "Notification delivery attempts",
			},
			[]string{"type", "channel", "status"},
		),
	}
}

func (m *Metrics) ObserveAssessment(level risk.Level, score int) {
	m.RiskAssessments.WithLabelValues(string(level)).Inc()
	m.RiskScores.Observe(float64(score))
}

func (m *Metrics) ObserveRescore(trigger string, _ int, elapsed time.Duration) {
	m.RescoreDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
}

func (m *Metrics) SetTrackedDeals(n int) {
	m.TrackedDeals.Set(float64(n))
}

func (m *Metrics) ObserveNotification(kind, channel, status string) {
	m.NotificationsSent.WithLabelValues(kind, channel, status).Inc()
}

// JobStarted marks a job active and returns the function that records its
// outcome. An empty errorCode counts as completed.
func (m *Metrics) JobStarted(taskType string) func(errorCode string) {
	start := time.Now()
	m.WorkerJobsActive.WithLabelValues(taskType).Inc()
	return func(errorCode string) {
		m.WorkerJobsActive.WithLabelValues(taskType).Dec()
		m.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		if errorCode == "" {
			m.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			return
		}
		m.WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
	}
}
