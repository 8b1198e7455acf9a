package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchedulerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webinarbuddy_scheduler_runs_total",
		Help: "Total scheduler invocations, labelled by outcome.",
	}, []string{"outcome"})

	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webinarbuddy_emails_sent_total",
		Help: "Total emails sent, labelled by email type.",
	}, []string{"type"})

	EmailsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webinarbuddy_emails_failed_total",
		Help: "Total email attempts that failed after retries, labelled by email type.",
	}, []string{"type"})

	EmailsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webinarbuddy_emails_skipped_total",
		Help: "Total candidate emails skipped, labelled by type and reason.",
	}, []string{"type", "reason"})

	GeneratorCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webinarbuddy_generator_calls_total",
		Help: "Total content generator API calls, labelled by status.",
	}, []string{"status"})

	SchedulerRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "webinarbuddy_scheduler_run_duration_seconds",
		Help:    "End-to-end scheduler run duration in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
)
