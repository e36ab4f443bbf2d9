package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics, exposed on /metrics.
var (
	metricSubmissionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_submissions_finished_total",
		Help: "Submissions reaching a terminal status, by status.",
	}, []string{"status"})

	metricSubmissionsRescued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipt_submissions_rescued_total",
		Help: "Stuck submissions reverted to queued by the healing pass.",
	})

	metricQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "receipt_queue_depth",
		Help: "Queued submissions remaining after the last runner pass.",
	})

	metricFetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipt_portal_fetch_retries_total",
		Help: "Portal fetch attempts that failed and were retried.",
	})
)
