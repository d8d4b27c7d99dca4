package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ReverseJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reverse_jobs_total",
			Help: "Reconciliation case outcomes by status (created/skipped/failed)",
		},
		[]string{"status"},
	)

	CodesSpoiledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "qr_codes_spoiled_total",
			Help: "QR codes marked spoiled by reconciliation requests",
		},
	)

	WorkerNotifyFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_notify_failures_total",
			Help: "Failed best-effort notifications to the replacement worker",
		},
	)
)
