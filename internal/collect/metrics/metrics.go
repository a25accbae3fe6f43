package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks outbound API calls by outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fecharvest_api_requests_total",
			Help: "Total number of FEC API requests",
		},
		[]string{"outcome"},
	)

	// RequestLatency tracks API call latency
	RequestLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fecharvest_api_latency_seconds",
			Help:    "FEC API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// EntitiesProcessed tracks entities routed per disposition
	EntitiesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fecharvest_entities_processed_total",
			Help: "Total number of entities processed, by disposition",
		},
		[]string{"disposition"},
	)

	// RetryQueueDepth tracks the current retry queue size
	RetryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fecharvest_retry_queue_depth",
			Help: "Entities currently waiting for a retry pass",
		},
	)

	// CurrentPass tracks the pass number of the active run
	CurrentPass = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fecharvest_current_pass",
			Help: "Pass number of the active collection run (0 = main pass)",
		},
	)

	// BackoffSeconds accumulates time spent waiting out rate-limit backoff
	BackoffSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fecharvest_rate_limit_backoff_seconds_total",
			Help: "Total seconds spent in rate-limit backoff",
		},
	)
)
