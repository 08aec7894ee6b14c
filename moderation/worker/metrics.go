package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var postsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "safespace_posts_received",
	Help: "Number of post messages received from the bus",
})

var postsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "safespace_posts_processed",
	Help: "Number of posts fully moderated (stored and published)",
})

var postsErrored = promauto.NewCounter(prometheus.CounterOpts{
	Name: "safespace_posts_errored",
	Help: "Number of posts that failed a processing step",
})

var reportStoreFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "safespace_report_store_failures",
	Help: "Number of moderation reports that could not be persisted",
})

var resultStatus = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "safespace_result_status",
	Help: "Moderation results by status",
}, []string{"status"})

var classifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "safespace_classify_duration_seconds",
	Help:    "Duration of post classification, including provider fallback",
	Buckets: prometheus.ExponentialBucketsRange(0.01, 60, 12),
})
