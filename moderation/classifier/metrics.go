package classifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "safespace_provider_requests",
	Help: "Number of classification provider API requests, by status code",
}, []string{"statusCode"})

var providerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "safespace_provider_duration_seconds",
	Help:    "Duration of classification provider API requests",
	Buckets: prometheus.ExponentialBucketsRange(0.1, 30, 10),
})

var fallbackClassifications = promauto.NewCounter(prometheus.CounterOpts{
	Name: "safespace_fallback_classifications",
	Help: "Number of classifications served by the keyword fallback",
})
