package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var enqueueDeferred = promauto.NewCounter(prometheus.CounterOpts{
	Name: "safespace_enqueue_deferred",
	Help: "Number of posts whose moderation was deferred because the bus publish failed",
})
