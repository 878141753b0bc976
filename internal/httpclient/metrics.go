package httpclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quotedesk",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Outbound requests by final outcome.",
	}, []string{"outcome"})

	retries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quotedesk",
		Subsystem: "client",
		Name:      "retries_total",
		Help:      "Retry attempts issued after retryable failures.",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quotedesk",
		Subsystem: "client",
		Name:      "cache_hits_total",
		Help:      "Reads served from the TTL cache.",
	})
)
