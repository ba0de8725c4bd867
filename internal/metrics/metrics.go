package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal tracks total DNS queries processed
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stubdns_queries_total",
		Help: "Total number of DNS queries processed",
	}, []string{"qtype", "rcode", "mode"})

	// QueryDuration tracks query processing time
	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stubdns_query_duration_seconds",
		Help:    "Histogram of query processing duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	// RecursiveIterations tracks how many referral iterations a recursive
	// lookup took before terminating.
	RecursiveIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stubdns_recursive_iterations",
		Help:    "Number of NS referral iterations per recursive lookup",
		Buckets: prometheus.LinearBuckets(0, 2, 9), // 0..16
	})

	// RateLimitDropped counts queries rejected by the rate limiter.
	RateLimitDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stubdns_ratelimit_dropped_total",
		Help: "Total number of queries dropped by the rate limiter",
	})

	// BGPAnnounced indicates if the node is currently announcing routes via BGP
	BGPAnnounced = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stubdns_bgp_announced",
		Help: "Binary indicator of BGP announcement status (1 = announcing, 0 = withdrawn)",
	})
)
