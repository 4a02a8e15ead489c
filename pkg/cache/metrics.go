package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks response cache hits by layer (redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_response_cache_hits_total",
			Help: "Total number of census response cache hits",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheMisses tracks response cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "census_response_cache_misses_total",
			Help: "Total number of census response cache misses",
		},
	)

	// CacheSize tracks cache size in bytes by layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "census_response_cache_size_bytes",
			Help: "Current size of census response cache in bytes",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_response_cache_errors_total",
			Help: "Total number of response cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
