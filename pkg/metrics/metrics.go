// Package metrics provides the centralized Prometheus metrics registry for
// the census client. All metrics are defined in their respective packages
// (client, cache, ratelimit, pagination, store, census) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the census client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - census_rate_limit_waits_total (Counter): Acquisitions that had to sleep for a window reset
//   - census_rate_limit_wait_seconds (Histogram): Time spent waiting on saturated windows
//   - census_rate_limit_requests_total (Counter): Request slots granted
//
// Request Metrics (pkg/client):
//   - census_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - census_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - census_empty_responses_total{endpoint} (Counter): Benign 400 responses treated as empty
//
// Response Cache Metrics (pkg/cache):
//   - census_response_cache_hits_total (Counter): Responses served from Redis
//   - census_response_cache_misses_total (Counter): Lookups that fell through to the API
//   - census_response_cache_errors_total{operation} (Counter): Cache operation errors
//
// Store Metrics (pkg/store):
//   - census_store_writes_total{table} (Counter): Rows written by table
//   - census_store_duplicate_writes_total{table} (Counter): Writes dropped by content-hash dedup
//   - census_store_reads_total{table} (Counter): Read queries by table
//
// Pipeline Metrics (pkg/census):
//   - census_stage_cache_hits_total{table} (Counter): Stages satisfied from the resource store
//   - census_stage_cache_misses_total{table} (Counter): Stages that fetched from the API
//   - census_stage_items_fetched_total{table} (Counter): Items fetched and persisted by table
//
// Example Prometheus Queries:
//
//   # Stage Cache Hit Rate
//   sum(rate(census_stage_cache_hits_total[5m])) /
//   (sum(rate(census_stage_cache_hits_total[5m])) + sum(rate(census_stage_cache_misses_total[5m])))
//
//   # Time Lost to Rate Limiting
//   rate(census_rate_limit_wait_seconds_sum[5m])
//
//   # Dedup Effectiveness
//   rate(census_store_duplicate_writes_total[5m]) / rate(census_store_writes_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(census_request_duration_seconds_bucket[5m]))
