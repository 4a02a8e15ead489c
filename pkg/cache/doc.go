// Package cache provides response caching for the census API with Redis backend.
//
// The cache manager stores raw response bodies under deterministic keys built
// from the endpoint path and query parameters. The census API publishes no
// ETag or Expires headers, so entries expire on a fixed TTL chosen by the
// client configuration.
//
// Response caching sits in front of the rate limiter: a cache hit answers a
// repeat page request without consuming any request budget. The durable
// resource store (pkg/store) remains the authoritative record of fetched
// items; this cache only dampens short-term repeat traffic.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient)
//
//	// Create cache key
//	key := cache.Key{
//		Endpoint: "population-types/UR/dimensions",
//		Params:   url.Values{"q": []string{"religion"}},
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from the API
//	}
//
//	// Store a response body
//	entry = cache.NewEntry(body, 200, 10*time.Minute)
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - census_response_cache_hits_total{layer="redis"} - Cache hits
//   - census_response_cache_misses_total - Cache misses
//   - census_response_cache_size_bytes{layer="redis"} - Cache size
//   - census_response_cache_errors_total{operation} - Cache operation errors
package cache
