// Package client provides the core census API HTTP client with rate
// limiting, response caching, and error handling.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ukcensus-tools/census-client/pkg/cache"
	"github.com/ukcensus-tools/census-client/pkg/ratelimit"
)

// Prometheus metrics for census client operations.
var (
	censusRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "census_requests_total",
		Help: "Total census API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	censusRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "census_request_duration_seconds",
		Help:    "Census API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	censusEmptyResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "census_empty_responses_total",
		Help: "Total benign empty (HTTP 400) responses by endpoint",
	}, []string{"endpoint"})
)

// Client is the rate-limited census API client. All requests are sequential
// GETs gated by the shared limiter; an optional Redis-backed response cache
// short-circuits repeat requests without consuming request budget.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *ratelimit.Limiter
	respCache  *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the census API, e.g. "https://api.beta.ons.gov.uk/v1".
	BaseURL string

	// Limiter gates every outbound request. Required.
	Limiter *ratelimit.Limiter

	// ResponseCache is an optional short-TTL cache of raw response bodies.
	// Nil disables response caching.
	ResponseCache *cache.Manager

	// ResponseCacheTTL is the TTL for cached response bodies.
	ResponseCacheTTL time.Duration

	// Timeout for a single HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string, limiter *ratelimit.Limiter) Config {
	return Config{
		BaseURL:          baseURL,
		Limiter:          limiter,
		ResponseCacheTTL: 10 * time.Minute,
		Timeout:          30 * time.Second,
	}
}

// New creates a new census API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.ResponseCacheTTL <= 0 {
		cfg.ResponseCacheTTL = 10 * time.Minute
	}

	logger := log.With().Str("component", "census-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		limiter:   cfg.Limiter,
		respCache: cfg.ResponseCache,
		config:    cfg,
		logger:    logger,
	}, nil
}

// GetJSON performs a rate-limited GET against an endpoint path relative to
// the base URL and decodes the response body as a JSON object.
//
// Status handling:
//   - 200: decoded payload
//   - 400: benign empty result, returned as (nil, nil)
//   - anything else: *HTTPError, fatal for the current fetch
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	key := cache.Key{Endpoint: endpoint, Params: params}

	// A fresh cached body costs no request budget.
	if c.respCache != nil {
		entry, err := c.respCache.Get(ctx, key)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Response cache get error")
		}
		if entry != nil {
			return c.decode(endpoint, entry.Data)
		}
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquire request budget: %w", err)
	}

	startTime := time.Now()
	defer func() {
		censusRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(endpoint, params), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("params", params.Encode()).
		Msg("Executing census request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		censusRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, fmt.Errorf("census request %q: %w", endpoint, err)
	}
	defer resp.Body.Close()

	censusRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusOK:
		// Fall through to decode below.
	case resp.StatusCode == http.StatusBadRequest:
		// The census API answers 400 for combinations that yield no data.
		// Treated as an empty result, never as a failure.
		censusEmptyResponsesTotal.WithLabelValues(endpoint).Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Msg("Benign empty response (status 400)")
		return nil, nil
	default:
		c.logger.Error().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("Census request failed")
		return nil, &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body for %q: %w", endpoint, err)
	}

	if c.respCache != nil {
		entry := cache.NewEntry(body, resp.StatusCode, c.config.ResponseCacheTTL)
		if err := c.respCache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
		}
	}

	return c.decode(endpoint, body)
}

// decode unmarshals a response body into a generic JSON object.
func (c *Client) decode(endpoint string, body []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response for %q: %w", endpoint, err)
	}
	return payload, nil
}

// requestURL joins the base URL, endpoint path and query parameters.
func (c *Client) requestURL(endpoint string, params url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
