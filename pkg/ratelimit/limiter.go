// Package ratelimit implements the census API request budget as a two-tier
// fixed-window limiter. Every outbound request is gated by Acquire, which
// blocks until the current windows have room for one more request.
package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit gating.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "census_rate_limit_waits_total",
		Help: "Total number of requests that had to wait for a window reset",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "census_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a rate limit window to reset",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	rateLimitRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "census_rate_limit_requests_total",
		Help: "Total number of requests admitted through the rate limiter",
	})
)

// Window is one (capacity, duration) budget tier.
type Window struct {
	// Capacity is the maximum number of requests inside one window.
	Capacity int

	// Duration is the length of the fixed window.
	Duration time.Duration
}

// DefaultWindows returns the census API request budget: 120 requests per
// 10 seconds and 200 requests per minute. These are tunable policy values,
// not a contract with the API.
func DefaultWindows() []Window {
	return []Window{
		{Capacity: 120, Duration: 10 * time.Second},
		{Capacity: 200, Duration: 60 * time.Second},
	}
}

// windowState tracks one tier's counters. Counters reset when the window
// elapses or after a saturated window has been waited out.
type windowState struct {
	Window
	requestsMade int
	start        time.Time
}

// Limiter enforces the request budget across all configured windows.
//
// This is a fixed-window limiter, not a sliding window or token bucket:
// a burst straddling a window boundary can briefly exceed the nominal rate.
// That limitation is accepted for a single sequential fetching process.
type Limiter struct {
	mu      sync.Mutex
	windows []*windowState
	logger  zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a limiter from explicit window tiers. Windows are checked
// shortest-first regardless of argument order.
func New(windows []Window, logger zerolog.Logger) (*Limiter, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("at least one rate limit window is required")
	}

	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Duration < sorted[j].Duration })

	now := time.Now()
	states := make([]*windowState, 0, len(sorted))
	for _, w := range sorted {
		if w.Capacity <= 0 {
			return nil, fmt.Errorf("window capacity must be positive (got %d)", w.Capacity)
		}
		if w.Duration <= 0 {
			return nil, fmt.Errorf("window duration must be positive (got %s)", w.Duration)
		}
		states = append(states, &windowState{Window: w, start: now})
	}

	return &Limiter{
		windows: states,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Acquire blocks until one more request fits the budget, then records that a
// request was made. The wait can last up to the longest window duration.
// Context cancellation aborts the wait without recording a request.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, w := range l.windows {
		if err := l.admit(ctx, w); err != nil {
			return err
		}
	}

	for _, w := range l.windows {
		w.requestsMade++
	}
	rateLimitRequestsTotal.Inc()

	return nil
}

// admit waits out a saturated window and resets its counters.
func (l *Limiter) admit(ctx context.Context, w *windowState) error {
	now := l.now()
	elapsed := now.Sub(w.start)

	// Window already elapsed: start a fresh one.
	if elapsed >= w.Duration {
		w.start = now
		w.requestsMade = 0
		return nil
	}

	if w.requestsMade < w.Capacity {
		return nil
	}

	wait := w.Duration - elapsed
	rateLimitWaitsTotal.Inc()
	rateLimitWaitSeconds.Observe(wait.Seconds())

	l.logger.Info().
		Int("capacity", w.Capacity).
		Dur("window", w.Duration).
		Dur("wait", wait).
		Msg("Request budget exhausted - waiting for window reset")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait aborted: %w", ctx.Err())
	case <-timer.C:
	}

	w.start = l.now()
	w.requestsMade = 0
	return nil
}

// RequestsMade reports the request count of the shortest window. Exposed for
// observability and tests.
func (l *Limiter) RequestsMade() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.windows[0].requestsMade
}
