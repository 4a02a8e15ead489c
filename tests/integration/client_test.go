//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ukcensus-tools/census-client/internal/testutil"
	"github.com/ukcensus-tools/census-client/pkg/cache"
	"github.com/ukcensus-tools/census-client/pkg/client"
	"github.com/ukcensus-tools/census-client/pkg/ratelimit"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() { container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})
	t.Cleanup(func() { redisClient.Close() })

	return redisClient
}

func newCachedClient(t *testing.T, mock *testutil.MockCensus, redisClient *redis.Client) (*client.Client, *ratelimit.Limiter) {
	t.Helper()

	limiter, err := ratelimit.New([]ratelimit.Window{
		{Capacity: 1000, Duration: time.Minute},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ratelimit.New() failed: %v", err)
	}

	cfg := client.DefaultConfig(mock.URL(), limiter)
	cfg.ResponseCache = cache.NewManager(redisClient)
	cfg.ResponseCacheTTL = time.Minute

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() failed: %v", err)
	}
	return c, limiter
}

// TestResponseCacheFlow verifies the full flow: rate limit, request, cache
// write, and cache hit without budget spend on the repeat.
func TestResponseCacheFlow(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockCensus()
	defer mock.Close()
	mock.SetRawJSON("/population-types", `{"total_count": 1, "items": [{"name": "UR"}]}`)

	c, limiter := newCachedClient(t, mock, redisClient)
	ctx := context.Background()

	payload, err := c.GetJSON(ctx, "population-types", nil)
	if err != nil {
		t.Fatalf("GetJSON() failed: %v", err)
	}
	if payload["total_count"] != float64(1) {
		t.Errorf("total_count = %v, want 1", payload["total_count"])
	}
	if mock.Requests() != 1 {
		t.Fatalf("first call issued %d requests, want 1", mock.Requests())
	}
	if limiter.RequestsMade() != 1 {
		t.Fatalf("first call spent %d budget, want 1", limiter.RequestsMade())
	}

	// Repeat request: served from Redis, no network call, no budget spent.
	payload, err = c.GetJSON(ctx, "population-types", nil)
	if err != nil {
		t.Fatalf("cached GetJSON() failed: %v", err)
	}
	if payload["total_count"] != float64(1) {
		t.Errorf("cached total_count = %v, want 1", payload["total_count"])
	}
	if mock.Requests() != 1 {
		t.Errorf("cached call issued a network request, total %d", mock.Requests())
	}
	if limiter.RequestsMade() != 1 {
		t.Errorf("cached call spent budget, total %d", limiter.RequestsMade())
	}
}

// TestResponseCacheExpiry verifies an expired entry falls through to the API.
func TestResponseCacheExpiry(t *testing.T) {
	redisClient := setupRedis(t)

	mock := testutil.NewMockCensus()
	defer mock.Close()
	mock.SetRawJSON("/area-types", `{"total_count": 0, "items": []}`)

	limiter, err := ratelimit.New([]ratelimit.Window{
		{Capacity: 1000, Duration: time.Minute},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ratelimit.New() failed: %v", err)
	}

	cfg := client.DefaultConfig(mock.URL(), limiter)
	cfg.ResponseCache = cache.NewManager(redisClient)
	cfg.ResponseCacheTTL = time.Second

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() failed: %v", err)
	}

	ctx := context.Background()
	if _, err := c.GetJSON(ctx, "area-types", nil); err != nil {
		t.Fatalf("GetJSON() failed: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := c.GetJSON(ctx, "area-types", nil); err != nil {
		t.Fatalf("GetJSON() after expiry failed: %v", err)
	}
	if got := mock.Requests(); got != 2 {
		t.Errorf("expired entry should refetch, got %d requests, want 2", got)
	}
}
