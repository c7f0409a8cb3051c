package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trendsentry/service/internal/cache"
	"github.com/trendsentry/service/pkg/models"
)

// setupRedis spins up a Redis container and returns a connected cache.
func setupRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, err := cache.NewRedisCache("redis://" + host + ":" + port.Port())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestRedisCache_Ping(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := setupRedis(t)

	require.NoError(t, c.Ping(context.Background()))
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := setupRedis(t)
	ctx := context.Background()

	key := cache.LatestReportKey(models.ReportWeekly)
	require.NoError(t, c.Set(ctx, key, []byte(`{"kind":"weekly"}`), time.Minute))

	val, found, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte(`{"kind":"weekly"}`), val)

	require.NoError(t, c.Delete(ctx, key))

	_, found, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_GetMiss(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := setupRedis(t)

	val, found, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestRedisCache_IncrWithExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := setupRedis(t)
	ctx := context.Background()

	key := cache.RateLimitKey("operator")
	for want := int64(1); want <= 3; want++ {
		got, err := c.IncrWithExpiry(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// A different client counts independently.
	other, err := c.IncrWithExpiry(ctx, cache.RateLimitKey("10.0.0.1"), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestRedisCache_IncrWindowResets(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	c := setupRedis(t)
	ctx := context.Background()

	key := cache.RateLimitKey("burst")
	_, err := c.IncrWithExpiry(ctx, key, time.Second)
	require.NoError(t, err)

	// A mid-window increment must not push the expiry out.
	time.Sleep(600 * time.Millisecond)
	_, err = c.IncrWithExpiry(ctx, key, time.Second)
	require.NoError(t, err)

	time.Sleep(600 * time.Millisecond)
	count, err := c.IncrWithExpiry(ctx, key, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "counter resets once the first window lapses")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "ratelimit:operator", cache.RateLimitKey("operator"))
	assert.Equal(t, "report:latest:weekly", cache.LatestReportKey(models.ReportWeekly))
	assert.Equal(t, "feedback:insights", cache.InsightsKey())
}
