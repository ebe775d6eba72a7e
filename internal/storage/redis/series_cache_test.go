package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	goredis "github.com/redis/go-redis/v9"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

// setupTestRedis starts a Redis container and returns a connected client.
func setupTestRedis(t *testing.T) (*goredis.Client, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
				wait.ForListeningPort("6379/tcp"),
			),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb, err := NewClient(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)

	return rdb, func() {
		rdb.Close()
		_ = container.Terminate(ctx)
	}
}

func day(d int) time.Time {
	return time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC)
}

func TestSeriesCache_RoundTrip(t *testing.T) {
	rdb, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewSeriesCache(rdb, time.Minute)
	ctx := context.Background()

	_, err := cache.Get(ctx, "SPY", day(1), day(5))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	series := domain.NewPriceSeries([]domain.Bar{
		{Ticker: "SPY", Date: day(1), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Ticker: "SPY", Date: day(2), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 200},
	})
	require.NoError(t, cache.Set(ctx, series, day(1), day(5)))

	got, err := cache.Get(ctx, "SPY", day(1), day(5))
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, "SPY", got.Ticker)
	assert.True(t, got.Bars[1].Date.Equal(day(2)))
	assert.Equal(t, 2.0, got.Close(1))

	ttl, err := rdb.TTL(ctx, seriesKey("SPY", day(1), day(5))).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl %v", ttl)

	require.NoError(t, cache.Invalidate(ctx, "SPY", day(1), day(5)))
	_, err = cache.Get(ctx, "SPY", day(1), day(5))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSeriesCache_CorruptEntryIsMiss(t *testing.T) {
	rdb, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewSeriesCache(rdb, 0)
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, seriesKey("SPY", day(1), day(2)), "not json", time.Minute).Err())
	_, err := cache.Get(ctx, "SPY", day(1), day(2))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSeriesKey(t *testing.T) {
	if got := seriesKey("AAPL", day(1), day(29)); got != "backtest:series:AAPL_2024-02-01_2024-02-29" {
		t.Errorf("unexpected key %q", got)
	}
}
