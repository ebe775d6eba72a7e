package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/domain"
	"backtest-lab/internal/storage"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func makeBar(ticker string, d int, close float64) domain.Bar {
	return domain.Bar{
		Ticker: ticker, Date: day(d),
		Open: close - 1, High: close + 1, Low: close - 2, Close: close, Volume: 1e6,
	}
}

func TestBarStore_InsertBulkAndGetAll(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(conn)
	ctx := context.Background()

	bars := []domain.Bar{makeBar("SPY", 3, 471), makeBar("SPY", 2, 470), makeBar("QQQ", 2, 400)}
	require.NoError(t, store.InsertBulk(ctx, bars))

	got, err := store.GetAll(ctx, "SPY")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0].Date.Equal(day(2)))
	assert.Equal(t, 470.0, got[0].Close)
	assert.Equal(t, 469.0, got[0].Open)
	assert.Equal(t, 1e6, got[0].Volume)
	assert.True(t, got[1].Date.Equal(day(3)))
}

func TestBarStore_GetRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(conn)
	ctx := context.Background()

	var bars []domain.Bar
	for d := 1; d <= 10; d++ {
		bars = append(bars, makeBar("SPY", d, float64(400+d)))
	}
	require.NoError(t, store.InsertBulk(ctx, bars))

	got, err := store.GetRange(ctx, "SPY", day(4), day(7))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 404.0, got[0].Close)
	assert.Equal(t, 407.0, got[3].Close)
}

func TestBarStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []domain.Bar{makeBar("SPY", 2, 470)}))

	err := store.InsertBulk(ctx, []domain.Bar{makeBar("SPY", 3, 471), makeBar("SPY", 2, 999)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []domain.Bar{makeBar("QQQ", 5, 1), makeBar("QQQ", 5, 2)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// failed batches insert nothing
	got, err := store.GetAll(ctx, "SPY")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestBarStore_Tickers(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []domain.Bar{
		makeBar("SPY", 2, 1), makeBar("AAPL", 2, 1), makeBar("SPY", 3, 1),
	}))

	tickers, err := store.Tickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "SPY"}, tickers)
}
