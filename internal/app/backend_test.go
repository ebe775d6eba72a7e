package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-lab/internal/config"
	"backtest-lab/internal/observability"
	"backtest-lab/internal/storage/memory"
)

func TestOpen_MemoryDefaults(t *testing.T) {
	dir := t.TempDir()
	csv := "Date,Open,High,Low,Close,Volume\n" +
		"2024-01-02,1,1,1,10,100\n" +
		"2024-01-03,1,1,1,11,100\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SPY.csv"), []byte(csv), 0o644))

	cfg := config.Default()
	cfg.Data.Dir = dir

	b, err := Open(context.Background(), cfg, nil, observability.NewMetrics("test", prometheus.NewRegistry()))
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &memory.BarStore{}, b.Bars)
	assert.IsType(t, &memory.SeriesCache{}, b.Cache)
	assert.IsType(t, &memory.RunStore{}, b.Runs)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	series, err := b.Loader.Fetch(context.Background(), "SPY", start, end)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, series.Closes())

	stored, err := b.Bars.GetAll(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestOpen_InvalidURLTemplate(t *testing.T) {
	cfg := config.Default()
	cfg.Data.URLTemplate = "https://example.com/quotes"

	_, err := Open(context.Background(), cfg, nil, nil)
	assert.Error(t, err)
}
