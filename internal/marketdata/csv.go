package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"backtest-lab/internal/domain"
)

// CSVFetcher reads <dir>/<TICKER>.csv files.
//
// Accepted layouts:
//   - a single header row naming Date, Open, High, Low, Close, Volume (any order, extra columns ignored)
//   - the yfinance layout: a "Price" header row followed by "Ticker" and "Date" rows before data
//
// Rows with unparseable dates or prices are skipped.
type CSVFetcher struct {
	dir string
}

// NewCSVFetcher creates a fetcher over dir.
func NewCSVFetcher(dir string) *CSVFetcher {
	return &CSVFetcher{dir: dir}
}

// Fetch reads the ticker's file and returns the bars within [start, end].
func (f *CSVFetcher) Fetch(ctx context.Context, ticker string, start, end time.Time) (domain.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return domain.PriceSeries{}, err
	}

	path := filepath.Join(f.dir, ticker+".csv")
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.PriceSeries{}, fmt.Errorf("%w: %s", ErrNoData, path)
		}
		return domain.PriceSeries{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	bars, err := ParseCSV(file, ticker)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return seriesInRange(ticker, bars, start, end)
}

// column positions resolved from the header.
type columns struct {
	date, open, high, low, close, volume int
}

// ParseCSV reads OHLCV rows from r, returning bars sorted by date with duplicates dropped.
func ParseCSV(r io.Reader, ticker string) ([]domain.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var bars []domain.Bar
	seen := make(map[string]struct{})
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		b, ok := parseRow(record, cols, ticker)
		if !ok {
			continue
		}
		day := b.Date.Format(domain.DateLayout)
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{date: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date", "price", "timestamp":
			// yfinance labels the index column "Price" in its first header row
			if cols.date < 0 {
				cols.date = i
			}
		case "open":
			cols.open = i
		case "high":
			cols.high = i
		case "low":
			cols.low = i
		case "close":
			cols.close = i
		case "volume":
			cols.volume = i
		}
	}
	if cols.date < 0 {
		cols.date = 0
	}
	if cols.close < 0 {
		return cols, fmt.Errorf("header has no Close column: %v", header)
	}
	return cols, nil
}

// parseRow converts a record; ok is false for metadata rows and unusable data.
func parseRow(record []string, cols columns, ticker string) (domain.Bar, bool) {
	date, ok := parseDate(field(record, cols.date))
	if !ok {
		return domain.Bar{}, false
	}
	closePrice, ok := parseFloat(field(record, cols.close))
	if !ok {
		return domain.Bar{}, false
	}

	b := domain.Bar{Ticker: ticker, Date: date, Close: closePrice}
	b.Open = optionalFloat(record, cols.open, closePrice)
	b.High = optionalFloat(record, cols.high, closePrice)
	b.Low = optionalFloat(record, cols.low, closePrice)
	b.Volume = optionalFloat(record, cols.volume, 0)
	return b, true
}

var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func optionalFloat(record []string, idx int, fallback float64) float64 {
	if v, ok := parseFloat(field(record, idx)); ok {
		return v
	}
	return fallback
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// seriesInRange filters sorted bars to [start, end] and wraps them in a series.
func seriesInRange(ticker string, bars []domain.Bar, start, end time.Time) (domain.PriceSeries, error) {
	var out []domain.Bar
	for _, b := range bars {
		if inRange(b.Date, start, end) {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return domain.PriceSeries{}, fmt.Errorf("%w: %s between %s and %s", ErrNoData, ticker,
			start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	}
	return domain.PriceSeries{Ticker: ticker, Bars: out}, nil
}
