package marketdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseCSV_Simple(t *testing.T) {
	in := `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-03,101,103,100,102,101.5,2000
2024-01-02,100,102,99,101,100.5,1000
`
	bars, err := ParseCSV(strings.NewReader(in), "AAPL")
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].Date.Equal(date(2024, 1, 2)) {
		t.Errorf("bars not sorted: first date %v", bars[0].Date)
	}
	b := bars[1]
	if b.Ticker != "AAPL" || b.Open != 101 || b.High != 103 || b.Low != 100 || b.Close != 102 || b.Volume != 2000 {
		t.Errorf("unexpected bar: %+v", b)
	}
}

func TestParseCSV_YFinanceLayout(t *testing.T) {
	in := `Price,Close,High,Low,Open,Volume
Ticker,AAPL,AAPL,AAPL,AAPL,AAPL
Date,,,,,
2020-01-02,72.7,72.9,71.6,71.8,135480400
2020-01-03,72.0,72.9,71.9,72.0,146322800
`
	bars, err := ParseCSV(strings.NewReader(in), "AAPL")
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 72.7 || bars[0].Open != 71.8 {
		t.Errorf("columns resolved incorrectly: %+v", bars[0])
	}
}

func TestParseCSV_SkipsBadRowsAndDuplicates(t *testing.T) {
	in := `Date,Close
2024-01-02,10
not-a-date,11
2024-01-03,null
2024-01-04,NaN
2024-01-02,12
2024-01-05,13
`
	bars, err := ParseCSV(strings.NewReader(in), "X")
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d: %+v", len(bars), bars)
	}
	if bars[0].Close != 10 || bars[1].Close != 13 {
		t.Errorf("unexpected bars: %+v", bars)
	}
	// missing OHL fall back to close
	if bars[0].Open != 10 || bars[0].Volume != 0 {
		t.Errorf("unexpected defaults: %+v", bars[0])
	}
}

func TestParseCSV_Errors(t *testing.T) {
	if _, err := ParseCSV(strings.NewReader(""), "X"); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := ParseCSV(strings.NewReader("Date,Open\n2024-01-02,1\n"), "X"); err == nil {
		t.Error("expected error for missing Close column")
	}
}

func TestCSVFetcher_Fetch(t *testing.T) {
	dir := t.TempDir()
	content := "Date,Open,High,Low,Close,Volume\n" +
		"2024-01-02,1,1,1,1,1\n" +
		"2024-01-03,2,2,2,2,2\n" +
		"2024-01-04,3,3,3,3,3\n" +
		"2024-01-05,4,4,4,4,4\n"
	if err := os.WriteFile(filepath.Join(dir, "SPY.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f := NewCSVFetcher(dir)
	series, err := f.Fetch(context.Background(), "SPY", date(2024, 1, 3), date(2024, 1, 4))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if series.Len() != 2 || series.Close(0) != 2 || series.Close(1) != 3 {
		t.Errorf("unexpected series: %+v", series)
	}
	if series.Ticker != "SPY" {
		t.Errorf("ticker: got %q", series.Ticker)
	}

	_, err = f.Fetch(context.Background(), "SPY", date(2025, 1, 1), date(2025, 2, 1))
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData outside range, got %v", err)
	}

	_, err = f.Fetch(context.Background(), "MISSING", date(2024, 1, 1), date(2024, 2, 1))
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData for missing file, got %v", err)
	}
}
