package reporting

import (
	"strings"
	"testing"
	"time"

	"backtest-lab/internal/domain"
)

func seriesOn(dates []time.Time, closes []float64) domain.PriceSeries {
	bars := make([]domain.Bar, len(dates))
	for i := range dates {
		bars[i] = domain.Bar{Ticker: "SPY", Date: dates[i], Close: closes[i]}
	}
	return domain.NewPriceSeries(bars)
}

func TestCheckDataQuality_Pass(t *testing.T) {
	q := CheckDataQuality(testPrices(), 3)
	if !q.AllPass {
		t.Fatalf("expected all checks to pass: %+v", q.Checks)
	}
	if len(q.Checks) != 3 {
		t.Errorf("expected 3 checks, got %d", len(q.Checks))
	}
}

func TestCheckDataQuality_Failures(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	prices := seriesOn([]time.Time{d(1), d(2), d(20)}, []float64{10, 0, 12})

	q := CheckDataQuality(prices, 5)
	if q.AllPass {
		t.Fatal("expected failures")
	}

	byName := map[string]QualityCheck{}
	for _, c := range q.Checks {
		byName[c.Name] = c
	}
	if c := byName["Warm-up bars"]; c.Pass || c.Actual != "3" {
		t.Errorf("warm-up check = %+v", c)
	}
	if c := byName["Largest gap"]; c.Pass || c.Actual != "18 days before 2024-01-20" {
		t.Errorf("gap check = %+v", c)
	}
	if c := byName["Non-positive closes"]; c.Pass || c.Actual != "1" {
		t.Errorf("close check = %+v", c)
	}
}

func TestRenderMarkdown_DataQuality(t *testing.T) {
	r := NewGenerator(1000, 0).WithRequiredBars(10).Generate(testPrices(), testOutcomes(), nil)
	md := RenderMarkdown(r)
	if !strings.Contains(md, "| Warm-up bars | >= 11 | 4 | FAIL |") {
		t.Errorf("missing failed warm-up row:\n%s", md)
	}
	if !strings.Contains(md, "**Some checks failed.**") {
		t.Errorf("missing failure notice:\n%s", md)
	}
}
