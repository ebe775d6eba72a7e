package strategy

import (
	"testing"
	"time"

	"backtest-lab/internal/domain"
)

// Helper to create a daily price series from closes
func makePriceSeries(closes []float64) domain.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, len(closes))
	for i, c := range closes {
		bars[i] = domain.Bar{
			Ticker: "TEST",
			Date:   start.AddDate(0, 0, i),
			Close:  c,
		}
	}
	return domain.NewPriceSeries(bars)
}

func TestRollingMean(t *testing.T) {
	got := rollingMean([]float64{1, 2, 3, 4, 5}, 3)

	for i := 0; i < 2; i++ {
		if got[i] == got[i] { // NaN check
			t.Errorf("index %d: expected NaN during warm-up, got %v", i, got[i])
		}
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if got[i+2] != w {
			t.Errorf("index %d: expected %v, got %v", i+2, w, got[i+2])
		}
	}
}

func TestPctChange(t *testing.T) {
	got := pctChange([]float64{100, 110, 99, 0, 50}, 1)

	if got[0] == got[0] {
		t.Errorf("expected NaN for first sample, got %v", got[0])
	}
	if got[1] < 0.0999999 || got[1] > 0.1000001 {
		t.Errorf("expected 0.1, got %v", got[1])
	}
	if got[2] >= 0 {
		t.Errorf("expected negative change, got %v", got[2])
	}
	// change from a zero close is undefined
	if got[4] == got[4] {
		t.Errorf("expected NaN after zero base, got %v", got[4])
	}
}

func TestMACrossover_LongWhenShortAboveLong(t *testing.T) {
	// Rising then falling prices
	prices := makePriceSeries([]float64{10, 10, 10, 11, 12, 13, 12, 10, 8, 6})
	strategy := NewMACrossoverStrategy(2, 4)

	signals, err := strategy.GenerateSignals(prices)
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}
	if len(signals) != prices.Len() {
		t.Fatalf("expected %d signals, got %d", prices.Len(), len(signals))
	}

	// Warm-up of the long window is always flat
	for i := 0; i < 3; i++ {
		if signals[i] != domain.SignalFlat {
			t.Errorf("bar %d: expected FLAT during warm-up, got %s", i, signals[i])
		}
	}
	// bar 4: short=(11+12)/2=11.5, long=(10+10+11+12)/4=10.75
	if signals[4] != domain.SignalLong {
		t.Errorf("bar 4: expected LONG, got %s", signals[4])
	}
	// bar 9: short=(8+6)/2=7, long=(10+8+6+12)/4... falling market
	if signals[9] != domain.SignalFlat {
		t.Errorf("bar 9: expected FLAT, got %s", signals[9])
	}
}

func TestMACrossover_ShortSeriesAllFlat(t *testing.T) {
	prices := makePriceSeries([]float64{1, 2, 3})
	strategy := NewMACrossoverStrategy(50, 200)

	signals, err := strategy.GenerateSignals(prices)
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}
	if signals.CountLong() != 0 {
		t.Errorf("expected no LONG signals before windows fill, got %d", signals.CountLong())
	}
}

func TestMomentum_Signals(t *testing.T) {
	prices := makePriceSeries([]float64{100, 101, 102, 99, 98, 105})
	strategy := NewMomentumStrategy(2)

	signals, err := strategy.GenerateSignals(prices)
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}

	want := domain.SignalSeries{
		domain.SignalFlat, // undefined
		domain.SignalFlat, // undefined
		domain.SignalLong, // 102/100
		domain.SignalFlat, // 99/101
		domain.SignalFlat, // 98/102
		domain.SignalLong, // 105/99
	}
	for i := range want {
		if signals[i] != want[i] {
			t.Errorf("bar %d: expected %s, got %s", i, want[i], signals[i])
		}
	}
}

func TestBuyAndHold_AllLong(t *testing.T) {
	prices := makePriceSeries([]float64{1, 2, 3, 4})

	signals, err := NewBuyAndHold().GenerateSignals(prices)
	if err != nil {
		t.Fatalf("GenerateSignals failed: %v", err)
	}
	if signals.CountLong() != 4 {
		t.Errorf("expected 4 LONG signals, got %d", signals.CountLong())
	}
}

func TestStrategies_DoNotMutateInput(t *testing.T) {
	closes := []float64{5, 6, 7, 8, 9, 10, 11}
	prices := makePriceSeries(closes)

	generators := []SignalGenerator{
		NewMACrossoverStrategy(2, 3),
		NewMomentumStrategy(3),
		NewBuyAndHold(),
	}
	for _, g := range generators {
		if _, err := g.GenerateSignals(prices); err != nil {
			t.Fatalf("%s: GenerateSignals failed: %v", g.ID(), err)
		}
	}
	for i, c := range closes {
		if prices.Close(i) != c {
			t.Errorf("%d: close mutated from %v to %v", i, c, prices.Close(i))
		}
	}
}

func TestStrategyIDs(t *testing.T) {
	tests := []struct {
		gen  SignalGenerator
		want string
	}{
		{NewMACrossoverStrategy(50, 200), "MA_CROSSOVER_50_200"},
		{NewMomentumStrategy(120), "MOMENTUM_120"},
		{NewBuyAndHold(), "BUY_AND_HOLD"},
	}
	for _, tt := range tests {
		if got := tt.gen.ID(); got != tt.want {
			t.Errorf("expected ID %q, got %q", tt.want, got)
		}
	}
}
