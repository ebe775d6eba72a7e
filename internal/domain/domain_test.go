package domain

import (
	"errors"
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestPriceSeries_Validate(t *testing.T) {
	ok := NewPriceSeries([]Bar{
		{Ticker: "SPY", Date: day(2), Close: 1},
		{Ticker: "SPY", Date: day(3), Close: 2},
	})
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok.Ticker != "SPY" {
		t.Errorf("ticker: got %q", ok.Ticker)
	}

	tests := []struct {
		name string
		bars []Bar
		want error
	}{
		{"empty", nil, ErrEmptySeries},
		{"duplicate date", []Bar{{Ticker: "SPY", Date: day(2)}, {Ticker: "SPY", Date: day(2)}}, ErrUnorderedBars},
		{"descending", []Bar{{Ticker: "SPY", Date: day(3)}, {Ticker: "SPY", Date: day(2)}}, ErrUnorderedBars},
		{"mixed ticker", []Bar{{Ticker: "SPY", Date: day(2)}, {Ticker: "QQQ", Date: day(3)}}, ErrMixedTicker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPriceSeries(tt.bars).Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPriceSeries_CopiesAreIndependent(t *testing.T) {
	ps := NewPriceSeries([]Bar{{Ticker: "SPY", Date: day(2), Close: 10}})
	closes := ps.Closes()
	closes[0] = 99
	if ps.Close(0) != 10 {
		t.Errorf("Closes() aliased the series")
	}
}

func TestTrade(t *testing.T) {
	win := Trade{EntryValue: 100, ExitValue: 110, EntryIndex: 2, ExitIndex: 7}
	if !win.Win() {
		t.Error("expected win")
	}
	if got := win.Return(); got < 0.0999 || got > 0.1001 {
		t.Errorf("return: got %v", got)
	}
	if win.HoldBars() != 5 {
		t.Errorf("hold bars: got %d", win.HoldBars())
	}

	open := Trade{EntryValue: 100, ExitValue: 150, Open: true}
	if open.Win() {
		t.Error("open trade must not count as a win")
	}

	flat := Trade{EntryValue: 100, ExitValue: 100}
	if flat.Win() {
		t.Error("break-even trade must not count as a win")
	}
}

func TestSignal_String(t *testing.T) {
	if SignalLong.String() != "LONG" || SignalFlat.String() != "FLAT" {
		t.Errorf("got %s/%s", SignalLong, SignalFlat)
	}
	s := SignalSeries{SignalLong, SignalFlat, SignalLong}
	if s.CountLong() != 2 {
		t.Errorf("CountLong: got %d", s.CountLong())
	}
}

func TestSimulationResult_ClosedTrades(t *testing.T) {
	r := &SimulationResult{
		PortfolioValues: []float64{1, 2, 3},
		Trades:          []Trade{{ExitValue: 1}, {Open: true}},
	}
	if len(r.ClosedTrades()) != 1 {
		t.Errorf("ClosedTrades: got %d", len(r.ClosedTrades()))
	}
	if r.FinalValue() != 3 {
		t.Errorf("FinalValue: got %v", r.FinalValue())
	}
	if (&SimulationResult{}).FinalValue() != 0 {
		t.Error("empty FinalValue should be 0")
	}
}
