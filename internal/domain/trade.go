package domain

import "time"

// Trade is one round trip: a buy and, unless still open, the matching sell.
type Trade struct {
	EntryIndex int       // bar index of the buy
	EntryDate  time.Time // date of the buy
	EntryPrice float64   // close at the buy
	EntryValue float64   // cash committed, before commission

	ExitIndex int       // bar index of the sell, or last bar if open
	ExitDate  time.Time // date of the sell, or last bar date if open
	ExitPrice float64   // close at the sell, or last close if open
	ExitValue float64   // proceeds after commission, or mark-to-market if open

	Commission float64 // entry + exit commission paid
	Open       bool    // position still held at end of series
}

// Return is the net return of the round trip.
func (t Trade) Return() float64 {
	if t.EntryValue == 0 {
		return 0
	}
	return t.ExitValue/t.EntryValue - 1
}

// Win reports whether a closed trade made money net of commission.
func (t Trade) Win() bool {
	return !t.Open && t.ExitValue > t.EntryValue
}

// HoldBars is the number of bars between entry and exit.
func (t Trade) HoldBars() int {
	return t.ExitIndex - t.EntryIndex
}
