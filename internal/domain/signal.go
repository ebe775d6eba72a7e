package domain

// Signal is a strategy's directional decision for one bar.
type Signal int8

// Signal values. Encoded 0/1 to match the conventional long/flat encoding.
const (
	SignalFlat Signal = 0
	SignalLong Signal = 1
)

// String returns LONG or FLAT.
func (s Signal) String() string {
	if s == SignalLong {
		return "LONG"
	}
	return "FLAT"
}

// SignalSeries is aligned one-to-one by index with a PriceSeries.
type SignalSeries []Signal

// CountLong returns the number of LONG entries.
func (s SignalSeries) CountLong() int {
	n := 0
	for _, v := range s {
		if v == SignalLong {
			n++
		}
	}
	return n
}
