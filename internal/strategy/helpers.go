package strategy

import "math"

// rollingMean returns the simple moving average of values over window.
// Entries before the window is full are NaN, so comparisons against them are false.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(window)
	}
	return out
}

// pctChange returns values[i]/values[i-periods] - 1, NaN where undefined.
func pctChange(values []float64, periods int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < periods || !(values[i-periods] > 0) {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i]/values[i-periods] - 1
	}
	return out
}
