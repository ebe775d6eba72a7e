package reporting

import (
	"fmt"

	"backtest-lab/internal/domain"
)

// MaxCalendarGapDays is the largest tolerated distance between consecutive bars.
// Long weekends plus a holiday stay under it.
const MaxCalendarGapDays = 7

// QualityCheck represents one data sufficiency criterion.
type QualityCheck struct {
	Name      string `json:"name"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
	Pass      bool   `json:"pass"`
}

// DataQuality contains all checks for the simulated series.
type DataQuality struct {
	Checks  []QualityCheck `json:"checks"`
	AllPass bool           `json:"all_pass"`
}

// CheckDataQuality validates that prices can support strategies needing requiredBars of warm-up.
func CheckDataQuality(prices domain.PriceSeries, requiredBars int) DataQuality {
	q := DataQuality{AllPass: true}
	add := func(c QualityCheck) {
		q.Checks = append(q.Checks, c)
		if !c.Pass {
			q.AllPass = false
		}
	}

	// Check 1: enough bars for the slowest strategy to signal at least once
	add(QualityCheck{
		Name:      "Warm-up bars",
		Threshold: fmt.Sprintf(">= %d", requiredBars+1),
		Actual:    fmt.Sprintf("%d", prices.Len()),
		Pass:      prices.Len() > requiredBars,
	})

	// Check 2: no long holes in the calendar
	gap, at := largestGap(prices)
	actual := fmt.Sprintf("%d days", gap)
	if gap > 0 {
		actual += " before " + at
	}
	add(QualityCheck{
		Name:      "Largest gap",
		Threshold: fmt.Sprintf("<= %d days", MaxCalendarGapDays),
		Actual:    actual,
		Pass:      gap <= MaxCalendarGapDays,
	})

	// Check 3: every close is tradable
	bad := 0
	for _, b := range prices.Bars {
		if !(b.Close > 0) {
			bad++
		}
	}
	add(QualityCheck{
		Name:      "Non-positive closes",
		Threshold: "== 0",
		Actual:    fmt.Sprintf("%d", bad),
		Pass:      bad == 0,
	})

	return q
}

// largestGap returns the largest day distance between consecutive bars and the later bar's date.
func largestGap(prices domain.PriceSeries) (int, string) {
	gap, at := 0, ""
	for i := 1; i < prices.Len(); i++ {
		days := int(prices.Bars[i].Date.Sub(prices.Bars[i-1].Date).Hours() / 24)
		if days > gap {
			gap = days
			at = prices.Bars[i].Date.Format(domain.DateLayout)
		}
	}
	return gap, at
}
