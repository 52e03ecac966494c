package aggregate

import (
	"math"

	"daytracker/internal/core"
)

// TallyHours counts hours per category label. Untracked hours and codes
// outside the category table are dropped.
func TallyHours(recs []core.DayRecord) core.CategoryTally {
	tally := core.CategoryTally{}
	for _, rec := range recs {
		for _, code := range rec.Hours {
			label, ok := code.Label()
			if !ok {
				continue
			}
			tally[label]++
		}
	}
	return tally
}

// TotalSpend sums spent per month. Records with no spend add no month.
func TotalSpend(recs []core.DayRecord) core.MonthlyTotals {
	totals := core.MonthlyTotals{}
	for _, rec := range recs {
		if rec.Spent == 0 || math.IsNaN(rec.Spent) || math.IsInf(rec.Spent, 0) {
			continue
		}
		totals[rec.Date.Month()] += rec.Spent
	}
	return totals
}
