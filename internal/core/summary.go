package core

import "sort"

// CategoryTally counts tracked hours per category label. Labels with no
// hours are absent rather than zero.
type CategoryTally map[string]int

// MonthlyTotals sums spend per month. Months without a nonzero
// contribution are absent rather than zero.
type MonthlyTotals map[MonthKey]float64

// ActivityHours is one flat row of a CategoryTally.
type ActivityHours struct {
	Activity string `json:"Activity"`
	Hours    int    `json:"Hours"`
}

// MonthAmount is one flat row of MonthlyTotals.
type MonthAmount struct {
	Month  MonthKey `json:"Month"`
	Amount float64  `json:"Amount"`
}

// Rows linearizes the tally in category code order.
func (t CategoryTally) Rows() []ActivityHours {
	rows := make([]ActivityHours, 0, len(t))
	for _, label := range CategoryLabels() {
		if n, ok := t[label]; ok {
			rows = append(rows, ActivityHours{Activity: label, Hours: n})
		}
	}
	return rows
}

// Keys returns the labels present in the tally in category code order.
func (t CategoryTally) Keys() []string {
	keys := make([]string, 0, len(t))
	for _, r := range t.Rows() {
		keys = append(keys, r.Activity)
	}
	return keys
}

// Total returns the number of tracked hours across all categories.
func (t CategoryTally) Total() int {
	n := 0
	for _, v := range t {
		n += v
	}
	return n
}

// Keys returns the months present in ascending order.
func (m MonthlyTotals) Keys() []MonthKey {
	keys := make([]MonthKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Rows linearizes the totals in ascending month order.
func (m MonthlyTotals) Rows() []MonthAmount {
	rows := make([]MonthAmount, 0, len(m))
	for _, k := range m.Keys() {
		rows = append(rows, MonthAmount{Month: k, Amount: m[k]})
	}
	return rows
}

// Total returns the sum across all months.
func (m MonthlyTotals) Total() float64 {
	var sum float64
	for _, k := range m.Keys() {
		sum += m[k]
	}
	return sum
}
