package google

import (
	"fmt"
	"strings"

	"daytracker/internal/core"
)

// sheetHeader is the first row of the mirror sheet: date, amounts, comment,
// per-category hour counts, then the raw code of every hour.
func sheetHeader() []any {
	row := []any{"Date", "Spent", "Weight", "Comment"}
	for _, label := range core.CategoryLabels() {
		row = append(row, label)
	}
	for h := 0; h < core.HoursPerDay; h++ {
		row = append(row, fmt.Sprintf("H%02d", h))
	}
	return row
}

// recordRow converts a record into one sheet row aligned with sheetHeader.
func recordRow(rec core.DayRecord) []any {
	row := []any{string(rec.Date), rec.Spent, rec.Weight, rec.Comment}
	for _, c := range core.Categories() {
		row = append(row, rec.Hours.Count(c))
	}
	for _, code := range rec.Hours {
		row = append(row, int(code))
	}
	return row
}

// lastColumn returns the A1 column letter of the final header cell.
func lastColumn() string {
	return columnName(len(sheetHeader()))
}

// columnName converts a 1-based column index to its A1 letters.
func columnName(n int) string {
	name := ""
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}

// indexDates maps each date found in column A to its 1-based sheet row.
// Blank and non-date cells (such as the header) are skipped; the first
// occurrence of a date wins.
func indexDates(values [][]interface{}) map[core.DayKey]int {
	rows := make(map[core.DayKey]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		key, err := core.ParseDayKey(strings.TrimSpace(fmt.Sprint(row[0])))
		if err != nil {
			continue
		}
		if _, seen := rows[key]; !seen {
			rows[key] = i + 1
		}
	}
	return rows
}
