// Package export flattens day records and summaries into tables and writes
// them as CSV or JSON.
package export

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"daytracker/internal/aggregate"
	"daytracker/internal/core"
)

// Kind names one of the export tables.
type Kind string

const (
	KindDaily    Kind = "daily"
	KindTime     Kind = "time"
	KindSpend    Kind = "spend"
	KindComments Kind = "comments"
)

var ErrUnknownKind = errors.New("unknown export kind")

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDaily, KindTime, KindSpend, KindComments:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// DefaultScope is the scope fallback for k when the caller names none. Only
// the daily table has one; the others defer to aggregate.DefaultScope.
func (k Kind) DefaultScope() aggregate.ScopeKind {
	if k == KindDaily {
		return aggregate.Daily
	}
	return ""
}

// Table is an export ready for writing. Rows back the CSV form and Items
// the JSON form; both hold the same data in the same order.
type Table struct {
	Kind    Kind
	Headers []string
	Rows    [][]string
	Items   any
}

// Filename is the attachment name used for CSV downloads.
func (t Table) Filename(format Format) string {
	return fmt.Sprintf("daytracker-%s.%s", t.Kind, format)
}

// DailyRow is one day in the daily export.
type DailyRow struct {
	Date    core.DayKey    `json:"Date"`
	Spent   float64        `json:"Spent"`
	Weight  float64        `json:"Weight"`
	Comment string         `json:"Comment"`
	Hours   map[string]int `json:"Hours"`
}

// CommentRow is one non-empty comment.
type CommentRow struct {
	Date    core.DayKey `json:"Date"`
	Comment string      `json:"Comment"`
}

// DailyTable has one row per record: date, spend, weight, comment, then
// the hour count of every category in code order.
func DailyTable(recs []core.DayRecord) Table {
	labels := core.CategoryLabels()
	headers := append([]string{"Date", "Spent", "Weight", "Comment"}, labels...)

	rows := make([][]string, 0, len(recs))
	items := make([]DailyRow, 0, len(recs))
	for _, rec := range recs {
		row := []string{string(rec.Date), formatFloat(rec.Spent), formatFloat(rec.Weight), rec.Comment}
		hours := make(map[string]int, len(labels))
		for i, c := range core.Categories() {
			n := rec.Hours.Count(c)
			row = append(row, strconv.Itoa(n))
			hours[labels[i]] = n
		}
		rows = append(rows, row)
		items = append(items, DailyRow{
			Date:    rec.Date,
			Spent:   rec.Spent,
			Weight:  rec.Weight,
			Comment: rec.Comment,
			Hours:   hours,
		})
	}
	return Table{Kind: KindDaily, Headers: headers, Rows: rows, Items: items}
}

// TimeTable lists the tally in category code order.
func TimeTable(tally core.CategoryTally) Table {
	items := tally.Rows()
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		rows = append(rows, []string{r.Activity, strconv.Itoa(r.Hours)})
	}
	return Table{Kind: KindTime, Headers: []string{"Activity", "Hours"}, Rows: rows, Items: items}
}

// SpendTable lists monthly totals in ascending month order.
func SpendTable(totals core.MonthlyTotals) Table {
	items := totals.Rows()
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		rows = append(rows, []string{string(r.Month), formatFloat(r.Amount)})
	}
	return Table{Kind: KindSpend, Headers: []string{"Month", "Amount"}, Rows: rows, Items: items}
}

// CommentsTable keeps records whose comment is not blank.
func CommentsTable(recs []core.DayRecord) Table {
	items := Comments(recs)
	rows := make([][]string, 0, len(items))
	for _, c := range items {
		rows = append(rows, []string{string(c.Date), c.Comment})
	}
	return Table{Kind: KindComments, Headers: []string{"Date", "Comment"}, Rows: rows, Items: items}
}

// Comments returns the non-blank comments of recs in input order.
func Comments(recs []core.DayRecord) []CommentRow {
	out := make([]CommentRow, 0)
	for _, rec := range recs {
		if strings.TrimSpace(rec.Comment) == "" {
			continue
		}
		out = append(out, CommentRow{Date: rec.Date, Comment: rec.Comment})
	}
	return out
}

// Build runs the aggregation behind kind over p and returns its table.
func Build(ctx context.Context, engine *aggregate.Engine, kind Kind, p aggregate.Predicate) (Table, error) {
	switch kind {
	case KindTime:
		tally, err := engine.AggregateHours(ctx, p)
		if err != nil {
			return Table{}, err
		}
		return TimeTable(tally), nil
	case KindSpend:
		totals, err := engine.AggregateSpend(ctx, p)
		if err != nil {
			return Table{}, err
		}
		return SpendTable(totals), nil
	case KindDaily, KindComments:
		recs, err := engine.Records(ctx, p)
		if err != nil {
			return Table{}, err
		}
		if kind == KindDaily {
			return DailyTable(recs), nil
		}
		return CommentsTable(recs), nil
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
