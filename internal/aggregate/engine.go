// Package aggregate turns day records into hour tallies and monthly spend
// totals over a selectable date scope.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"

	"daytracker/internal/core"
	"daytracker/internal/log"
	"daytracker/internal/records"
)

// Engine reads from a record store and reduces the result. It keeps no
// state between calls and never writes.
type Engine struct {
	store records.DayReader
}

func NewEngine(store records.DayReader) *Engine {
	return &Engine{store: store}
}

// Records fetches the records matched by p, ascending by date.
func (e *Engine) Records(ctx context.Context, p Predicate) ([]core.DayRecord, error) {
	var (
		recs []core.DayRecord
		err  error
	)
	switch p.Kind {
	case MatchExact:
		var rec *core.DayRecord
		rec, err = e.store.FindByExactKey(ctx, core.DayKey(p.Key))
		if rec != nil {
			recs = []core.DayRecord{*rec}
		}
	case MatchPrefix:
		recs, err = e.store.FindByPrefix(ctx, p.Key)
	case MatchRange:
		if p.From > p.To {
			return nil, nil
		}
		recs, err = e.store.FindByRange(ctx, p.From, p.To)
	default:
		recs, err = e.store.FindAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	slog.DebugContext(ctx, "Records fetched",
		log.FieldComponent, log.ComponentAggregate,
		log.FieldPredicate, p.String(),
		log.FieldRecords, len(recs))
	return recs, nil
}

// AggregateHours tallies tracked hours per category over p.
func (e *Engine) AggregateHours(ctx context.Context, p Predicate) (core.CategoryTally, error) {
	recs, err := e.Records(ctx, p)
	if err != nil {
		return nil, err
	}
	return TallyHours(recs), nil
}

// AggregateSpend totals spend per month over p.
func (e *Engine) AggregateSpend(ctx context.Context, p Predicate) (core.MonthlyTotals, error) {
	recs, err := e.Records(ctx, p)
	if err != nil {
		return nil, err
	}
	return TotalSpend(recs), nil
}
