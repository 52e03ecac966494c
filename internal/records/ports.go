package records

import (
	"context"

	"daytracker/internal/core"
)

// Ports for outbound record adapters. Bulk finders return records sorted
// ascending by date.
type (
	// DayReader looks day records up by key or by key pattern.
	DayReader interface {
		// FindByExactKey returns nil and no error when the date has no record.
		FindByExactKey(ctx context.Context, date core.DayKey) (*core.DayRecord, error)
		// FindByPrefix returns every record whose date starts with prefix.
		FindByPrefix(ctx context.Context, prefix string) ([]core.DayRecord, error)
		// FindByRange returns every record with from <= date <= to, compared
		// as plain strings.
		FindByRange(ctx context.Context, from, to string) ([]core.DayRecord, error)
		// FindAll returns every record.
		FindAll(ctx context.Context) ([]core.DayRecord, error)
	}

	// DayWriter inserts or replaces the record stored under a date.
	DayWriter interface {
		Upsert(ctx context.Context, date core.DayKey, fields core.DayFields) (core.DayRecord, error)
	}

	// Store is a complete Record Store.
	Store interface {
		DayReader
		DayWriter
	}

	// DayMirror receives copies of saved records, e.g. a spreadsheet.
	DayMirror interface {
		MirrorDay(ctx context.Context, rec core.DayRecord) (ref string, err error)
	}
)
