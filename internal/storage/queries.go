package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Day is one row of the days table. Hours holds the JSON array of codes
// and timestamps are RFC 3339 text.
type Day struct {
	Date       string
	Hours      string
	Spent      float64
	Weight     float64
	Comment    string
	Version    int64
	SyncStatus string
	CreatedAt  string
	UpdatedAt  string
}

const dayColumns = `date, hours, spent, weight, comment, version, sync_status, created_at, updated_at`

func scanDay(row interface{ Scan(...any) error }) (Day, error) {
	var d Day
	err := row.Scan(&d.Date, &d.Hours, &d.Spent, &d.Weight, &d.Comment,
		&d.Version, &d.SyncStatus, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

const upsertDay = `
INSERT INTO days (date, hours, spent, weight, comment, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(date) DO UPDATE SET
    hours       = excluded.hours,
    spent       = excluded.spent,
    weight      = excluded.weight,
    comment     = excluded.comment,
    updated_at  = excluded.updated_at,
    version     = days.version + 1,
    sync_status = 'pending'
RETURNING ` + dayColumns

type UpsertDayParams struct {
	Date    string
	Hours   string
	Spent   float64
	Weight  float64
	Comment string
	Now     string
}

func (q *Queries) UpsertDay(ctx context.Context, arg UpsertDayParams) (Day, error) {
	row := q.db.QueryRowContext(ctx, upsertDay,
		arg.Date, arg.Hours, arg.Spent, arg.Weight, arg.Comment, arg.Now, arg.Now)
	return scanDay(row)
}

const getDay = `SELECT ` + dayColumns + ` FROM days WHERE date = ?`

func (q *Queries) GetDay(ctx context.Context, date string) (Day, error) {
	return scanDay(q.db.QueryRowContext(ctx, getDay, date))
}

const listDaysByPrefix = `SELECT ` + dayColumns + ` FROM days WHERE substr(date, 1, ?) = ? ORDER BY date`

func (q *Queries) ListDaysByPrefix(ctx context.Context, prefix string) ([]Day, error) {
	return q.list(ctx, listDaysByPrefix, len(prefix), prefix)
}

const listDaysInRange = `SELECT ` + dayColumns + ` FROM days WHERE date >= ? AND date <= ? ORDER BY date`

func (q *Queries) ListDaysInRange(ctx context.Context, from, to string) ([]Day, error) {
	return q.list(ctx, listDaysInRange, from, to)
}

const listDays = `SELECT ` + dayColumns + ` FROM days ORDER BY date`

func (q *Queries) ListDays(ctx context.Context) ([]Day, error) {
	return q.list(ctx, listDays)
}

const listPendingSync = `SELECT date, version FROM days WHERE sync_status != 'synced' ORDER BY updated_at LIMIT ?`

type PendingSyncRow struct {
	Date    string
	Version int64
}

func (q *Queries) ListPendingSync(ctx context.Context, limit int64) ([]PendingSyncRow, error) {
	rows, err := q.db.QueryContext(ctx, listPendingSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PendingSyncRow
	for rows.Next() {
		var i PendingSyncRow
		if err := rows.Scan(&i.Date, &i.Version); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const markDaySynced = `UPDATE days SET sync_status = 'synced' WHERE date = ? AND version = ?`

func (q *Queries) MarkDaySynced(ctx context.Context, date string, version int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markDaySynced, date, version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markDaySyncError = `UPDATE days SET sync_status = 'error' WHERE date = ? AND version = ?`

func (q *Queries) MarkDaySyncError(ctx context.Context, date string, version int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markDaySyncError, date, version)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) list(ctx context.Context, query string, args ...any) ([]Day, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Day
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}
