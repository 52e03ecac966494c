package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"daytracker/internal/core"
	"daytracker/internal/records"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ records.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer keeps upserts serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SyncState is the replication bookkeeping stored next to a record.
type SyncState struct {
	Version int64
	Status  string
}

// UpsertDay inserts or replaces the record for date. Every write bumps the
// version and marks the row pending for the sheet mirror.
func (r *SQLiteRepository) UpsertDay(ctx context.Context, date core.DayKey, fields core.DayFields) (core.DayRecord, SyncState, error) {
	rec := core.DayRecord{Date: date, DayFields: fields}
	if err := rec.Validate(); err != nil {
		return core.DayRecord{}, SyncState{}, err
	}
	hours, err := json.Marshal(fields.Hours)
	if err != nil {
		return core.DayRecord{}, SyncState{}, fmt.Errorf("encode hours: %w", err)
	}

	row, err := r.queries.UpsertDay(ctx, UpsertDayParams{
		Date:    string(date),
		Hours:   string(hours),
		Spent:   fields.Spent,
		Weight:  fields.Weight,
		Comment: fields.Comment,
		Now:     r.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return core.DayRecord{}, SyncState{}, fmt.Errorf("upsert day: %w", err)
	}

	saved, err := toRecord(row)
	if err != nil {
		return core.DayRecord{}, SyncState{}, err
	}

	slog.InfoContext(ctx, "Day saved to SQLite",
		"date", row.Date,
		"version", row.Version,
		"spent", row.Spent)

	return saved, SyncState{Version: row.Version, Status: row.SyncStatus}, nil
}

// Upsert implements records.DayWriter without replication bookkeeping.
func (r *SQLiteRepository) Upsert(ctx context.Context, date core.DayKey, fields core.DayFields) (core.DayRecord, error) {
	rec, _, err := r.UpsertDay(ctx, date, fields)
	return rec, err
}

// GetDay returns the record and its sync state, or nil when absent.
func (r *SQLiteRepository) GetDay(ctx context.Context, date core.DayKey) (*core.DayRecord, SyncState, error) {
	row, err := r.queries.GetDay(ctx, string(date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, SyncState{}, nil
	}
	if err != nil {
		return nil, SyncState{}, fmt.Errorf("get day %s: %w", date, err)
	}
	rec, err := toRecord(row)
	if err != nil {
		return nil, SyncState{}, err
	}
	return &rec, SyncState{Version: row.Version, Status: row.SyncStatus}, nil
}

func (r *SQLiteRepository) FindByExactKey(ctx context.Context, date core.DayKey) (*core.DayRecord, error) {
	rec, _, err := r.GetDay(ctx, date)
	return rec, err
}

func (r *SQLiteRepository) FindByPrefix(ctx context.Context, prefix string) ([]core.DayRecord, error) {
	rows, err := r.queries.ListDaysByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list days by prefix %q: %w", prefix, err)
	}
	return toRecords(rows)
}

func (r *SQLiteRepository) FindByRange(ctx context.Context, from, to string) ([]core.DayRecord, error) {
	rows, err := r.queries.ListDaysInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list days in range %s..%s: %w", from, to, err)
	}
	return toRecords(rows)
}

func (r *SQLiteRepository) FindAll(ctx context.Context) ([]core.DayRecord, error) {
	rows, err := r.queries.ListDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return toRecords(rows)
}

// PendingSyncDay is the minimal data needed to requeue a sheet sync.
type PendingSyncDay struct {
	Date    core.DayKey
	Version int64
}

// GetPendingSyncDays returns rows not yet mirrored, oldest write first.
func (r *SQLiteRepository) GetPendingSyncDays(ctx context.Context, limit int) ([]PendingSyncDay, error) {
	rows, err := r.queries.ListPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync days: %w", err)
	}
	out := make([]PendingSyncDay, len(rows))
	for i, row := range rows {
		out[i] = PendingSyncDay{Date: core.DayKey(row.Date), Version: row.Version}
	}
	return out, nil
}

// MarkSynced marks the row synced if it still holds version. It reports
// false when a newer write arrived in the meantime.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, date core.DayKey, version int64) (bool, error) {
	n, err := r.queries.MarkDaySynced(ctx, string(date), version)
	if err != nil {
		return false, fmt.Errorf("mark day synced: %w", err)
	}
	if n == 0 {
		slog.InfoContext(ctx, "Day changed since sync started, leaving pending", "date", date, "version", version)
		return false, nil
	}
	slog.InfoContext(ctx, "Day marked as synced", "date", date, "version", version)
	return true, nil
}

// MarkSyncError flags the row so the pending sweep retries it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, date core.DayKey, version int64) error {
	if _, err := r.queries.MarkDaySyncError(ctx, string(date), version); err != nil {
		return fmt.Errorf("mark day sync error: %w", err)
	}
	slog.WarnContext(ctx, "Day marked with sync error", "date", date, "version", version)
	return nil
}

func toRecords(rows []Day) ([]core.DayRecord, error) {
	out := make([]core.DayRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRecord(row Day) (core.DayRecord, error) {
	rec := core.DayRecord{Date: core.DayKey(row.Date)}
	if err := json.Unmarshal([]byte(row.Hours), &rec.Hours); err != nil {
		return core.DayRecord{}, fmt.Errorf("decode hours of %s: %w", row.Date, err)
	}
	rec.Spent, rec.Weight, rec.Comment = row.Spent, row.Weight, row.Comment

	var err error
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, row.CreatedAt); err != nil {
		return core.DayRecord{}, fmt.Errorf("parse created_at of %s: %w", row.Date, err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, row.UpdatedAt); err != nil {
		return core.DayRecord{}, fmt.Errorf("parse updated_at of %s: %w", row.Date, err)
	}
	return rec, nil
}
