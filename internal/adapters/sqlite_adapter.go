package adapters

import (
	"context"

	"daytracker/internal/core"
	"daytracker/internal/records"
	"daytracker/internal/services"
	"daytracker/internal/storage"
)

// SQLiteAdapter joins SQLite reads with DayService writes so the HTTP layer
// sees one records.Store while every save is also queued for the sheet
// mirror.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.DayService
}

var _ records.Store = (*SQLiteAdapter)(nil)

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.DayService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

func (a *SQLiteAdapter) Upsert(ctx context.Context, date core.DayKey, fields core.DayFields) (core.DayRecord, error) {
	return a.service.SaveDay(ctx, date, fields)
}

func (a *SQLiteAdapter) FindByExactKey(ctx context.Context, date core.DayKey) (*core.DayRecord, error) {
	return a.storage.FindByExactKey(ctx, date)
}

func (a *SQLiteAdapter) FindByPrefix(ctx context.Context, prefix string) ([]core.DayRecord, error) {
	return a.storage.FindByPrefix(ctx, prefix)
}

func (a *SQLiteAdapter) FindByRange(ctx context.Context, from, to string) ([]core.DayRecord, error) {
	return a.storage.FindByRange(ctx, from, to)
}

func (a *SQLiteAdapter) FindAll(ctx context.Context) ([]core.DayRecord, error) {
	return a.storage.FindAll(ctx)
}

// Ping reports whether the database answers.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}
