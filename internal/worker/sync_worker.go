package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"daytracker/internal/amqp"
	"daytracker/internal/core"
	"daytracker/internal/log"
	"daytracker/internal/metrics"
	"daytracker/internal/records"
	"daytracker/internal/storage"

	"golang.org/x/sync/errgroup"
)

// SyncStore is the storage surface the worker needs.
type SyncStore interface {
	GetDay(ctx context.Context, date core.DayKey) (*core.DayRecord, storage.SyncState, error)
	GetPendingSyncDays(ctx context.Context, limit int) ([]storage.PendingSyncDay, error)
	MarkSynced(ctx context.Context, date core.DayKey, version int64) (bool, error)
	MarkSyncError(ctx context.Context, date core.DayKey, version int64) error
}

// SyncWorker mirrors days from SQLite to Google Sheets
type SyncWorker struct {
	storage     SyncStore
	mirror      records.DayMirror
	batchSize   int
	concurrency int
}

func NewSyncWorker(storage SyncStore, mirror records.DayMirror, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:     storage,
		mirror:      mirror,
		batchSize:   batchSize,
		concurrency: 4,
	}
}

// HandleSyncMessage processes a single day sync message from AMQP
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.DaySyncMessage) error {
	return w.syncDay(ctx, msg.Date, msg.Version)
}

// syncDay mirrors the current state of date. minVersion is the version the
// caller knows about; an already synced row at or past it is skipped.
func (w *SyncWorker) syncDay(ctx context.Context, date core.DayKey, minVersion int64) error {
	rec, state, err := w.storage.GetDay(ctx, date)
	if err != nil {
		metrics.SheetMirrored("error")
		return fmt.Errorf("get day from storage: %w", err)
	}
	if rec == nil {
		metrics.SheetMirrored("missing")
		slog.WarnContext(ctx, "Day not found, nothing to mirror", "date", date)
		return nil
	}
	if state.Status == "synced" && state.Version >= minVersion {
		metrics.SheetMirrored("stale")
		slog.DebugContext(ctx, "Day already mirrored", "date", date, "version", state.Version)
		return nil
	}

	ref, err := w.mirror.MirrorDay(ctx, *rec)
	if err != nil {
		metrics.SheetMirrored("error")
		if markErr := w.storage.MarkSyncError(ctx, date, state.Version); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "date", date, "error", markErr)
		}
		return fmt.Errorf("mirror day %s: %w", date, err)
	}

	synced, err := w.storage.MarkSynced(ctx, date, state.Version)
	if err != nil {
		// The sheet already holds the data; the next sweep rewrites the same row.
		slog.WarnContext(ctx, "Failed to mark day as synced", "date", date, "error", err)
	}
	if synced {
		metrics.SheetMirrored("synced")
	} else {
		metrics.SheetMirrored("stale")
	}

	slog.InfoContext(ctx, "Synced day to Google Sheets",
		log.FieldDate, date,
		log.FieldVersion, state.Version,
		log.FieldSheetsRef, ref)
	return nil
}

// ProcessPendingDays mirrors up to one batch of unsynced days. It is the
// fallback for lost AMQP messages and returns how many days succeeded.
func (w *SyncWorker) ProcessPendingDays(ctx context.Context) (int, error) {
	pending, err := w.storage.GetPendingSyncDays(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending days: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending days", "count", len(pending))

	var ok atomic.Int64
	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for _, p := range pending {
		g.Go(func() error {
			if err := w.syncDay(ctx, p.Date, p.Version); err != nil {
				slog.ErrorContext(ctx, "Failed to sync pending day", "date", p.Date, "error", err)
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return int(ok.Load()), nil
}
