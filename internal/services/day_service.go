package services

import (
	"context"
	"fmt"
	"log/slog"

	"daytracker/internal/core"
	"daytracker/internal/metrics"
	"daytracker/internal/storage"
)

// DayRepository is the SQLite write path used by DayService.
type DayRepository interface {
	UpsertDay(ctx context.Context, date core.DayKey, fields core.DayFields) (core.DayRecord, storage.SyncState, error)
	Close() error
}

// SyncPublisher announces a saved day to the sheet mirror worker.
type SyncPublisher interface {
	PublishDaySync(ctx context.Context, date core.DayKey, version int64) error
	Close() error
}

// DayService saves days locally and queues them for the Google Sheets mirror.
type DayService struct {
	storage   DayRepository
	publisher SyncPublisher
}

// NewDayService accepts a nil publisher; writes then stay local only.
func NewDayService(storage DayRepository, publisher SyncPublisher) *DayService {
	return &DayService{
		storage:   storage,
		publisher: publisher,
	}
}

// SaveDay upserts the day and publishes a sync message. A publish failure
// is logged and never fails the write; the pending sweep picks it up.
func (s *DayService) SaveDay(ctx context.Context, date core.DayKey, fields core.DayFields) (core.DayRecord, error) {
	rec, state, err := s.storage.UpsertDay(ctx, date, fields)
	if err != nil {
		return core.DayRecord{}, fmt.Errorf("save day: %w", err)
	}
	metrics.DaySaved()

	if err := s.publishSyncMessage(ctx, date, state.Version); err != nil {
		metrics.SyncPublished("error")
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"date", date, "version", state.Version, "error", err)
	}

	return rec, nil
}

func (s *DayService) publishSyncMessage(ctx context.Context, date core.DayKey, version int64) error {
	if s.publisher == nil {
		metrics.SyncPublished("skipped")
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message", "date", date)
		return nil
	}
	if err := s.publisher.PublishDaySync(ctx, date, version); err != nil {
		return err
	}
	metrics.SyncPublished("ok")
	return nil
}

// Close closes both storage and AMQP connections
func (s *DayService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close day service: %v", errs)
	}

	return nil
}
