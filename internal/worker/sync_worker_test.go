package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"daytracker/internal/amqp"
	"daytracker/internal/core"
	"daytracker/internal/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	days    map[core.DayKey]core.DayRecord
	state   map[core.DayKey]storage.SyncState
	getErr  error
	errored []core.DayKey
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		days:  map[core.DayKey]core.DayRecord{},
		state: map[core.DayKey]storage.SyncState{},
	}
}

func (s *fakeStore) put(date core.DayKey, version int64, status string) {
	s.days[date] = core.DayRecord{Date: date}
	s.state[date] = storage.SyncState{Version: version, Status: status}
}

func (s *fakeStore) GetDay(_ context.Context, date core.DayKey) (*core.DayRecord, storage.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, storage.SyncState{}, s.getErr
	}
	rec, ok := s.days[date]
	if !ok {
		return nil, storage.SyncState{}, nil
	}
	return &rec, s.state[date], nil
}

func (s *fakeStore) GetPendingSyncDays(_ context.Context, limit int) ([]storage.PendingSyncDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.PendingSyncDay
	for date, st := range s.state {
		if st.Status != "synced" && len(out) < limit {
			out = append(out, storage.PendingSyncDay{Date: date, Version: st.Version})
		}
	}
	return out, nil
}

func (s *fakeStore) MarkSynced(_ context.Context, date core.DayKey, version int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state[date]
	if st.Version != version {
		return false, nil
	}
	st.Status = "synced"
	s.state[date] = st
	return true, nil
}

func (s *fakeStore) MarkSyncError(_ context.Context, date core.DayKey, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errored = append(s.errored, date)
	st := s.state[date]
	st.Status = "error"
	s.state[date] = st
	return nil
}

type fakeMirror struct {
	mu       sync.Mutex
	mirrored []core.DayKey
	fail     map[core.DayKey]bool
}

func (m *fakeMirror) MirrorDay(_ context.Context, rec core.DayRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[rec.Date] {
		return "", errors.New("quota exceeded")
	}
	m.mirrored = append(m.mirrored, rec.Date)
	return "Days!A2:AI2", nil
}

func TestHandleSyncMessage(t *testing.T) {
	store := newFakeStore()
	store.put("2026-01-03", 2, "pending")
	mirror := &fakeMirror{}
	w := NewSyncWorker(store, mirror, 10)

	if err := w.HandleSyncMessage(context.Background(), &amqp.DaySyncMessage{Date: "2026-01-03", Version: 2}); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if len(mirror.mirrored) != 1 || store.state["2026-01-03"].Status != "synced" {
		t.Fatalf("mirrored=%v state=%+v", mirror.mirrored, store.state["2026-01-03"])
	}

	// A duplicate delivery for an already synced version is skipped.
	if err := w.HandleSyncMessage(context.Background(), &amqp.DaySyncMessage{Date: "2026-01-03", Version: 1}); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if len(mirror.mirrored) != 1 {
		t.Fatalf("stale message mirrored again: %v", mirror.mirrored)
	}
}

func TestHandleSyncMessage_MissingDayIsAcked(t *testing.T) {
	w := NewSyncWorker(newFakeStore(), &fakeMirror{}, 10)
	if err := w.HandleSyncMessage(context.Background(), &amqp.DaySyncMessage{Date: "2026-01-03", Version: 1}); err != nil {
		t.Fatalf("missing day should not be retried: %v", err)
	}
}

func TestHandleSyncMessage_MirrorFailure(t *testing.T) {
	store := newFakeStore()
	store.put("2026-01-03", 1, "pending")
	w := NewSyncWorker(store, &fakeMirror{fail: map[core.DayKey]bool{"2026-01-03": true}}, 10)

	err := w.HandleSyncMessage(context.Background(), &amqp.DaySyncMessage{Date: "2026-01-03", Version: 1})
	if err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	if store.state["2026-01-03"].Status != "error" {
		t.Fatalf("status = %q, want error", store.state["2026-01-03"].Status)
	}
}

func TestHandleSyncMessage_StorageError(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("database is locked")
	w := NewSyncWorker(store, &fakeMirror{}, 10)
	if err := w.HandleSyncMessage(context.Background(), &amqp.DaySyncMessage{Date: "2026-01-03", Version: 1}); err == nil {
		t.Fatal("expected storage error")
	}
}

func TestProcessPendingDays(t *testing.T) {
	store := newFakeStore()
	store.put("2026-01-01", 1, "pending")
	store.put("2026-01-02", 3, "error")
	store.put("2026-01-03", 1, "pending")
	store.put("2026-01-04", 1, "synced")
	mirror := &fakeMirror{fail: map[core.DayKey]bool{"2026-01-03": true}}
	w := NewSyncWorker(store, mirror, 10)

	n, err := w.ProcessPendingDays(context.Background())
	if err != nil {
		t.Fatalf("ProcessPendingDays: %v", err)
	}
	if n != 2 {
		t.Fatalf("processed = %d, want 2", n)
	}
	if store.state["2026-01-02"].Status != "synced" || store.state["2026-01-03"].Status != "error" {
		t.Fatalf("unexpected states: %+v", store.state)
	}

	n, _ = NewSyncWorker(newFakeStore(), mirror, 10).ProcessPendingDays(context.Background())
	if n != 0 {
		t.Fatalf("empty store processed %d", n)
	}
}
