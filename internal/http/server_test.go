package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"daytracker/internal/core"
	"daytracker/internal/log"
	"daytracker/internal/records/memory"
)

type failingStore struct{ *memory.Store }

var errBoom = errors.New("disk on fire")

func (failingStore) FindByExactKey(context.Context, core.DayKey) (*core.DayRecord, error) {
	return nil, errBoom
}
func (failingStore) FindByPrefix(context.Context, string) ([]core.DayRecord, error) {
	return nil, errBoom
}
func (failingStore) FindByRange(context.Context, string, string) ([]core.DayRecord, error) {
	return nil, errBoom
}
func (failingStore) FindAll(context.Context) ([]core.DayRecord, error) { return nil, errBoom }

func rec(date string, spent float64, comment string, codes ...core.Category) core.DayRecord {
	r := core.DayRecord{Date: core.DayKey(date)}
	r.Spent = spent
	r.Comment = comment
	copy(r.Hours[:], codes)
	return r
}

func newTestServer(t *testing.T, store *memory.Store, opts Options) *Server {
	t.Helper()
	opts.Logger = log.New(log.Config{Output: io.Discard})
	opts.RateLimitPerMin = 10000
	srv := NewServer(":0", store, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func seeded(t *testing.T) *Server {
	return newTestServer(t, memory.New(
		rec("2026-01-01", 100, "new year", core.Sleep, core.Sleep, core.Work),
		rec("2026-01-15", 50, "", core.Sleep, core.Work, 42),
		rec("2026-02-01", 0, "quiet"),
		rec("2025-12-31", 20, ""),
	), Options{})
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := seeded(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}

	notReady := newTestServer(t, memory.New(), Options{Ready: func(context.Context) error { return errBoom }})
	if rr := do(t, notReady, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d", rr.Code)
	}
}

func TestSaveAndGetDay(t *testing.T) {
	srv := seeded(t)

	rr := do(t, srv, http.MethodGet, "/api/day/2026-03-03", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing day status = %d", rr.Code)
	}
	if body := decodeBody[errorBody](t, rr); body.Reason != reasonNotFound {
		t.Fatalf("reason = %q", body.Reason)
	}

	rr = do(t, srv, http.MethodPost, "/api/day", `{"date":"2026-03-03","hours":{"0":1},"spent":9.5,"comment":"hi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("save status = %d body %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/day/2026-03-03", "")
	got := decodeBody[core.DayRecord](t, rr)
	if got.Spent != 9.5 || got.Hours[0] != core.Sleep || got.Comment != "hi" {
		t.Fatalf("got %+v", got)
	}

	// A second write must not be hidden by the day cache.
	do(t, srv, http.MethodPost, "/api/day", `{"date":"2026-03-03","spent":1}`)
	got = decodeBody[core.DayRecord](t, do(t, srv, http.MethodGet, "/api/day/2026-03-03", ""))
	if got.Spent != 1 {
		t.Fatalf("stale read after write: %+v", got)
	}
}

func TestSaveDayValidation(t *testing.T) {
	srv := seeded(t)
	tests := []struct {
		body   string
		reason string
	}{
		{`{"spent":1}`, reasonMissingParameter},
		{`{"date":"01/02/2026"}`, reasonInvalidRecord},
		{`{"date":"2026-01-02","spent":-3}`, reasonInvalidRecord},
		{`not json`, reasonInvalidFormat},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodPost, "/api/day", tt.body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", tt.body, rr.Code)
		}
		if body := decodeBody[errorBody](t, rr); body.Reason != tt.reason {
			t.Fatalf("%s: reason = %q, want %q", tt.body, body.Reason, tt.reason)
		}
	}
	if rr := do(t, srv, http.MethodGet, "/api/day/not-a-date", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rr.Code)
	}
}

func TestListMonth(t *testing.T) {
	srv := seeded(t)
	recs := decodeBody[[]core.DayRecord](t, do(t, srv, http.MethodGet, "/api/day?year=2026&month=1", ""))
	if len(recs) != 2 || recs[0].Date != "2026-01-01" || recs[1].Date != "2026-01-15" {
		t.Fatalf("recs = %+v", recs)
	}

	rr := do(t, srv, http.MethodGet, "/api/day?year=2026&month=7", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty month body = %q", rr.Body.String())
	}

	if rr := do(t, srv, http.MethodGet, "/api/day?year=2026", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing month status = %d", rr.Code)
	}
}

func TestHoursAggregation(t *testing.T) {
	srv := seeded(t)

	tally := decodeBody[core.CategoryTally](t, do(t, srv, http.MethodGet, "/api/analytics/hours?year=2026", ""))
	if len(tally) != 2 || tally["Sleep"] != 3 || tally["Work"] != 2 {
		t.Fatalf("tally = %v", tally)
	}

	dist := decodeBody[core.CategoryTally](t, do(t, srv, http.MethodGet, "/api/analytics/distribution?type=daily&date=2026-01-15", ""))
	if dist["Sleep"] != 1 || dist["Work"] != 1 || len(dist) != 2 {
		t.Fatalf("distribution = %v", dist)
	}
}

func TestSpendAggregation(t *testing.T) {
	srv := seeded(t)

	totals := decodeBody[map[string]float64](t, do(t, srv, http.MethodGet, "/api/analytics/spend?type=monthly&year=2026&month=1", ""))
	if len(totals) != 1 || totals["2026-01"] != 150 {
		t.Fatalf("totals = %v", totals)
	}

	lifetime := decodeBody[map[string]float64](t, do(t, srv, http.MethodGet, "/api/analytics/spend", ""))
	if len(lifetime) != 2 || lifetime["2025-12"] != 20 {
		t.Fatalf("lifetime = %v", lifetime)
	}

	reversed := do(t, srv, http.MethodGet, "/api/analytics/spend?type=range&from=2026-12-31&to=2026-01-01", "")
	if reversed.Code != http.StatusOK || strings.TrimSpace(reversed.Body.String()) != "{}" {
		t.Fatalf("reversed range = %d %q", reversed.Code, reversed.Body.String())
	}
}

func TestScopeErrors(t *testing.T) {
	srv := seeded(t)
	tests := []struct {
		target string
		reason string
	}{
		{"/api/analytics/hours?type=weekly", reasonInvalidScope},
		{"/api/analytics/hours?type=monthly&year=2026", reasonMissingParameter},
		{"/api/analytics/spend?type=range&from=2026-01-01", reasonMissingParameter},
		{"/api/analytics/overview?type=daily", reasonMissingParameter},
	}
	for _, tt := range tests {
		rr := do(t, srv, http.MethodGet, tt.target, "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d", tt.target, rr.Code)
		}
		if body := decodeBody[errorBody](t, rr); body.Reason != tt.reason {
			t.Fatalf("%s reason = %q", tt.target, body.Reason)
		}
	}
}

func TestStoreFailureIs503(t *testing.T) {
	srv := NewServer(":0", failingStore{memory.New()}, Options{
		Logger:          log.New(log.Config{Output: io.Discard}),
		RateLimitPerMin: 10000,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	for _, target := range []string{"/api/analytics/hours", "/api/analytics/overview", "/api/day/2026-01-01", "/api/export/spend"} {
		rr := do(t, srv, http.MethodGet, target, "")
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s status = %d", target, rr.Code)
		}
		if body := decodeBody[errorBody](t, rr); body.Reason != reasonStoreUnavailable {
			t.Fatalf("%s reason = %q", target, body.Reason)
		}
	}
}

func TestCommentsAndOverview(t *testing.T) {
	srv := seeded(t)

	comments := decodeBody[[]commentResponse](t, do(t, srv, http.MethodGet, "/api/analytics/comments?type=range&from=2026-01-01&to=2026-12-31", ""))
	if len(comments) != 2 || comments[0].Comment != "new year" || comments[1].Date != "2026-02-01" {
		t.Fatalf("comments = %+v", comments)
	}

	ov := decodeBody[overviewResponse](t, do(t, srv, http.MethodGet, "/api/analytics/overview?year=2026", ""))
	if ov.Days != 3 || ov.Hours["Sleep"] != 3 || ov.Spend["2026-01"] != 150 {
		t.Fatalf("overview = %+v", ov)
	}
}

func TestExport(t *testing.T) {
	srv := seeded(t)

	rr := do(t, srv, http.MethodGet, "/api/export/spend?year=2026", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Content-Disposition") != `attachment; filename="daytracker-spend.csv"` {
		t.Fatalf("disposition = %q", rr.Header().Get("Content-Disposition"))
	}
	if rr.Body.String() != "Month,Amount\n2026-01,150\n" {
		t.Fatalf("csv = %q", rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/export/daily?date=2026-01-01&format=json", "")
	if rr.Code != http.StatusOK || !bytes.Contains(rr.Body.Bytes(), []byte(`"Sleep": 2`)) {
		t.Fatalf("daily json = %d %s", rr.Code, rr.Body.String())
	}

	if rr := do(t, srv, http.MethodGet, "/api/export/daily", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("daily without date status = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/export/weights", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown export status = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/export/time?format=xml", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown format status = %d", rr.Code)
	}
}

func TestRateLimitReturnsJSON(t *testing.T) {
	srv := NewServer(":0", memory.New(), Options{
		Logger:          log.New(log.Config{Output: io.Discard}),
		RateLimitPerMin: 1,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	do(t, srv, http.MethodGet, "/api/analytics/hours", "")
	rr := do(t, srv, http.MethodGet, "/api/analytics/hours", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody[errorBody](t, rr); body.Reason != "rate_limited" {
		t.Fatalf("reason = %q", body.Reason)
	}
	// Operational endpoints are not limited.
	if rr := do(t, srv, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
}

// hookedStore runs onFind after each read of the wrapped store.
type hookedStore struct {
	*memory.Store
	onFind func()
	finds  int
}

func (h *hookedStore) FindByExactKey(ctx context.Context, date core.DayKey) (*core.DayRecord, error) {
	h.finds++
	rec, err := h.Store.FindByExactKey(ctx, date)
	if h.onFind != nil {
		h.onFind()
	}
	return rec, err
}

func (h *hookedStore) FindAll(ctx context.Context) ([]core.DayRecord, error) {
	h.finds++
	recs, err := h.Store.FindAll(ctx)
	if h.onFind != nil {
		h.onFind()
	}
	return recs, err
}

func newHookedServer(t *testing.T, store *hookedStore) *Server {
	t.Helper()
	srv := NewServer(":0", store, Options{
		Logger:          log.New(log.Config{Output: io.Discard}),
		RateLimitPerMin: 10000,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func TestGetDay_SaveDuringReadIsNotCachedStale(t *testing.T) {
	store := &hookedStore{Store: memory.New(rec("2026-01-01", 10, "old"))}
	srv := newHookedServer(t, store)

	// A save lands after the GET read the old record but before it fills the cache.
	store.onFind = func() {
		store.onFind = nil
		rr := do(t, srv, http.MethodPost, "/api/day", `{"date":"2026-01-01","spent":99,"comment":"new"}`)
		if rr.Code != http.StatusOK {
			t.Errorf("save status = %d: %s", rr.Code, rr.Body)
		}
	}
	do(t, srv, http.MethodGet, "/api/day/2026-01-01", "")

	if _, ok := srv.days.Get("2026-01-01"); ok {
		t.Fatal("record read before the save must not be cached")
	}
	got := decodeBody[core.DayRecord](t, do(t, srv, http.MethodGet, "/api/day/2026-01-01", ""))
	if got.Spent != 99 || got.Comment != "new" {
		t.Fatalf("GET after save = %+v", got)
	}
}

func TestOverview_ReadsStoreOnce(t *testing.T) {
	store := &hookedStore{Store: memory.New(
		rec("2026-01-01", 100, "", core.Sleep, core.Sleep, core.Work),
		rec("2026-01-15", 50, ""),
	)}
	srv := newHookedServer(t, store)

	rr := do(t, srv, http.MethodGet, "/api/analytics/overview", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	if store.finds != 1 {
		t.Fatalf("store read %d times, want 1", store.finds)
	}
	got := decodeBody[overviewResponse](t, rr)
	if got.Days != 2 || got.Hours["Sleep"] != 2 || got.Spend["2026-01"] != 150 {
		t.Fatalf("overview = %+v", got)
	}
}
