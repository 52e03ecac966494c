package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"daytracker/internal/aggregate"
	"daytracker/internal/core"
	"daytracker/internal/export"
	"daytracker/internal/log"
	"daytracker/internal/metrics"
)

func (s *Server) handleSaveDay(w http.ResponseWriter, r *http.Request) {
	date, fields, err := decodeDayRequest(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	rec, err := s.store.Upsert(ctx, date, fields)
	s.days.Invalidate(date)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", aggregate.ErrStoreUnavailable, err))
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Day saved",
		log.NewFields().WithDay(string(rec.Date), 0).WithOperation(log.OpUpsert).ToSlice()...)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	date, err := core.ParseDayKey(r.PathValue("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if rec, ok := s.days.Get(date); ok {
		writeJSON(w, http.StatusOK, rec)
		return
	}

	gen := s.days.Generation()

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	rec, err := s.store.FindByExactKey(ctx, date)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", aggregate.ErrStoreUnavailable, err))
		return
	}
	if rec == nil {
		writeError(w, r, fmt.Errorf("%w: %s", errNotFound, date))
		return
	}
	s.days.PutIfUnchanged(*rec, gen)
	writeJSON(w, http.StatusOK, rec)
}

// handleListMonth returns every record of one month.
func (s *Server) handleListMonth(w http.ResponseWriter, r *http.Request) {
	_, params := scopeFromQuery(r.URL.Query(), aggregate.Monthly)
	p, err := aggregate.ResolveScope(string(aggregate.Monthly), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	recs, err := s.engine.Records(ctx, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []core.DayRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleHours(w http.ResponseWriter, r *http.Request) {
	scope, p, err := resolveQuery(r, "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	start := time.Now()
	tally, err := s.engine.AggregateHours(ctx, p)
	observe("hours", scope, start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	scope, p, err := resolveQuery(r, "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	start := time.Now()
	totals, err := s.engine.AggregateSpend(ctx, p)
	observe("spend", scope, start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

type commentResponse struct {
	Date    core.DayKey `json:"date"`
	Comment string      `json:"comment"`
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	_, p, err := resolveQuery(r, "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	recs, err := s.engine.Records(ctx, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]commentResponse, 0, len(recs))
	for _, c := range export.Comments(recs) {
		out = append(out, commentResponse{Date: c.Date, Comment: c.Comment})
	}
	writeJSON(w, http.StatusOK, out)
}

type overviewResponse struct {
	Hours core.CategoryTally `json:"hours"`
	Spend core.MonthlyTotals `json:"spend"`
	Days  int                `json:"days"`
}

// handleOverview computes the hour tally, spend totals and day count of one
// scope from a single read.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	scope, p, err := resolveQuery(r, "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	start := time.Now()
	recs, err := s.engine.Records(ctx, p)
	observe("overview", scope, start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overviewResponse{
		Hours: aggregate.TallyHours(recs),
		Spend: aggregate.TotalSpend(recs),
		Days:  len(recs),
	})
}

// handleExport streams one export table. The daily table defaults to the
// daily scope; the others infer their scope like the analytics routes.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, err := export.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	scope, p, err := resolveQuery(r, kind.DefaultScope())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	start := time.Now()
	table, err := export.Build(ctx, s.engine, kind, p)
	observe("export_"+string(kind), scope, start, err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format == export.FormatCSV {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table.Filename(format)))
	}
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, table, format); err != nil {
		logger := log.FromContext(r.Context()).WithComponent(log.ComponentExport)
		logger.ErrorContext(r.Context(), "Export write failed",
			log.FieldError, err, log.FieldOperation, log.OpExport)
	}
}

func observe(summary, scope string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, aggregate.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		result = "store_error"
	default:
		result = "error"
	}
	metrics.ObserveAggregation(summary, scope, result, time.Since(start))
}
