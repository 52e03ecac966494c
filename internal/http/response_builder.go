package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"daytracker/internal/aggregate"
	"daytracker/internal/core"
	"daytracker/internal/export"
	"daytracker/internal/log"
)

// Machine-readable reasons carried in error bodies.
const (
	reasonMissingParameter = "missing_parameter"
	reasonInvalidScope     = "invalid_scope"
	reasonInvalidRecord    = "invalid_record"
	reasonInvalidFormat    = "invalid_format"
	reasonNotFound         = "not_found"
	reasonStoreUnavailable = "store_unavailable"
	reasonInternal         = "internal"
)

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

var (
	errNotFound      = errors.New("day not found")
	errInvalidFormat = errors.New("invalid request body")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// classify maps an error onto an HTTP status and reason.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, aggregate.ErrMissingParameter):
		return http.StatusBadRequest, reasonMissingParameter
	case errors.Is(err, aggregate.ErrInvalidScope):
		return http.StatusBadRequest, reasonInvalidScope
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidHours),
		errors.Is(err, core.ErrNegativeSpent),
		errors.Is(err, core.ErrInvalidNumber),
		errors.Is(err, errInvalidRecord):
		return http.StatusBadRequest, reasonInvalidRecord
	case errors.Is(err, errInvalidFormat),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, export.ErrUnknownKind):
		return http.StatusBadRequest, reasonInvalidFormat
	case errors.Is(err, errNotFound):
		return http.StatusNotFound, reasonNotFound
	case errors.Is(err, aggregate.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, reasonStoreUnavailable
	default:
		return http.StatusInternalServerError, reasonInternal
	}
}

// writeError logs err at a level matching its class and writes the JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, reason := classify(err)
	logger := log.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err, "reason", reason)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, "reason", reason)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Reason: reason})
}
