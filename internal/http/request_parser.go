package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"daytracker/internal/aggregate"
	"daytracker/internal/core"
)

const maxBodyBytes = 64 << 10

var errInvalidRecord = errors.New("invalid record")

// scopeFromQuery reads type, date, year, month, from and to. Without a type
// aggregate.DefaultScope decides.
func scopeFromQuery(q url.Values, fallback aggregate.ScopeKind) (string, aggregate.Params) {
	params := aggregate.Params{
		Date:  strings.TrimSpace(q.Get("date")),
		Year:  strings.TrimSpace(q.Get("year")),
		Month: strings.TrimSpace(q.Get("month")),
		From:  strings.TrimSpace(q.Get("from")),
		To:    strings.TrimSpace(q.Get("to")),
	}

	tag := strings.TrimSpace(q.Get("type"))
	if tag == "" {
		tag = string(aggregate.DefaultScope(fallback, params))
	}
	return tag, params
}

// resolveQuery resolves the request's scope to a predicate.
func resolveQuery(r *http.Request, fallback aggregate.ScopeKind) (string, aggregate.Predicate, error) {
	tag, params := scopeFromQuery(r.URL.Query(), fallback)
	p, err := aggregate.ResolveScope(tag, params)
	return strings.ToLower(tag), p, err
}

// amount decodes a JSON number or a user-entered decimal string.
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = 0
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = amount(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: expected number or string", core.ErrInvalidNumber)
	}
	v, err := core.ParseAmount(s)
	if err != nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidNumber, s)
	}
	*a = amount(v)
	return nil
}

// dayRequest is the body of POST /api/day. Hours may be a 24-element array
// or an object keyed by hour.
type dayRequest struct {
	Date    string     `json:"date"`
	Hours   core.Hours `json:"hours"`
	Spent   amount     `json:"spent"`
	Weight  amount     `json:"weight"`
	Comment string     `json:"comment"`
}

// decodeDayRequest reads and validates a day write.
func decodeDayRequest(w http.ResponseWriter, r *http.Request) (core.DayKey, core.DayFields, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return "", core.DayFields{}, fmt.Errorf("%w: %v", errInvalidFormat, err)
	}

	var req dayRequest
	if err := json.Unmarshal(body, &req); err != nil {
		// Domain errors from nested decoders keep their own class.
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			return "", core.DayFields{}, fmt.Errorf("%w: %v", errInvalidFormat, err)
		}
		return "", core.DayFields{}, err
	}

	if strings.TrimSpace(req.Date) == "" {
		return "", core.DayFields{}, fmt.Errorf("%w: date is required", aggregate.ErrMissingParameter)
	}
	date, err := core.ParseDayKey(strings.TrimSpace(req.Date))
	if err != nil {
		return "", core.DayFields{}, err
	}

	fields := core.DayFields{
		Hours:   req.Hours,
		Spent:   float64(req.Spent),
		Weight:  float64(req.Weight),
		Comment: sanitizeInput(req.Comment),
	}
	if err := fields.Validate(); err != nil {
		return "", core.DayFields{}, fmt.Errorf("%w: %w", errInvalidRecord, err)
	}
	return date, fields, nil
}

// sanitizeInput trims and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
