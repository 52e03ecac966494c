package aggregate

import (
	"fmt"
	"strings"

	"daytracker/internal/core"
)

// ScopeKind is the tag selecting which records an aggregation covers.
type ScopeKind string

const (
	Daily    ScopeKind = "daily"
	Monthly  ScopeKind = "monthly"
	Yearly   ScopeKind = "yearly"
	Lifetime ScopeKind = "lifetime"
	Range    ScopeKind = "range"
)

// Params carries every scope parameter. Each kind reads only the fields it
// needs and ignores the rest.
type Params struct {
	Date  string
	Year  string
	Month string
	From  string
	To    string
}

// MatchKind is how a Predicate selects records from the store.
type MatchKind int

const (
	MatchAll MatchKind = iota
	MatchExact
	MatchPrefix
	MatchRange
)

func (m MatchKind) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchRange:
		return "range"
	default:
		return "all"
	}
}

// Predicate is a resolved scope: a store-level filter on date keys.
type Predicate struct {
	Kind MatchKind
	// Key is the date for MatchExact, the prefix for MatchPrefix.
	Key  string
	From string
	To   string
}

// Match reports whether a date key satisfies the predicate.
func (p Predicate) Match(date core.DayKey) bool {
	d := string(date)
	switch p.Kind {
	case MatchExact:
		return d == p.Key
	case MatchPrefix:
		return strings.HasPrefix(d, p.Key)
	case MatchRange:
		return p.From <= d && d <= p.To
	default:
		return true
	}
}

func (p Predicate) String() string {
	switch p.Kind {
	case MatchExact, MatchPrefix:
		return fmt.Sprintf("%s(%s)", p.Kind, p.Key)
	case MatchRange:
		return fmt.Sprintf("range(%s..%s)", p.From, p.To)
	default:
		return "all"
	}
}

// ParseScopeKind maps a case-insensitive tag onto a ScopeKind.
func ParseScopeKind(tag string) (ScopeKind, error) {
	switch k := ScopeKind(strings.ToLower(strings.TrimSpace(tag))); k {
	case Daily, Monthly, Yearly, Lifetime, Range:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, tag)
	}
}

// DefaultScope picks the scope for a caller that named none: fallback when
// set, otherwise yearly when a year is given and lifetime for anything else.
func DefaultScope(fallback ScopeKind, p Params) ScopeKind {
	switch {
	case fallback != "":
		return fallback
	case strings.TrimSpace(p.Year) != "":
		return Yearly
	default:
		return Lifetime
	}
}

// ResolveScope turns a scope tag and its parameters into a Predicate.
// Parameters are validated before any query can run; a reversed range is
// not an error and simply matches nothing.
func ResolveScope(tag string, p Params) (Predicate, error) {
	kind, err := ParseScopeKind(tag)
	if err != nil {
		return Predicate{}, err
	}
	date, year, month := strings.TrimSpace(p.Date), strings.TrimSpace(p.Year), strings.TrimSpace(p.Month)
	from, to := strings.TrimSpace(p.From), strings.TrimSpace(p.To)

	switch kind {
	case Daily:
		if date == "" {
			return Predicate{}, fmt.Errorf("%w: daily scope needs date", ErrMissingParameter)
		}
		return Predicate{Kind: MatchExact, Key: date}, nil
	case Monthly:
		if year == "" || month == "" {
			return Predicate{}, fmt.Errorf("%w: monthly scope needs year and month", ErrMissingParameter)
		}
		return Predicate{Kind: MatchPrefix, Key: core.MonthPrefix(year, month)}, nil
	case Yearly:
		if year == "" {
			return Predicate{}, fmt.Errorf("%w: yearly scope needs year", ErrMissingParameter)
		}
		return Predicate{Kind: MatchPrefix, Key: core.YearPrefix(year)}, nil
	case Range:
		if from == "" || to == "" {
			return Predicate{}, fmt.Errorf("%w: range scope needs from and to", ErrMissingParameter)
		}
		return Predicate{Kind: MatchRange, From: from, To: to}, nil
	default:
		return Predicate{Kind: MatchAll}, nil
	}
}
