package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	// DayLayout is the fixed-width, zero-padded layout of every DayKey.
	DayLayout = "2006-01-02"
	// HoursPerDay is the number of slots in Hours.
	HoursPerDay = 24
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidHours  = errors.New("invalid hours")
	ErrNegativeSpent = errors.New("spent cannot be negative")
	ErrInvalidNumber = errors.New("invalid number")
)

type (
	// DayKey is a calendar date in YYYY-MM-DD form. Values built through
	// ParseDayKey are always zero padded, so byte order equals date order.
	DayKey string

	// MonthKey is the YYYY-MM prefix of a DayKey.
	MonthKey string

	// Hours maps hour-of-day (the index) to the category painted on it.
	Hours [HoursPerDay]Category

	// DayFields are the mutable parts of a DayRecord.
	DayFields struct {
		Hours   Hours   `json:"hours" yaml:"hours"`
		Spent   float64 `json:"spent" yaml:"spent"`
		Weight  float64 `json:"weight" yaml:"weight"`
		Comment string  `json:"comment" yaml:"comment"`
	}

	// DayRecord is the persisted entry for a single calendar day.
	DayRecord struct {
		Date DayKey `json:"date" yaml:"date"`
		DayFields `yaml:",inline"`
		CreatedAt time.Time `json:"createdAt" yaml:"-"`
		UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
	}
)

// ParseDayKey validates s as a real calendar date in YYYY-MM-DD form.
func ParseDayKey(s string) (DayKey, error) {
	if len(s) != len(DayLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DayKey(t.Format(DayLayout)), nil
}

// DayKeyOf formats t as a DayKey.
func DayKeyOf(t time.Time) DayKey {
	return DayKey(t.Format(DayLayout))
}

func (k DayKey) String() string { return string(k) }

// Month returns the YYYY-MM prefix of k.
func (k DayKey) Month() MonthKey {
	if len(k) < 7 {
		return MonthKey(k)
	}
	return MonthKey(k[:7])
}

// Time returns k as midnight UTC.
func (k DayKey) Time() (time.Time, error) {
	return time.Parse(DayLayout, string(k))
}

func (m MonthKey) String() string { return string(m) }

// MonthPrefix builds the YYYY-MM prefix shared by every date of a month.
// A one-digit numeric month is zero padded.
func MonthPrefix(year, month string) string {
	if n, err := strconv.Atoi(month); err == nil && len(month) == 1 && n > 0 {
		month = "0" + month
	}
	return year + "-" + month
}

// YearPrefix builds the YYYY- prefix shared by every date of a year.
func YearPrefix(year string) string {
	return year + "-"
}

// Count returns how many hours carry category c.
func (h Hours) Count(c Category) int {
	n := 0
	for _, v := range h {
		if v == c {
			n++
		}
	}
	return n
}

// MarshalJSON encodes the hours as a 24-element array.
func (h Hours) MarshalJSON() ([]byte, error) {
	return json.Marshal([HoursPerDay]Category(h))
}

// UnmarshalJSON accepts either a 24-element array or an object keyed by
// hour "0".."23". Missing object keys stay untracked. Codes are stored
// verbatim, even ones outside the category table.
func (h *Hours) UnmarshalJSON(data []byte) error {
	var zero Hours
	if string(data) == "null" {
		*h = zero
		return nil
	}

	var list []Category
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) != HoursPerDay {
			return fmt.Errorf("%w: expected %d slots, got %d", ErrInvalidHours, HoursPerDay, len(list))
		}
		copy(zero[:], list)
		*h = zero
		return nil
	}

	var byHour map[string]*float64
	if err := json.Unmarshal(data, &byHour); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHours, err)
	}
	for key, v := range byHour {
		hour, err := strconv.Atoi(key)
		if err != nil || hour < 0 || hour >= HoursPerDay {
			return fmt.Errorf("%w: hour %q out of range", ErrInvalidHours, key)
		}
		if v == nil {
			continue
		}
		if *v != math.Trunc(*v) {
			return fmt.Errorf("%w: hour %d has non-integer code %v", ErrInvalidHours, hour, *v)
		}
		zero[hour] = Category(*v)
	}
	*h = zero
	return nil
}

// Validate checks write-time invariants. Unknown category codes are allowed.
func (f DayFields) Validate() error {
	if math.IsNaN(f.Spent) || math.IsInf(f.Spent, 0) {
		return fmt.Errorf("%w: spent", ErrInvalidNumber)
	}
	if f.Spent < 0 {
		return ErrNegativeSpent
	}
	if math.IsNaN(f.Weight) || math.IsInf(f.Weight, 0) {
		return fmt.Errorf("%w: weight", ErrInvalidNumber)
	}
	if len(f.Comment) > 2000 {
		return errors.New("comment too long (max 2000 characters)")
	}
	return nil
}

// Validate checks the record key and fields.
func (r DayRecord) Validate() error {
	if _, err := ParseDayKey(string(r.Date)); err != nil {
		return err
	}
	return r.DayFields.Validate()
}
