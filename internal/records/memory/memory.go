package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"daytracker/internal/core"
	"daytracker/internal/records"

	"gopkg.in/yaml.v3"
)

// Store keeps day records in a map keyed by date.
type Store struct {
	mu   sync.Mutex
	days map[core.DayKey]core.DayRecord
	now  func() time.Time
}

var _ records.Store = (*Store)(nil)

func New(seed ...core.DayRecord) *Store {
	s := &Store{days: make(map[core.DayKey]core.DayRecord, len(seed)), now: time.Now}
	for _, rec := range seed {
		s.days[rec.Date] = rec
	}
	return s
}

// seedFile is the YAML layout accepted by NewFromFile.
type seedFile struct {
	Days []seedDay `yaml:"days"`
}

type seedDay struct {
	Date    string  `yaml:"date"`
	Hours   []int   `yaml:"hours"`
	Spent   float64 `yaml:"spent"`
	Weight  float64 `yaml:"weight"`
	Comment string  `yaml:"comment"`
}

// NewFromFile seeds a store from a YAML file. A missing file yields an
// empty store.
func NewFromFile(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	recs, err := parseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	return New(recs...), nil
}

func parseSeed(data []byte) ([]core.DayRecord, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	out := make([]core.DayRecord, 0, len(f.Days))
	for i, d := range f.Days {
		key, err := core.ParseDayKey(strings.TrimSpace(d.Date))
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", i, err)
		}
		if len(d.Hours) > core.HoursPerDay {
			return nil, fmt.Errorf("day %s: %w: %d hours", key, core.ErrInvalidHours, len(d.Hours))
		}
		rec := core.DayRecord{Date: key}
		for h, code := range d.Hours {
			rec.Hours[h] = core.Category(code)
		}
		rec.Spent, rec.Weight, rec.Comment = d.Spent, d.Weight, d.Comment
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("day %s: %w", key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Upsert replaces the fields stored under date, keeping CreatedAt.
func (s *Store) Upsert(_ context.Context, date core.DayKey, fields core.DayFields) (core.DayRecord, error) {
	rec := core.DayRecord{Date: date, DayFields: fields}
	if err := rec.Validate(); err != nil {
		return core.DayRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	rec.CreatedAt = now
	if prev, ok := s.days[date]; ok && !prev.CreatedAt.IsZero() {
		rec.CreatedAt = prev.CreatedAt
	}
	rec.UpdatedAt = now
	s.days[date] = rec
	return rec, nil
}

func (s *Store) FindByExactKey(_ context.Context, date core.DayKey) (*core.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.days[date]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) FindByPrefix(_ context.Context, prefix string) ([]core.DayRecord, error) {
	return s.filter(func(k core.DayKey) bool { return strings.HasPrefix(string(k), prefix) }), nil
}

func (s *Store) FindByRange(_ context.Context, from, to string) ([]core.DayRecord, error) {
	return s.filter(func(k core.DayKey) bool { return string(k) >= from && string(k) <= to }), nil
}

func (s *Store) FindAll(_ context.Context) ([]core.DayRecord, error) {
	return s.filter(func(core.DayKey) bool { return true }), nil
}

// Len returns the number of stored days.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.days)
}

func (s *Store) filter(keep func(core.DayKey) bool) []core.DayRecord {
	s.mu.Lock()
	out := make([]core.DayRecord, 0, len(s.days))
	for k, rec := range s.days {
		if keep(k) {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
