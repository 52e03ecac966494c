// Package cache holds the in-process caches used by the HTTP layer.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"daytracker/internal/core"
	"daytracker/internal/metrics"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps every registered cache.
type Manager struct {
	mu       sync.Mutex
	caches   []Cleaner
	started  bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewManager() *Manager {
	return &Manager{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// StartCleanup begins sweeping every interval until Stop.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				slog.Debug("Cache cleanup completed", "entries_removed", n)
			}
		case <-m.stop:
			return
		}
	}
}

// CleanAll sweeps every registered cache once.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup goroutine. Safe to call when StartCleanup never ran.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	if started {
		<-m.done
	}
}

// DayCache caches exact-day lookups keyed by date. Only found records are
// cached; writes must call Invalidate.
//
// A reader that races a write takes a Generation before reading the store and
// fills the cache with PutIfUnchanged, which refuses the fill once any
// Invalidate has happened since.
type DayCache struct {
	lru *LRUCache[core.DayRecord]

	mu  sync.Mutex
	gen uint64
}

func NewDayCache(size int, ttl time.Duration) *DayCache {
	return &DayCache{lru: NewLRUCache[core.DayRecord](size, ttl)}
}

func (c *DayCache) Get(date core.DayKey) (core.DayRecord, bool) {
	rec, ok := c.lru.Get(string(date))
	metrics.CacheLookup(ok)
	return rec, ok
}

func (c *DayCache) Put(rec core.DayRecord) {
	c.lru.Set(string(rec.Date), rec)
}

// Generation returns the current invalidation counter.
func (c *DayCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// PutIfUnchanged caches rec only if no Invalidate ran after gen was taken.
func (c *DayCache) PutIfUnchanged(rec core.DayRecord, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.lru.Set(string(rec.Date), rec)
	return true
}

func (c *DayCache) Invalidate(date core.DayKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Delete(string(date))
}

func (c *DayCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *DayCache) Size() int {
	return c.lru.Size()
}
