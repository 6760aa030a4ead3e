// Package cache memoizes aggregated sea-info records by rounded coordinate.
package cache

import (
	"sync"
	"time"

	"github.com/couchcryptid/sea-info-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Defaults used when New is given non-positive values.
const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 100
)

// Cache is a thread-safe, size-bounded TTL cache of SeaInfoRecords keyed by
// Coordinate.Key. Expired entries are dropped lazily when read. When full,
// inserting a new key evicts the entry inserted earliest; reads do not change
// eviction order.
type Cache struct {
	ttl      time.Duration
	capacity int
	clock    clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	newest  *entry
	oldest  *entry
}

type entry struct {
	key        string
	value      domain.SeaInfoRecord
	insertedAt time.Time
	prev       *entry // newer
	next       *entry // older
}

// New creates a cache. A nil clock uses real time.
func New(ttl time.Duration, capacity int, clock clockwork.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		clock:    clock,
		entries:  make(map[string]*entry),
	}
}

// Get returns the record stored for the coordinate's rounded key, if present
// and younger than the TTL.
func (c *Cache) Get(coord domain.Coordinate) (domain.SeaInfoRecord, bool) {
	key := coord.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.SeaInfoRecord{}, false
	}
	if c.clock.Since(e.insertedAt) >= c.ttl {
		c.unlink(e)
		delete(c.entries, key)
		return domain.SeaInfoRecord{}, false
	}
	return e.value, true
}

// Put stores rec. Storing an existing key replaces the value and restarts its
// TTL but keeps its original place in the eviction order.
func (c *Cache) Put(coord domain.Coordinate, rec domain.SeaInfoRecord) {
	key := coord.Key()
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = rec
		e.insertedAt = now
		return
	}

	e := &entry{key: key, value: rec, insertedAt: now}
	c.entries[key] = e
	c.pushNewest(e)

	if len(c.entries) > c.capacity {
		c.evictOldest()
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) pushNewest(e *entry) {
	e.prev = nil
	e.next = c.newest
	if c.newest != nil {
		c.newest.prev = e
	}
	c.newest = e
	if c.oldest == nil {
		c.oldest = e
	}
}

func (c *Cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.newest = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.oldest = e.prev
	}
}

func (c *Cache) evictOldest() {
	if c.oldest == nil {
		return
	}
	victim := c.oldest
	c.unlink(victim)
	delete(c.entries, victim.key)
}
