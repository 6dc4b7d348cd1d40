package cache

import (
	"context"
	"sync"
	"time"
)

const DefaultCapacity = 100

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryDashboardCache is an in-process cache holding at most capacity entries.
// When full, expired entries are purged first, then the entry closest to expiry is evicted.
type MemoryDashboardCache struct {
	mu       sync.Mutex
	capacity int
	now      func() time.Time
	entries  map[string]memoryEntry
}

func NewMemoryDashboardCache(capacity int, now func() time.Time) *MemoryDashboardCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryDashboardCache{
		capacity: capacity,
		now:      now,
		entries:  make(map[string]memoryEntry, capacity),
	}
}

func (c *MemoryDashboardCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores value until now+ttl. A non-positive ttl removes the key.
func (c *MemoryDashboardCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.entries, key)
		return nil
	}

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.purgeExpired(now)
		if len(c.entries) >= c.capacity {
			c.evictEarliest()
		}
	}

	v := make([]byte, len(value))
	copy(v, value)
	c.entries[key] = memoryEntry{value: v, expires: now.Add(ttl)}
	return nil
}

func (c *MemoryDashboardCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryDashboardCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryDashboardCache) purgeExpired(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
}

// evictEarliest removes the entry with the earliest expiry; ties go to the smaller key.
func (c *MemoryDashboardCache) evictEarliest() {
	var victim string
	var earliest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.expires.Before(earliest) || (e.expires.Equal(earliest) && k < victim) {
			victim, earliest, first = k, e.expires, false
		}
	}
	if !first {
		delete(c.entries, victim)
	}
}
