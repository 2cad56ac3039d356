package core

import (
	"sync"
	"time"
)

const (
	DefaultResultTTL  = 30 * time.Minute
	DefaultMaxResults = 50
)

// resultCache keeps recent comparison results so they can be fetched again
// or exported without re-running. Entries expire after ttl; when full, the
// entry closest to expiry is evicted.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	max     int
	now     func() time.Time
}

type cacheEntry struct {
	result  *CompareResult
	expires time.Time
}

func newResultCache(ttl time.Duration, max int) *resultCache {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	if max <= 0 {
		max = DefaultMaxResults
	}
	return &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		max:     max,
		now:     time.Now,
	}
}

func (c *resultCache) put(id string, res *CompareResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.sweep(now)
	if len(c.entries) >= c.max {
		c.evictOldest()
	}
	c.entries[id] = cacheEntry{result: res, expires: now.Add(c.ttl)}
}

func (c *resultCache) get(id string) (*CompareResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, id)
		return nil, false
	}
	return e.result, true
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweep drops expired entries. Caller holds the lock.
func (c *resultCache) sweep(now time.Time) {
	for id, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, id)
		}
	}
}

// evictOldest drops the entry that expires first. Caller holds the lock.
func (c *resultCache) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, e := range c.entries {
		if oldestID == "" || e.expires.Before(oldest) {
			oldestID, oldest = id, e.expires
		}
	}
	delete(c.entries, oldestID)
}
