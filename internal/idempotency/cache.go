// Package idempotency implements the in-memory idempotency cache the
// submitter consults for POST /prove and /artifact: repeated
// calls carrying the same Idempotency-Key within the TTL window return
// the identical stored response instead of re-executing the handler.
package idempotency

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultTTL matches the 24h window the data model specifies.
const DefaultTTL = 24 * time.Hour

// Entry is one cached (status, response) pair, keyed by idempotency key.
type Entry struct {
	StatusCode int
	Body       []byte
	StoredAt   time.Time
}

// Cache is a capacity-bounded, least-recently-used, TTL-expiring map
// from idempotency key to the response it produced. A single instance
// is shared by all submitter handlers; the single-threaded cooperative
// scheduling model (§5) is what makes the plain mutex here sufficient.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[string, Entry]
	ttl time.Duration
}

// New constructs a Cache bounded to maxEntries, evicting least-recently
// used entries once full.
func New(maxEntries int, ttl time.Duration) (*Cache, error) {
	if maxEntries < 1 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	inner, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, err
	}

	return &Cache{lru: inner, ttl: ttl}, nil
}

// Get returns the cached entry for key if present and not expired. An
// expired entry is evicted and treated as a miss.
func (c *Cache) Get(key string, now time.Time) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		return Entry{}, false
	}
	if now.Sub(entry.StoredAt) > c.ttl {
		c.lru.Remove(key)
		return Entry{}, false
	}
	return entry, true
}

// Put stores the response for key, overwriting any prior entry.
func (c *Cache) Put(key string, statusCode int, body []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, Entry{StatusCode: statusCode, Body: body, StoredAt: now})
}
