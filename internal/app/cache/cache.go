// Package cache provides an in-memory TTL cache for API responses.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Clock returns the current time.
type Clock func() time.Time

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL key/value store safe for concurrent use.
// An entry is served until its expiry instant has passed.
type Cache[V any] struct {
	mu         sync.Mutex
	entries    map[string]entry[V]
	maxEntries int
	now        Clock
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	maxEntries int
	clock      Clock
}

// WithMaxEntries bounds the number of stored entries. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		o.maxEntries = n
	}
}

// WithClock replaces the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		maxEntries: o.maxEntries,
		now:        o.clock,
	}
}

// Get returns the live value for key. Expired entries are removed on access.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl, overwriting any previous entry and its expiry.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.sweepLocked(now)
		if len(c.entries) >= c.maxEntries {
			c.evictSoonestLocked()
		}
	}

	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

// Run sweeps expired entries every interval until ctx is done.
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				zlog.Debug().Msgf("cache sweep: removed=%d remaining=%d", n, c.Len())
			}
		}
	}
}

func (c *Cache[V]) sweepLocked(now time.Time) int {
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *Cache[V]) evictSoonestLocked() {
	var (
		victim  string
		soonest time.Time
		found   bool
	)
	for k, e := range c.entries {
		if !found || e.expiresAt.Before(soonest) {
			victim, soonest, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
	}
}

// BuildKey returns the canonical key for a request path and its parameters:
// path?k1=v1&k2=v2 with pairs sorted.
func BuildKey(path string, params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return path + "?" + strings.Join(pairs, "&")
}
