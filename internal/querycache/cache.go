// Package querycache is a process-wide keyed store for fetched note pages.
//
// Entries are fresh until they are invalidated or, when a stale time is set,
// until they age past it. Stale entries are still returned by Get so callers
// can keep showing them while a refetch runs.
package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streed/notes-browser/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Key identifies one cached result set. Two keys are equal iff every field is.
type Key struct {
	Namespace string
	Page      int
	Search    string
	PerPage   int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/page=%d/perPage=%d/search=%q", k.Namespace, k.Page, k.PerPage, k.Search)
}

// Entry is a snapshot of a cached value.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
	Stale     bool
}

type entry[V any] struct {
	value       V
	fetchedAt   time.Time
	invalidated bool
}

// FetchFunc loads the value for a key.
type FetchFunc[V any] func(ctx context.Context, key Key) (V, error)

type Cache[V any] struct {
	mu        sync.RWMutex
	entries   map[Key]*entry[V]
	gens      map[string]uint64
	staleTime time.Duration
	retry     RetryPolicy
	group     singleflight.Group
	now       func() time.Time
}

type Option func(*options)

type options struct {
	staleTime time.Duration
	retry     RetryPolicy
	now       func() time.Time
}

// WithStaleTime marks entries stale once they are older than d. Zero keeps
// entries fresh until invalidated.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) { o.staleTime = d }
}

// WithRetryPolicy sets how failed fetches are retried.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New[V any](opts ...Option) *Cache[V] {
	o := options{retry: NoRetry, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries:   make(map[Key]*entry[V]),
		gens:      make(map[string]uint64),
		staleTime: o.staleTime,
		retry:     o.retry,
		now:       o.now,
	}
}

// Get returns the cached entry for key, fresh or stale.
func (c *Cache[V]) Get(key Key) (Entry[V], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	return Entry[V]{Value: e.value, FetchedAt: e.fetchedAt, Stale: c.isStale(e)}, true
}

// Set stores a fresh value for key.
func (c *Cache[V]) Set(key Key, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry[V]{value: value, fetchedAt: c.now()}
}

// Fetch returns the fresh cached value for key or loads it with fn.
// Concurrent fetches of the same key share one call to fn. Failed loads are
// retried according to the retry policy and leave any existing entry intact.
func (c *Cache[V]) Fetch(ctx context.Context, key Key, fn FetchFunc[V]) (V, error) {
	c.mu.RLock()
	gen := c.gens[key.Namespace]
	e, ok := c.entries[key]
	fresh := ok && !c.isStale(e)
	c.mu.RUnlock()

	if fresh {
		logger.Debug("Cache hit for %s", key)
		return e.value, nil
	}

	// The generation is part of the flight key so a fetch started after an
	// invalidation never joins one that started before it.
	flight := fmt.Sprintf("%s#%d", key, gen)
	v, err, shared := c.group.Do(flight, func() (interface{}, error) {
		logger.Debug("Cache miss for %s, fetching", key)
		value, err := Retry(ctx, c.retry, func(ctx context.Context) (V, error) {
			return fn(ctx, key)
		})
		if err != nil {
			return value, err
		}
		c.store(key, value, gen)
		return value, nil
	})
	if shared {
		logger.Debug("Joined in-flight fetch for %s", key)
	}
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func (c *Cache[V]) store(key Key, value V, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A generation change means the namespace was invalidated mid-flight
	stale := c.gens[key.Namespace] != gen
	if prev, ok := c.entries[key]; stale && ok && !prev.invalidated {
		// A newer load already landed; keep it
		return
	}
	c.entries[key] = &entry[V]{value: value, fetchedAt: c.now(), invalidated: stale}
}

// InvalidateNamespace marks every entry in namespace stale, including loads
// still in flight, and returns how many stored entries were affected.
func (c *Cache[V]) InvalidateNamespace(namespace string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[namespace]++
	count := 0
	for key, e := range c.entries {
		if key.Namespace == namespace {
			e.invalidated = true
			count++
		}
	}
	logger.Debug("Invalidated %d cached entries in namespace %q", count, namespace)
	return count
}

// Invalidate marks a single entry stale.
func (c *Cache[V]) Invalidate(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	// In-flight loads cannot be told apart per key, so the whole namespace
	// generation moves on.
	c.gens[key.Namespace]++
	e, ok := c.entries[key]
	if ok {
		e.invalidated = true
	}
	return ok
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry[V])
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// isStale must be called with mu held.
func (c *Cache[V]) isStale(e *entry[V]) bool {
	if e.invalidated {
		return true
	}
	return c.staleTime > 0 && c.now().Sub(e.fetchedAt) > c.staleTime
}
