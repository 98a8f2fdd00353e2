// Package lru provides a bounded least-recently-used cache keyed by string.
//
// The cache is NOT safe for concurrent use; callers synchronize.
package lru

import "container/list"

// DefaultCapacity is used when a non-positive capacity is supplied.
const DefaultCapacity = 100

// EvictFunc observes entries dropped because the cache overflowed.
type EvictFunc[V any] func(key string, value V)

// Stats holds cumulative counters.
type Stats struct {
	Size      int
	Capacity  int
	Hits      int64
	Misses    int64
	Evictions int64
}

type entry[V any] struct {
	key   string
	value V
}

// Cache is a fixed-capacity LRU cache.
type Cache[V any] struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List
	onEvict  EvictFunc[V]

	hits      int64
	misses    int64
	evictions int64
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithEvictHook registers fn to observe capacity evictions.
func WithEvictHook[V any](fn EvictFunc[V]) Option[V] {
	return func(c *Cache[V]) {
		c.onEvict = fn
	}
}

// New constructs a cache holding at most capacity entries.
func New[V any](capacity int, opts ...Option[V]) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache[V]{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached value and marks it most recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		c.hits++
		return el.Value.(*entry[V]).value, true
	}
	c.misses++
	var zero V
	return zero, false
}

// Peek returns the cached value without touching recency or counters.
func (c *Cache[V]) Peek(key string) (V, bool) {
	if el, ok := c.items[key]; ok {
		return el.Value.(*entry[V]).value, true
	}
	var zero V
	return zero, false
}

// Set stores value under key. It reports whether an older entry was evicted
// to make room.
func (c *Cache[V]) Set(key string, value V) (evicted bool) {
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).value = value
		c.order.MoveToFront(el)
		return false
	}
	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
	if c.order.Len() <= c.capacity {
		return false
	}
	oldest := c.order.Back()
	if oldest == nil {
		return false
	}
	c.removeElement(oldest)
	c.evictions++
	if c.onEvict != nil {
		e := oldest.Value.(*entry[V])
		c.onEvict(e.key, e.value)
	}
	return true
}

// Delete removes key and reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Contains reports whether key is cached.
func (c *Cache[V]) Contains(key string) bool {
	_, ok := c.items[key]
	return ok
}

// Keys returns keys ordered from most to least recently used.
func (c *Cache[V]) Keys() []string {
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	return c.order.Len()
}

// Purge drops all entries. Counters are kept.
func (c *Cache[V]) Purge() {
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Stats returns a copy of the counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Size:      c.order.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *Cache[V]) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}
