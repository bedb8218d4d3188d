// Package lru is a bounded in-process cache. Capacity is a byte budget, not
// an entry count; the least recently used entries are evicted once the budget
// is exceeded.
package lru

import (
	"container/list"
	"sync"
	"time"
)

// SizeFunc reports the accounted size of a value in bytes.
type SizeFunc[V any] func(V) int64

type entry[V any] struct {
	key       string
	value     V
	size      int64
	expiresAt time.Time
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	maxBytes int64
	used     int64
	sizeOf   SizeFunc[V]
	ll       *list.List
	items    map[string]*list.Element
	now      func() time.Time
}

// New creates a cache holding at most maxBytes worth of values.
func New[V any](maxBytes int64, sizeOf SizeFunc[V]) *Cache[V] {
	return &Cache[V]{
		maxBytes: maxBytes,
		sizeOf:   sizeOf,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns the value for key when present and not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.removeElement(el)
		return zero, false
	}
	c.ll.MoveToFront(el)
	return e.value, true
}

// Set stores value under key for ttl (zero ttl never expires). It returns
// false, and stores nothing, when the value alone exceeds the byte budget.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) bool {
	size := c.sizeOf(value)
	if size > c.maxBytes {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		c.used += size - e.size
		e.value, e.size, e.expiresAt = value, size, expiresAt
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry[V]{key: key, value: value, size: size, expiresAt: expiresAt})
		c.items[key] = el
		c.used += size
	}

	for c.used > c.maxBytes {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}
	return true
}

// Delete drops key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Len is the number of cached entries, expired ones included until touched.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Bytes is the accounted size of all cached values.
func (c *Cache[V]) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func (c *Cache[V]) removeElement(el *list.Element) {
	e := c.ll.Remove(el).(*entry[V])
	delete(c.items, e.key)
	c.used -= e.size
}
