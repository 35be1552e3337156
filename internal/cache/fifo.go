// Package cache provides the bounded, insertion-ordered cache used for the
// 404 reference corpus, the per-response verdict memo and the HTTP response
// cache.
//
// Despite living on top of an LRU implementation, FIFO never promotes an
// entry: reads go through Peek and existing keys are never re-added, so the
// entry evicted on overflow is always the oldest insertion.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// FIFO is a fixed-capacity map evicting the least-recently-inserted entry.
// It is safe for concurrent use.
type FIFO[K comparable, V any] struct {
	entries  *lru.Cache[K, V]
	capacity int
}

// NewFIFO returns an empty cache holding at most capacity entries. A
// non-positive capacity is treated as 1.
func NewFIFO[K comparable, V any](capacity int) *FIFO[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	entries, err := lru.New[K, V](capacity)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &FIFO[K, V]{entries: entries, capacity: capacity}
}

// Put stores value under key unless key is already present, in which case the
// existing entry and its position are left untouched. It reports whether the
// value was stored.
func (c *FIFO[K, V]) Put(key K, value V) bool {
	ok, _ := c.entries.ContainsOrAdd(key, value)
	return !ok
}

// Get returns the value stored under key without affecting eviction order.
func (c *FIFO[K, V]) Get(key K) (V, bool) {
	return c.entries.Peek(key)
}

// Values returns a snapshot of the stored values, oldest first.
func (c *FIFO[K, V]) Values() []V {
	return c.entries.Values()
}

// Keys returns a snapshot of the stored keys, oldest first.
func (c *FIFO[K, V]) Keys() []K {
	return c.entries.Keys()
}

// Len is the current number of entries.
func (c *FIFO[K, V]) Len() int {
	return c.entries.Len()
}

// Cap is the configured capacity.
func (c *FIFO[K, V]) Cap() int {
	return c.capacity
}

// Purge drops every entry.
func (c *FIFO[K, V]) Purge() {
	c.entries.Purge()
}
