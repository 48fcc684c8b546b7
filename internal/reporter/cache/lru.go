package cache

import (
	"sync"
	"sync/atomic"
)

// lruEntry is a doubly-linked list node holding one cached payload.
type lruEntry struct {
	key   string
	value []byte
	prev  *lruEntry
	next  *lruEntry
}

// boundedLRU is the in-memory hot tier in front of the on-disk store. An
// optional Bloom pre-filter short-circuits definite misses without taking
// the map lock, trading a small false-positive rate for avoiding lock
// contention on the common hit/cold path.
type boundedLRU struct {
	mu      sync.Mutex
	entries map[string]*lruEntry
	head    *lruEntry
	tail    *lruEntry

	maxEntries int
	filter     *bloomFilter

	hits          atomic.Int64
	misses        atomic.Int64
	bloomFiltered atomic.Int64
}

const defaultBloomFPRate = 0.01

// newBoundedLRU creates a hot tier capped at maxEntries. When
// expectedKeys > 0 a Bloom pre-filter is attached.
func newBoundedLRU(maxEntries int, expectedKeys uint) *boundedLRU {
	c := &boundedLRU{
		entries:    make(map[string]*lruEntry),
		maxEntries: maxEntries,
	}

	if expectedKeys > 0 {
		// Sizing failure is structurally impossible: expectedKeys > 0 and
		// defaultBloomFPRate is a constant in (0, 1).
		filter, err := newBloomFilter(expectedKeys, defaultBloomFPRate)
		if err == nil {
			c.filter = filter
		}
	}

	return c
}

func (c *boundedLRU) get(key string) ([]byte, bool) {
	if c.filter != nil && !c.filter.maybeContains(key) {
		c.bloomFiltered.Add(1)
		c.misses.Add(1)

		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		return nil, false
	}

	c.moveToFront(e)
	c.hits.Add(1)

	return e.value, true
}

func (c *boundedLRU) set(key string, value []byte) {
	if c.filter != nil {
		c.filter.add(key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)

		return
	}

	e := &lruEntry{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// removePrefix drops every entry whose key begins with prefix.
func (c *boundedLRU) removePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if len(prefix) > 0 && !hasPrefix(key, prefix) {
			continue
		}

		c.unlink(e)
		delete(c.entries, key)
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (c *boundedLRU) moveToFront(e *lruEntry) {
	if c.head == e {
		return
	}

	c.unlink(e)
	c.pushFront(e)
}

func (c *boundedLRU) pushFront(e *lruEntry) {
	e.prev = nil
	e.next = c.head

	if c.head != nil {
		c.head.prev = e
	}

	c.head = e

	if c.tail == nil {
		c.tail = e
	}
}

func (c *boundedLRU) unlink(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else if c.head == e {
		c.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else if c.tail == e {
		c.tail = e.prev
	}

	e.prev, e.next = nil, nil
}

func (c *boundedLRU) evictTail() {
	if c.tail == nil {
		return
	}

	evicted := c.tail
	c.unlink(evicted)
	delete(c.entries, evicted.key)
}

func (c *boundedLRU) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
