// Package txcache implements the bounded most-recently-used mapping the
// replicator uses to correlate an Account record's transaction_ref back
// to the Transaction record it references (spec §3, §4.6). It is a
// deliberately simple cache, single-threaded (owned by the replicator),
// not a general-purpose concurrent cache — no third-party LRU library in
// the retrieval pack fits this narrowly enough to justify a dependency
// (see DESIGN.md), so it is built on container/list + map the way any
// textbook Go MRU cache is.
package txcache

import (
	"container/list"

	"github.com/ample-stream/ample/internal/protocol"
)

type entry struct {
	signature [64]byte
	record    *protocol.Transaction
}

// Cache is a bounded MRU map from transaction signature to Transaction
// record. Insert is O(1) amortised; capacity overflow evicts the least
// recently used entry silently.
type Cache struct {
	capacity int
	items    map[[64]byte]*list.Element
	order    *list.List // front = most recently used
}

// New creates a Cache with a fixed capacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[[64]byte]*list.Element, capacity),
		order:    list.New(),
	}
}

// Put inserts or overwrites record under its signature, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *Cache) Put(signature [64]byte, record *protocol.Transaction) {
	if el, ok := c.items[signature]; ok {
		el.Value.(*entry).record = record
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{signature: signature, record: record})
	c.items[signature] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).signature)
		}
	}
}

// Take removes and returns the record for signature if present.
func (c *Cache) Take(signature [64]byte) (*protocol.Transaction, bool) {
	el, ok := c.items[signature]
	if !ok {
		return nil, false
	}
	rec := el.Value.(*entry).record
	c.order.Remove(el)
	delete(c.items, signature)
	return rec, true
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	return c.order.Len()
}
