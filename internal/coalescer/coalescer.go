// Package coalescer damps producer-side write amplification on the account
// stream: repeated updates to the same account key inside one coalesce
// window collapse to the last-observed value (spec §4.3).
package coalescer

import (
	"sync"
	"time"

	"github.com/ample-stream/ample/internal/protocol"
)

// Coalescer buffers Account records keyed by pubkey and flushes a batch
// once coalesceDuration has elapsed since the last flush. The critical
// section (insert-or-flush) never performs I/O, matching the teacher's
// chunk buffer discipline of keeping locked sections short.
type Coalescer struct {
	coalesceDuration time.Duration

	mu         sync.Mutex
	buffered   map[[32]byte]*protocol.Account
	lastFlush  time.Time
	coalesced  uint64 // telemetry: updates that overwrote a still-buffered entry
}

// New creates a Coalescer with the given window. A zero duration makes
// Coalesce emit every record immediately as a one-element batch.
func New(coalesceDuration time.Duration) *Coalescer {
	return &Coalescer{
		coalesceDuration: coalesceDuration,
		buffered:         make(map[[32]byte]*protocol.Account),
		lastFlush:        time.Now(),
	}
}

// Coalesce inserts or overwrites record under its pubkey. If the coalesce
// window has elapsed since the last flush, it drains the buffer and
// returns the batch; otherwise it returns nil (buffered, nothing emitted
// yet). An empty buffer at flush time returns an empty, non-nil batch.
func (c *Coalescer) Coalesce(record *protocol.Account) []*protocol.Account {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.buffered[record.Pubkey]; exists {
		c.coalesced++
	}
	c.buffered[record.Pubkey] = record

	if c.coalesceDuration == 0 {
		batch := []*protocol.Account{record}
		delete(c.buffered, record.Pubkey)
		return batch
	}

	if time.Since(c.lastFlush) < c.coalesceDuration {
		return nil
	}

	return c.drainLocked()
}

func (c *Coalescer) drainLocked() []*protocol.Account {
	batch := make([]*protocol.Account, 0, len(c.buffered))
	for _, a := range c.buffered {
		batch = append(batch, a)
	}
	c.buffered = make(map[[32]byte]*protocol.Account)
	c.lastFlush = time.Now()
	return batch
}

// Flush forces an immediate drain regardless of elapsed time, for shutdown
// paths that must not drop buffered records.
func (c *Coalescer) Flush() []*protocol.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drainLocked()
}

// CoalescedCount returns the number of updates that overwrote a
// still-buffered entry since construction — telemetry only.
func (c *Coalescer) CoalescedCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coalesced
}
