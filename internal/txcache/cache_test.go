package txcache

import (
	"testing"

	"github.com/ample-stream/ample/internal/protocol"
)

func TestCache_PutTake(t *testing.T) {
	c := New(2)
	sig := [64]byte{1}
	tx := &protocol.Transaction{Slot: 1, Signature: sig}

	c.Put(sig, tx)
	got, ok := c.Take(sig)
	if !ok {
		t.Fatal("expected Take to find the entry")
	}
	if got.Slot != tx.Slot {
		t.Fatalf("expected the inserted record back, got %+v", got)
	}

	if _, ok := c.Take(sig); ok {
		t.Fatal("expected Take to remove the entry")
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	a, b, d := [64]byte{1}, [64]byte{2}, [64]byte{3}

	c.Put(a, &protocol.Transaction{Slot: 1})
	c.Put(b, &protocol.Transaction{Slot: 2})
	c.Put(d, &protocol.Transaction{Slot: 3}) // evicts a (least recently used)

	if _, ok := c.Take(a); ok {
		t.Fatal("expected a to have been evicted")
	}
	if _, ok := c.Take(b); !ok {
		t.Fatal("expected b to still be cached")
	}
	if _, ok := c.Take(d); !ok {
		t.Fatal("expected d to still be cached")
	}
}

func TestCache_PutRefreshesRecency(t *testing.T) {
	c := New(2)
	a, b, d := [64]byte{1}, [64]byte{2}, [64]byte{3}

	c.Put(a, &protocol.Transaction{Slot: 1})
	c.Put(b, &protocol.Transaction{Slot: 2})
	c.Put(a, &protocol.Transaction{Slot: 99}) // touches a, making b the LRU entry
	c.Put(d, &protocol.Transaction{Slot: 3})  // evicts b

	if _, ok := c.Take(b); ok {
		t.Fatal("expected b to have been evicted")
	}
	got, ok := c.Take(a)
	if !ok {
		t.Fatal("expected a to still be cached")
	}
	if got.Slot != 99 {
		t.Fatalf("expected the overwritten value, got %+v", got)
	}
}

func TestCache_Len(t *testing.T) {
	c := New(5)
	c.Put([64]byte{1}, &protocol.Transaction{})
	c.Put([64]byte{2}, &protocol.Transaction{})
	if c.Len() != 2 {
		t.Fatalf("expected Len() == 2, got %d", c.Len())
	}
}
