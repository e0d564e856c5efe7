package coalescer

import (
	"testing"
	"time"

	"github.com/ample-stream/ample/internal/protocol"
)

func account(pubkey [32]byte, writeVersion uint64) *protocol.Account {
	return &protocol.Account{Slot: 10, Pubkey: pubkey, Lamports: writeVersion, WriteVersion: writeVersion}
}

func TestCoalescer_BuffersWithinWindow(t *testing.T) {
	c := New(50 * time.Millisecond)
	key := [32]byte{1}

	for i := uint64(1); i <= 3; i++ {
		if batch := c.Coalesce(account(key, i)); batch != nil {
			t.Fatalf("expected nil batch within the coalesce window, got %v", batch)
		}
	}
}

func TestCoalescer_FlushesLastValueOnly(t *testing.T) {
	c := New(10 * time.Millisecond)
	key := [32]byte{1}

	for i := uint64(1); i <= 100; i++ {
		c.Coalesce(account(key, i))
	}

	time.Sleep(15 * time.Millisecond)

	batch := c.Coalesce(account(key, 101))
	if batch == nil {
		t.Fatal("expected a batch once the coalesce window elapsed")
	}
	if len(batch) != 1 {
		t.Fatalf("expected exactly one record for key, got %d", len(batch))
	}
	if batch[0].WriteVersion != 101 {
		t.Fatalf("expected the last update (101) to survive, got %d", batch[0].WriteVersion)
	}
}

func TestCoalescer_ZeroDuration_EmitsImmediately(t *testing.T) {
	c := New(0)
	key := [32]byte{2}

	batch := c.Coalesce(account(key, 1))
	if len(batch) != 1 {
		t.Fatalf("expected a one-element batch, got %v", batch)
	}

	batch = c.Coalesce(account(key, 2))
	if len(batch) != 1 || batch[0].WriteVersion != 2 {
		t.Fatalf("expected immediate one-element batch for the second update, got %v", batch)
	}
}

func TestCoalescer_MultipleKeysFlushTogether(t *testing.T) {
	c := New(10 * time.Millisecond)
	a, b := [32]byte{1}, [32]byte{2}

	c.Coalesce(account(a, 1))
	c.Coalesce(account(b, 1))

	time.Sleep(15 * time.Millisecond)
	batch := c.Coalesce(account(a, 2))
	if len(batch) != 2 {
		t.Fatalf("expected both keys in the flushed batch, got %d entries", len(batch))
	}
}

func TestCoalescer_CoalescedCountTracksOverwrites(t *testing.T) {
	c := New(time.Hour)
	key := [32]byte{1}

	c.Coalesce(account(key, 1))
	c.Coalesce(account(key, 2))
	c.Coalesce(account(key, 3))

	if got := c.CoalescedCount(); got != 2 {
		t.Fatalf("expected 2 overwrites counted, got %d", got)
	}
}

func TestCoalescer_Flush_ForcesImmediateDrain(t *testing.T) {
	c := New(time.Hour)
	key := [32]byte{1}
	c.Coalesce(account(key, 1))

	batch := c.Flush()
	if len(batch) != 1 {
		t.Fatalf("expected Flush to drain the buffered record, got %v", batch)
	}
}
