// Package replicator implements the client-side shim that drains the five
// broadcast subscriber endpoints into the consumer's plugin callback
// surface (spec §4.6). It owns the transaction correlation cache and
// imposes the fixed drain order (transactions, accounts, block, entry,
// slot) that lets the account callback look up a correlated transaction
// before invoking plugins.
package replicator

import (
	"context"
	"log/slog"

	"github.com/ample-stream/ample/internal/broadcast"
	"github.com/ample-stream/ample/internal/metrics"
	"github.com/ample-stream/ample/internal/protocol"
	"github.com/ample-stream/ample/internal/txcache"
)

// PluginManager is the consumer-side collaborator that dispatches a
// decoded record to every loaded plugin. It is an external interface
// (spec §1's "consumer-side plugin-manager that receives demultiplexed
// records") — this package only defines the shape it needs.
type PluginManager interface {
	OnAccount(ctx context.Context, record *protocol.Account, txn *protocol.Transaction) error
	OnTransaction(ctx context.Context, record *protocol.Transaction) error
	OnEntry(ctx context.Context, record *protocol.Entry) error
	OnBlock(ctx context.Context, record *protocol.Block) error
	OnSlotStatus(ctx context.Context, record *protocol.SlotStatus) error
}

// Subscribers holds one broadcast subscriber per event kind, the client's
// demuxed delivery endpoints feeding into Replicate.
type Subscribers struct {
	Account     *broadcast.Subscriber[*protocol.Account]
	Transaction *broadcast.Subscriber[*protocol.Transaction]
	Entry       *broadcast.Subscriber[*protocol.Entry]
	Block       *broadcast.Subscriber[*protocol.Block]
	SlotStatus  *broadcast.Subscriber[*protocol.SlotStatus]
}

// Shim drains Subscribers into a PluginManager, one non-blocking receive
// per kind per Replicate call, in the fixed order transactions, accounts,
// block, entry, slot.
type Shim struct {
	subs    Subscribers
	plugins PluginManager
	cache   *txcache.Cache
	log     *slog.Logger
	metrics *metrics.Registry
}

// New constructs a Shim. cacheCapacity sizes the transaction correlation
// cache (spec §4.6, §9 Open Question: correlation is implemented since
// spec.md names it a feature, not a deferred extension).
func New(subs Subscribers, plugins PluginManager, cacheCapacity int, log *slog.Logger, m *metrics.Registry) *Shim {
	if log == nil {
		log = slog.Default()
	}
	return &Shim{
		subs:    subs,
		plugins: plugins,
		cache:   txcache.New(cacheCapacity),
		log:     log.With("component", "replicator"),
		metrics: m,
	}
}

// Replicate attempts one non-blocking receive on each of the five
// subscriber endpoints and, for each record obtained, invokes the
// corresponding plugin callback. A closed receiver is treated as empty
// for this tick. Plugin callback errors are logged and swallowed — one
// bad plugin must not starve the pipeline.
func (s *Shim) Replicate(ctx context.Context) {
	s.drainTransaction(ctx)
	s.drainAccount(ctx)
	s.drainBlock(ctx)
	s.drainEntry(ctx)
	s.drainSlotStatus(ctx)
}

func (s *Shim) drainTransaction(ctx context.Context) {
	ev, ok := s.subs.Transaction.TryReceive()
	if !ok {
		return
	}
	if ev.Kind == broadcast.EventLagged {
		s.metrics.RecordDropped(protocol.KindTransaction, ev.Lagged)
		return
	}
	if ev.Kind != broadcast.EventRecord {
		return
	}
	record := ev.Record
	s.cache.Put(record.Signature, record)
	if err := s.plugins.OnTransaction(ctx, record); err != nil {
		s.log.Warn("plugin callback failed", "kind", "transaction", "error", err)
	}
}

func (s *Shim) drainAccount(ctx context.Context) {
	ev, ok := s.subs.Account.TryReceive()
	if !ok {
		return
	}
	if ev.Kind == broadcast.EventLagged {
		s.metrics.RecordDropped(protocol.KindAccount, ev.Lagged)
		return
	}
	if ev.Kind != broadcast.EventRecord {
		return
	}
	record := ev.Record

	var txn *protocol.Transaction
	if record.TxSignature != nil {
		if found, ok := s.cache.Take(*record.TxSignature); ok {
			txn = found
		}
	}

	if err := s.plugins.OnAccount(ctx, record, txn); err != nil {
		s.log.Warn("plugin callback failed", "kind", "account", "error", err)
	}
}

func (s *Shim) drainBlock(ctx context.Context) {
	ev, ok := s.subs.Block.TryReceive()
	if !ok {
		return
	}
	if ev.Kind == broadcast.EventLagged {
		s.metrics.RecordDropped(protocol.KindBlock, ev.Lagged)
		return
	}
	if ev.Kind != broadcast.EventRecord {
		return
	}
	if err := s.plugins.OnBlock(ctx, ev.Record); err != nil {
		s.log.Warn("plugin callback failed", "kind", "block", "error", err)
	}
}

func (s *Shim) drainEntry(ctx context.Context) {
	ev, ok := s.subs.Entry.TryReceive()
	if !ok {
		return
	}
	if ev.Kind == broadcast.EventLagged {
		s.metrics.RecordDropped(protocol.KindEntry, ev.Lagged)
		return
	}
	if ev.Kind != broadcast.EventRecord {
		return
	}
	if err := s.plugins.OnEntry(ctx, ev.Record); err != nil {
		s.log.Warn("plugin callback failed", "kind", "entry", "error", err)
	}
}

func (s *Shim) drainSlotStatus(ctx context.Context) {
	ev, ok := s.subs.SlotStatus.TryReceive()
	if !ok {
		return
	}
	if ev.Kind == broadcast.EventLagged {
		s.metrics.RecordDropped(protocol.KindSlotStatus, ev.Lagged)
		return
	}
	if ev.Kind != broadcast.EventRecord {
		return
	}
	if err := s.plugins.OnSlotStatus(ctx, ev.Record); err != nil {
		s.log.Warn("plugin callback failed", "kind", "slot_status", "error", err)
	}
}
