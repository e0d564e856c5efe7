// Package plugins provides a minimal stand-in PluginManager that logs
// every demultiplexed record. The real plugin-manager — dynamically
// loading consumer-supplied event handlers from the manifests named in
// client config — is an external collaborator out of scope here (spec
// §1); this is what the replicator shim drives until one is wired in.
package plugins

import (
	"context"
	"log/slog"

	"github.com/ample-stream/ample/internal/metrics"
	"github.com/ample-stream/ample/internal/protocol"
)

// LoggingManager satisfies replicator.PluginManager by logging each
// record at debug level and counting the invocation in the Metrics
// Surface's loaded_plugins counter under the name "logging".
type LoggingManager struct {
	logger  *slog.Logger
	metrics *metrics.Registry
}

// New constructs a LoggingManager.
func New(logger *slog.Logger, m *metrics.Registry) *LoggingManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingManager{logger: logger.With("component", "plugin_manager"), metrics: m}
}

const pluginName = "logging"

func (p *LoggingManager) OnAccount(_ context.Context, r *protocol.Account, txn *protocol.Transaction) error {
	p.metrics.RecordPluginInvocation(pluginName)
	p.logger.Debug("account", "slot", r.Slot, "pubkey", r.Pubkey, "correlated", txn != nil)
	return nil
}

func (p *LoggingManager) OnTransaction(_ context.Context, r *protocol.Transaction) error {
	p.metrics.RecordPluginInvocation(pluginName)
	p.logger.Debug("transaction", "slot", r.Slot, "signature", r.Signature, "index", r.Index)
	return nil
}

func (p *LoggingManager) OnEntry(_ context.Context, r *protocol.Entry) error {
	p.metrics.RecordPluginInvocation(pluginName)
	p.logger.Debug("entry", "slot", r.Slot, "index", r.Index)
	return nil
}

func (p *LoggingManager) OnBlock(_ context.Context, r *protocol.Block) error {
	p.metrics.RecordPluginInvocation(pluginName)
	p.logger.Debug("block", "slot", r.Slot, "block_hash", r.BlockHash)
	return nil
}

func (p *LoggingManager) OnSlotStatus(_ context.Context, r *protocol.SlotStatus) error {
	p.metrics.RecordPluginInvocation(pluginName)
	p.logger.Debug("slot_status", "slot", r.Slot, "status", r.Status)
	return nil
}
