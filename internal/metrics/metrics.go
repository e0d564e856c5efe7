// Package metrics exposes the counters and gauges named in spec §4.7 as a
// small Prometheus registry, grounded on the same façade pattern as
// adred-codev-ws_poc's metrics.Registry: a struct of pre-registered
// collectors rather than a global singleton. Wiring the registry to an
// actual HTTP /metrics exporter is the embedding program's job (out of
// scope here per spec §1); every method here is safe to call on a nil
// *Registry, so a caller that never constructs one gets silent no-ops.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ample-stream/ample/internal/protocol"
)

// Registry holds every collector this module updates.
type Registry struct {
	MessagesTotal           *prometheus.CounterVec
	BytesTotal              *prometheus.CounterVec
	CompressedBytesTotal    *prometheus.CounterVec
	PacketsDroppedTotal     *prometheus.CounterVec
	BufferedMessages        *prometheus.GaugeVec
	NetworkBytesTransferred prometheus.Counter
	LoadedPlugins           *prometheus.CounterVec
	ProcessCPUPercent       prometheus.Gauge
	ProcessMemoryPercent    prometheus.Gauge
}

// NewRegistry registers every ample_* collector against reg. Pass a fresh
// prometheus.NewRegistry() to keep ample's metrics isolated from any
// default/global registry, or an existing Registerer to fold them into
// the embedding program's own exporter.
func NewRegistry(reg prometheus.Registerer) *Registry {
	f := promauto.With(reg)

	return &Registry{
		MessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ample_messages_total",
			Help: "Total number of records pumped onto a stream, by kind.",
		}, []string{"kind"}),
		BytesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ample_bytes_total",
			Help: "Total uncompressed record bytes written to a stream, by kind.",
		}, []string{"kind"}),
		CompressedBytesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ample_compressed_bytes_total",
			Help: "Total bytes observed on the wire before decompression, by kind.",
		}, []string{"kind"}),
		PacketsDroppedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ample_packets_dropped_total",
			Help: "Total records dropped by the broadcast bus's lossy-tail policy, by kind.",
		}, []string{"kind"}),
		BufferedMessages: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ample_buffered_messages",
			Help: "Records currently buffered in a broadcast bus queue, by kind.",
		}, []string{"kind"}),
		NetworkBytesTransferred: f.NewCounter(prometheus.CounterOpts{
			Name: "ample_network_bytes_transferred_total",
			Help: "Total bytes transferred across every stream kind combined.",
		}),
		LoadedPlugins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ample_loaded_plugins_total",
			Help: "Plugin callback invocations, by plugin name.",
		}, []string{"plugin"}),
		ProcessCPUPercent: f.NewGauge(prometheus.GaugeOpts{
			Name: "ample_process_cpu_percent",
			Help: "Host-wide CPU utilisation, sampled periodically.",
		}),
		ProcessMemoryPercent: f.NewGauge(prometheus.GaugeOpts{
			Name: "ample_process_memory_percent",
			Help: "Host-wide memory utilisation, sampled periodically.",
		}),
	}
}

// RecordSent updates the per-stream counters after a record has been
// written to the wire: messages_total, bytes_total, and the global
// network_bytes_transferred counter.
func (r *Registry) RecordSent(kind protocol.Kind, rawBytes int) {
	if r == nil {
		return
	}
	r.MessagesTotal.WithLabelValues(kind.String()).Inc()
	r.BytesTotal.WithLabelValues(kind.String()).Add(float64(rawBytes))
	r.NetworkBytesTransferred.Add(float64(rawBytes))
}

// RecordCompressedBytes adds n to compressed_bytes_total for kind.
func (r *Registry) RecordCompressedBytes(kind protocol.Kind, n uint64) {
	if r == nil {
		return
	}
	r.CompressedBytesTotal.WithLabelValues(kind.String()).Add(float64(n))
}

// RecordDropped adds n to packets_dropped_total for kind (a Lagged(n)
// report surfaced from the broadcast bus).
func (r *Registry) RecordDropped(kind protocol.Kind, n uint64) {
	if r == nil {
		return
	}
	r.PacketsDroppedTotal.WithLabelValues(kind.String()).Add(float64(n))
}

// SetBuffered sets the buffered_messages gauge for kind.
func (r *Registry) SetBuffered(kind protocol.Kind, n int) {
	if r == nil {
		return
	}
	r.BufferedMessages.WithLabelValues(kind.String()).Set(float64(n))
}

// RecordPluginInvocation increments loaded_plugins for a named plugin.
func (r *Registry) RecordPluginInvocation(plugin string) {
	if r == nil {
		return
	}
	r.LoadedPlugins.WithLabelValues(plugin).Inc()
}

// SetProcessStats updates the ambient resource gauges.
func (r *Registry) SetProcessStats(cpuPercent, memPercent float64) {
	if r == nil {
		return
	}
	r.ProcessCPUPercent.Set(cpuPercent)
	r.ProcessMemoryPercent.Set(memPercent)
}
