package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/ample-stream/ample/internal/protocol"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRegistry_RecordSent(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())

	reg.RecordSent(protocol.KindAccount, 128)
	reg.RecordSent(protocol.KindAccount, 64)

	got := counterValue(t, reg.MessagesTotal.WithLabelValues("account"))
	if got != 2 {
		t.Fatalf("expected messages_total == 2, got %v", got)
	}

	gotBytes := counterValue(t, reg.BytesTotal.WithLabelValues("account"))
	if gotBytes != 192 {
		t.Fatalf("expected bytes_total == 192, got %v", gotBytes)
	}

	gotNet := counterValue(t, reg.NetworkBytesTransferred)
	if gotNet != 192 {
		t.Fatalf("expected network_bytes_transferred == 192, got %v", gotNet)
	}
}

func TestRegistry_NilReceiverIsNoop(t *testing.T) {
	var reg *Registry

	// None of these should panic.
	reg.RecordSent(protocol.KindBlock, 10)
	reg.RecordCompressedBytes(protocol.KindBlock, 10)
	reg.RecordDropped(protocol.KindBlock, 1)
	reg.SetBuffered(protocol.KindBlock, 1)
	reg.RecordPluginInvocation("replicator")
	reg.SetProcessStats(1.5, 2.5)
}

func TestRegistry_RecordDropped(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())
	reg.RecordDropped(protocol.KindSlotStatus, 7)

	got := counterValue(t, reg.PacketsDroppedTotal.WithLabelValues("slot_status"))
	if got != 7 {
		t.Fatalf("expected packets_dropped_total == 7, got %v", got)
	}
}
