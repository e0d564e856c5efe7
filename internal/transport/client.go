package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"log/slog"
	"sync/atomic"

	"github.com/quic-go/quic-go"

	"github.com/ample-stream/ample/internal/broadcast"
	"github.com/ample-stream/ample/internal/compress"
	"github.com/ample-stream/ample/internal/metrics"
	"github.com/ample-stream/ample/internal/protocol"
	"github.com/ample-stream/ample/internal/replicator"
)

// Handle bundles the five subscriber endpoints a consumer dequeues from,
// plus the shared exit flag demux tasks raise on an unrecoverable read
// error (spec §4.5, §5 cancellation). It is the return value of Dial.
type Handle struct {
	Subscribers replicator.Subscribers

	buses Buses
	exit  atomic.Bool
}

// Closed reports whether any demux task has raised the shared exit flag.
func (h *Handle) Closed() bool {
	return h.exit.Load()
}

// Client dials a transport server and demultiplexes its five streams.
type Client struct {
	quicCfg     *quic.Config
	metrics     *metrics.Registry
	logger      *slog.Logger
	maxFrameLen uint32
}

// NewClient constructs a Client. quicCfg may be nil to accept quic-go's
// defaults. maxFrameBytes bounds a single incoming record frame (see
// config.ClientConfig.MaxFrameBytesRaw); 0 falls back to
// protocol.MaxFrameLen.
func NewClient(quicCfg *quic.Config, m *metrics.Registry, logger *slog.Logger, maxFrameBytes int64) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if maxFrameBytes <= 0 {
		maxFrameBytes = protocol.MaxFrameLen
	}
	return &Client{
		quicCfg:     quicCfg,
		metrics:     m,
		logger:      logger.With("component", "transport_client"),
		maxFrameLen: uint32(maxFrameBytes),
	}
}

// Dial connects to addr (tlsConf must pin the server's trust root and
// carry pki.ALPN), accepts the five server-initiated streams in the
// order the server opens them, and spawns one demux task per stream.
// capacities sizes the five local broadcast buses, one field per kind; see
// config.BusCapacities for the per-kind defaults.
func (c *Client) Dial(ctx context.Context, addr string, tlsConf *tls.Config, capacities BusCapacities) (*Handle, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConf, c.quicCfg)
	if err != nil {
		return nil, &TransportDialError{Err: err}
	}

	buses := Buses{
		Account:     broadcast.New[*protocol.Account](capacities.Account),
		Transaction: broadcast.New[*protocol.Transaction](capacities.Transaction),
		Entry:       broadcast.New[*protocol.Entry](capacities.Entry),
		Block:       broadcast.New[*protocol.Block](capacities.Block),
		SlotStatus:  broadcast.New[*protocol.SlotStatus](capacities.SlotStatus),
	}

	h := &Handle{
		buses: buses,
		Subscribers: replicator.Subscribers{
			Account:     buses.Account.Subscribe(),
			Transaction: buses.Transaction.Subscribe(),
			Entry:       buses.Entry.Subscribe(),
			Block:       buses.Block.Subscribe(),
			SlotStatus:  buses.SlotStatus.Subscribe(),
		},
	}

	for i := 0; i < len(protocol.Kinds); i++ {
		stream, err := conn.AcceptUniStream(ctx)
		if err != nil {
			h.exit.Store(true)
			return nil, &TransportConnectionError{Err: err}
		}
		go c.demux(ctx, stream, h)
	}

	return h, nil
}

// BusCapacities is a local alias kept distinct from config.BusCapacities
// so this package does not need to import config; callers pass the
// values straight through.
type BusCapacities struct {
	Account     int
	Transaction int
	Entry       int
	Block       int
	SlotStatus  int
}

// demux reads the stream's preamble, wraps it in the announced
// decompressor behind a counting reader (so compressed_bytes_total
// reflects wire bytes before decompression), then repeatedly reads
// length-prefixed frames, decodes, and publishes to the matching bus. A
// decode failure is logged and the stream continues; any read failure
// raises the shared exit flag and ends this task (spec §4.5, §7).
func (c *Client) demux(ctx context.Context, stream *quic.ReceiveStream, h *Handle) {
	logger := c.logger

	mode, opByte, err := protocol.ReadStreamPreamble(stream)
	if err != nil {
		logger.Error("reading stream preamble", "error", err)
		h.exit.Store(true)
		return
	}

	kind, ok := protocol.KindFromOp(opByte)
	if !ok {
		logger.Error("invalid stream opcode", "byte", byte(opByte))
		h.exit.Store(true)
		return
	}
	logger = logger.With("kind", kind)

	counting := compress.NewCountingReader(stream)
	r, err := compress.WrapReader(counting, compress.Mode(mode))
	if err != nil {
		// An unrecognised compression-mode byte falls back to no
		// compression rather than failing the connection (spec §4.5) —
		// only an unrecognised kind byte is fatal.
		logger.Warn("unrecognised compression mode, treating as uncompressed", "byte", byte(mode))
		r, _ = compress.WrapReader(counting, protocol.OpUseNone)
	}

	var reported uint64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		body, err := protocol.ReadFrameMax(r, c.maxFrameLen)
		if err != nil {
			logger.Error("reading frame", "error", err)
			h.exit.Store(true)
			return
		}

		// BytesRead is cumulative; add only what was read since the last frame.
		total := counting.BytesRead()
		c.metrics.RecordCompressedBytes(kind, total-reported)
		reported = total

		record, err := protocol.DecodeRecord(kind, bytes.NewReader(body))
		if err != nil {
			logger.Error("decoding record, skipping frame", "error", err)
			continue
		}

		publish(h.buses, kind, record)
	}
}

// publish fans a decoded record out to its matching bus. The type switch
// mirrors EncodeRecord/DecodeRecord's dispatch and is the one place a new
// record kind needs a matching case added.
func publish(buses Buses, kind protocol.Kind, r protocol.Record) {
	switch kind {
	case protocol.KindAccount:
		buses.Account.Publish(r.(*protocol.Account))
	case protocol.KindTransaction:
		buses.Transaction.Publish(r.(*protocol.Transaction))
	case protocol.KindEntry:
		buses.Entry.Publish(r.(*protocol.Entry))
	case protocol.KindBlock:
		buses.Block.Publish(r.(*protocol.Block))
	case protocol.KindSlotStatus:
		buses.SlotStatus.Publish(r.(*protocol.SlotStatus))
	}
}
