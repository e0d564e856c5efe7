// Package transport implements the secure multiplexed connection between
// producer (server) and consumer (client): one QUIC connection per
// client, five server-initiated unidirectional streams per connection
// (spec §4.4, §4.5), grounded on xendarboh-katzenpost/sockatz/common's
// use of github.com/quic-go/quic-go — the only pack example actually
// driving it — and on the teacher's internal/server/server.go accept-loop
// backoff discipline.
package transport

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/ample-stream/ample/internal/broadcast"
	"github.com/ample-stream/ample/internal/compress"
	"github.com/ample-stream/ample/internal/metrics"
	"github.com/ample-stream/ample/internal/protocol"
)

// Buses bundles the server-side publish endpoint for each event kind. A
// stream pump subscribes to the matching bus internally; publishing is
// the producer-side event source's job (out of scope here, spec §1).
type Buses struct {
	Account     *broadcast.Bus[*protocol.Account]
	Transaction *broadcast.Bus[*protocol.Transaction]
	Entry       *broadcast.Bus[*protocol.Entry]
	Block       *broadcast.Bus[*protocol.Block]
	SlotStatus  *broadcast.Bus[*protocol.SlotStatus]
}

// Server binds a QUIC endpoint and, for every accepted connection, opens
// the five streams in fixed order and pumps each bus into its stream.
type Server struct {
	buses   Buses
	mode    protocol.StreamOp
	quicCfg *quic.Config
	metrics *metrics.Registry
	logger  *slog.Logger
}

// NewServer constructs a Server. mode selects the stream compressor
// (OpUseLz4, OpUseZstd, or OpUseNone) and is fixed for the server's
// lifetime — compression is negotiated once per deployment, not per
// connection. quicCfg may be nil to accept quic-go's defaults.
func NewServer(buses Buses, mode protocol.StreamOp, quicCfg *quic.Config, m *metrics.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		buses:   buses,
		mode:    mode,
		quicCfg: quicCfg,
		metrics: m,
		logger:  logger.With("component", "transport_server"),
	}
}

// Serve binds addr with tlsConf (NextProtos must include pki.ALPN) and
// blocks accepting connections until ctx is cancelled. Each connection is
// handled in its own goroutine; the accept loop backs off on consecutive
// errors rather than hot-looping, grounded on the teacher's
// internal/server/server.go Run.
func (s *Server) Serve(ctx context.Context, addr string, tlsConf *tls.Config) error {
	ln, err := quic.ListenAddr(addr, tlsConf, s.quicCfg)
	if err != nil {
		return &TransportConnectionError{Err: err}
	}
	defer ln.Close()

	s.logger.Info("transport server listening", "address", addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	consecutiveErrors := 0
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				s.logger.Info("transport server shutdown complete")
				return nil
			default:
			}
			consecutiveErrors++
			s.logger.Error("accepting connection", "error", err, "consecutive_errors", consecutiveErrors)
			if consecutiveErrors > 5 {
				delay := time.Duration(consecutiveErrors) * 100 * time.Millisecond
				if delay > 5*time.Second {
					delay = 5 * time.Second
				}
				time.Sleep(delay)
			}
			continue
		}

		consecutiveErrors = 0
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection opens the five unidirectional streams in the fixed
// order (Account, Transaction, Entry, Block, SlotStatus) and spawns one
// stream-pump task per kind. A peer disconnect or stream-open failure
// terminates only this connection's goroutines; the accept loop keeps
// running (spec §4.4).
//
// spec §4.4 additionally calls for elevated QUIC-level priority on the
// Transaction and SlotStatus streams. quic-go v0.50.0 (the version this
// package is written against) does not expose a public per-stream
// priority knob on SendStream, so that part of the requirement isn't
// implemented here; see DESIGN.md for the resulting latency-ordering
// caveat.
func (s *Server) handleConnection(ctx context.Context, conn *quic.Conn) {
	logger := s.logger.With("remote", conn.RemoteAddr().String())

	for _, kind := range protocol.Kinds {
		stream, err := conn.OpenUniStreamSync(ctx)
		if err != nil {
			logger.Error("opening stream", "kind", kind, "error", err)
			return
		}

		go s.pump(ctx, stream, kind, logger)
	}
}

// flusher is implemented by lz4.Writer and zstd.Encoder; pumpBus flushes
// after every record so a compressed stream doesn't silently buffer a
// latency-sensitive event.
type flusher interface {
	Flush() error
}

// pump writes the two-byte preamble, wraps the stream in the configured
// compressor, then hands off to the kind-specific generic drain loop.
func (s *Server) pump(ctx context.Context, stream *quic.SendStream, kind protocol.Kind, logger *slog.Logger) {
	defer stream.Close()

	if err := protocol.WriteStreamPreamble(stream, s.mode, kind.StreamOp()); err != nil {
		logger.Error("writing stream preamble", "kind", kind, "error", err)
		return
	}

	wc, err := compress.WrapWriter(stream, compress.Mode(s.mode))
	if err != nil {
		logger.Error("wrapping stream writer", "kind", kind, "error", err)
		return
	}
	defer wc.Close()

	switch kind {
	case protocol.KindAccount:
		pumpBus(ctx, wc, s.buses.Account, kind, s.metrics, logger)
	case protocol.KindTransaction:
		pumpBus(ctx, wc, s.buses.Transaction, kind, s.metrics, logger)
	case protocol.KindEntry:
		pumpBus(ctx, wc, s.buses.Entry, kind, s.metrics, logger)
	case protocol.KindBlock:
		pumpBus(ctx, wc, s.buses.Block, kind, s.metrics, logger)
	case protocol.KindSlotStatus:
		pumpBus(ctx, wc, s.buses.SlotStatus, kind, s.metrics, logger)
	}
}

// pumpBus subscribes to bus and loops: await next record, serialize,
// write length-prefixed body, flush, record metrics. On Lagged(n) it
// records the drop and continues; on Closed it terminates cleanly (spec
// §4.4 stream-pump steps).
func pumpBus[T protocol.Record](ctx context.Context, w io.Writer, bus *broadcast.Bus[T], kind protocol.Kind, m *metrics.Registry, logger *slog.Logger) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	for {
		ev, err := sub.Receive(ctx)
		if err != nil {
			return
		}

		switch ev.Kind {
		case broadcast.EventClosed:
			return
		case broadcast.EventLagged:
			m.RecordDropped(kind, ev.Lagged)
			continue
		}

		n, err := protocol.WriteRecordFrame(w, ev.Record)
		if err != nil {
			logger.Error("encoding record", "kind", kind, "error", err)
			return
		}
		if f, ok := w.(flusher); ok {
			if err := f.Flush(); err != nil {
				logger.Error("flushing stream", "kind", kind, "error", err)
				return
			}
		}

		m.RecordSent(kind, n)
	}
}
