// Command ample-server binds the QUIC transport and pumps the five event
// buses it owns out to every connecting client. The producer-side event
// source that feeds those buses — the thing that actually observes
// accounts, transactions, entries, blocks, and slot status — is an
// external collaborator (spec §1) and is not implemented here; this
// binary assembles the rest of the pipeline and blocks serving.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/quic-go/quic-go"

	"github.com/ample-stream/ample/internal/broadcast"
	"github.com/ample-stream/ample/internal/coalescer"
	"github.com/ample-stream/ample/internal/config"
	"github.com/ample-stream/ample/internal/logging"
	"github.com/ample-stream/ample/internal/metrics"
	"github.com/ample-stream/ample/internal/pki"
	"github.com/ample-stream/ample/internal/protocol"
	"github.com/ample-stream/ample/internal/resources"
	"github.com/ample-stream/ample/internal/transport"
)

func main() {
	configPath := flag.String("config", "/etc/ample/server.yaml", "path to server config file")
	flag.Parse()

	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, closer := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "")
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// accountSink is the producer-facing side of the account path: every raw
// update passes through the coalescer (if enabled) before reaching the
// bus the stream pump reads from. An embedding producer calls Publish;
// nothing in this binary calls it, since the event source is out of scope.
type accountSink struct {
	bus       *broadcast.Bus[*protocol.Account]
	coalescer *coalescer.Coalescer
}

func (s *accountSink) Publish(record *protocol.Account) {
	if s.coalescer == nil {
		s.bus.Publish(record)
		return
	}
	for _, a := range s.coalescer.Coalesce(record) {
		s.bus.Publish(a)
	}
}

// run wires TLS material, the Metrics Surface, the five buses, the
// account coalescer, the resource monitor, and the transport server
// together, then blocks serving until ctx is cancelled.
func run(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) error {
	tlsConf, err := pki.NewServerTLSConfig(cfg.Transport.CertPath, cfg.Transport.KeyPath)
	if err != nil {
		return fmt.Errorf("loading TLS material: %w", err)
	}

	reg := metrics.NewRegistry(prometheus.NewRegistry())

	if cfg.ResourceMonitor.IsEnabled() {
		mon := resources.New(cfg.ResourceMonitor.SampleInterval, reg, logger)
		mon.Start()
		defer mon.Stop()
	}

	buses := transport.Buses{
		Account:     broadcast.New[*protocol.Account](cfg.BusCapacities.Account),
		Transaction: broadcast.New[*protocol.Transaction](cfg.BusCapacities.Transaction),
		Entry:       broadcast.New[*protocol.Entry](cfg.BusCapacities.Entry),
		Block:       broadcast.New[*protocol.Block](cfg.BusCapacities.Block),
		SlotStatus:  broadcast.New[*protocol.SlotStatus](cfg.BusCapacities.SlotStatus),
	}

	var accounts accountSink
	accounts.bus = buses.Account
	if cfg.UseAccountCoalescer {
		accounts.coalescer = coalescer.New(cfg.CoalesceDuration())
	}
	_ = accounts // attachment point for the out-of-scope producer

	mode := protocol.OpUseNone
	switch {
	case cfg.TransportCfg.UseLz4Compression:
		mode = protocol.OpUseLz4
	case cfg.TransportCfg.UseZstdCompression:
		mode = protocol.OpUseZstd
	}

	srv := transport.NewServer(buses, mode, &quic.Config{}, reg, logger)
	return srv.Serve(ctx, cfg.BindAddr, tlsConf)
}
