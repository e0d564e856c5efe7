// Command ample-client dials a transport server, demultiplexes its five
// streams, and replicates decoded records to a plugin manager on a fixed
// drain order. The plugin manager that actually consumes those records is
// an external collaborator (spec §1); this binary wires in a logging
// stand-in until a real one is loaded from the configured manifests.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/quic-go/quic-go"

	"github.com/ample-stream/ample/internal/config"
	"github.com/ample-stream/ample/internal/logging"
	"github.com/ample-stream/ample/internal/metrics"
	"github.com/ample-stream/ample/internal/pki"
	"github.com/ample-stream/ample/internal/plugins"
	"github.com/ample-stream/ample/internal/replicator"
	"github.com/ample-stream/ample/internal/transport"
)

// replicateTick is how often the client drains the five subscriber queues.
// The drain itself is non-blocking per kind (spec §4.6); this only bounds
// how long a consumer waits for a batch it could otherwise read instantly.
const replicateTick = 10 * time.Millisecond

func main() {
	configPath := flag.String("config", "/etc/ample/client.yaml", "path to client config file")
	flag.Parse()

	cfg, err := config.LoadClientConfig(*configPath)
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
		logger.Error("client error", "error", err)
		os.Exit(1)
	}
}

// run dials the upstream server, wires the replicator shim to a plugin
// manager, and drains events on a ticker until ctx is cancelled or the
// connection's shared exit flag is raised.
func run(ctx context.Context, cfg *config.ClientConfig, logger *slog.Logger) error {
	tlsConf, err := pki.NewClientTLSConfig(cfg.TrustRootPath, cfg.ServerFQDN)
	if err != nil {
		return fmt.Errorf("loading TLS material: %w", err)
	}

	reg := metrics.NewRegistry(prometheus.NewRegistry())

	if len(cfg.PluginManifests) > 0 {
		logger.Warn("dynamic plugin loading is not implemented, falling back to the logging plugin manager",
			"manifests", cfg.PluginManifests)
	}
	pluginManager := plugins.New(logger, reg)

	client := transport.NewClient(&quic.Config{}, reg, logger, cfg.MaxFrameBytesRaw)
	capacities := transport.BusCapacities{
		Account:     cfg.BusCapacities.Account,
		Transaction: cfg.BusCapacities.Transaction,
		Entry:       cfg.BusCapacities.Entry,
		Block:       cfg.BusCapacities.Block,
		SlotStatus:  cfg.BusCapacities.SlotStatus,
	}

	handle, err := client.Dial(ctx, cfg.UpstreamAddr, tlsConf, capacities)
	if err != nil {
		return fmt.Errorf("dialing upstream: %w", err)
	}

	shim := replicator.New(handle.Subscribers, pluginManager, cfg.ReplicatorCacheCapacity, logger, reg)

	ticker := time.NewTicker(replicateTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if handle.Closed() {
				return fmt.Errorf("upstream connection lost")
			}
			shim.Replicate(ctx)
		}
	}
}
