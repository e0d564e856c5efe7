// Package resources samples host-wide CPU and memory utilisation on a
// ticker, grounded on the teacher's internal/agent.SystemMonitor, and
// publishes into the Metrics Surface's two ambient gauges (spec §4.10).
// The samples cover the whole machine, not the ample process alone.
// Present on the server only, the side under the most load.
package resources

import (
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ample-stream/ample/internal/metrics"
)

// Stats is the latest sample collected by Monitor.
type Stats struct {
	CPUPercent    float64
	MemoryPercent float64
}

// Monitor periodically samples CPU/memory and both exposes the latest
// Stats and feeds the shared metrics.Registry gauges.
type Monitor struct {
	logger   *slog.Logger
	metrics  *metrics.Registry
	interval time.Duration

	closeCh chan struct{}
	wg      sync.WaitGroup

	mu    sync.RWMutex
	stats Stats
}

// New creates a Monitor. m may be nil (metrics updates are then skipped).
func New(interval time.Duration, m *metrics.Registry, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		logger:   logger.With("component", "resource_monitor"),
		metrics:  m,
		interval: interval,
		closeCh:  make(chan struct{}),
	}
}

// Start begins periodic sampling in a background goroutine.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop halts sampling and waits for the background goroutine to exit.
func (m *Monitor) Stop() {
	close(m.closeCh)
	m.wg.Wait()
}

// Stats returns the most recently collected sample.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *Monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collect()
	for {
		select {
		case <-m.closeCh:
			return
		case <-ticker.C:
			m.collect()
		}
	}
}

func (m *Monitor) collect() {
	var stats Stats

	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		stats.CPUPercent = percentages[0]
	} else {
		m.logger.Debug("failed to collect cpu stats", "error", err)
	}

	if v, err := mem.VirtualMemory(); err == nil {
		stats.MemoryPercent = v.UsedPercent
	} else {
		m.logger.Debug("failed to collect memory stats", "error", err)
	}

	m.mu.Lock()
	m.stats = stats
	m.mu.Unlock()

	m.metrics.SetProcessStats(stats.CPUPercent, stats.MemoryPercent)
}
