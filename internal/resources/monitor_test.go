package resources

import (
	"testing"
	"time"
)

func TestMonitor_CollectsAndStartStop(t *testing.T) {
	m := New(10*time.Millisecond, nil, nil)
	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()

	stats := m.Stats()
	if stats.MemoryPercent <= 0 {
		t.Fatalf("expected a non-zero memory sample, got %+v", stats)
	}
}

func TestMonitor_DefaultsInterval(t *testing.T) {
	m := New(0, nil, nil)
	if m.interval != 5*time.Second {
		t.Fatalf("expected default interval of 5s, got %v", m.interval)
	}
}
