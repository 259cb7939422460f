package server

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holistic-planner/internal/events"
)

// resourceChangeThreshold is the change in CPU or memory percentage points
// that counts as a status change
const resourceChangeThreshold = 10.0

// StatusMonitor periodically samples system status and emits an event when
// it changes
type StatusMonitor struct {
	bus    *events.Bus
	system *SystemHandlers
	log    zerolog.Logger

	mu   sync.Mutex
	last *events.SystemStatusData
	stop context.CancelFunc
	done chan struct{}
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(bus *events.Bus, system *SystemHandlers, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		bus:    bus,
		system: system,
		log:    log.With().Str("component", "status_monitor").Logger(),
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	m.stop = cancel
	m.done = make(chan struct{})
	go m.monitor(ctx, interval)
}

// Stop ends monitoring and waits for the loop to exit
func (m *StatusMonitor) Stop() {
	if m.stop == nil {
		return
	}
	m.stop()
	<-m.done
}

func (m *StatusMonitor) monitor(ctx context.Context, interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// check samples the status and emits SystemStatusChanged on the first
// sample, on a health flip, or on a large resource swing.
func (m *StatusMonitor) check(ctx context.Context) {
	snapshot := m.system.GetSystemStatusSnapshot(ctx)
	current := &events.SystemStatusData{
		Status:          snapshot.Status,
		DatabaseHealthy: snapshot.Database.Healthy,
		CPUPercent:      snapshot.CPUPercent,
		MemoryPercent:   snapshot.MemoryPercent,
		DiskFreeGB:      snapshot.DiskFreeGB,
	}

	m.mu.Lock()
	changed := m.last == nil ||
		m.last.Status != current.Status ||
		m.last.DatabaseHealthy != current.DatabaseHealthy ||
		math.Abs(m.last.CPUPercent-current.CPUPercent) >= resourceChangeThreshold ||
		math.Abs(m.last.MemoryPercent-current.MemoryPercent) >= resourceChangeThreshold
	if changed {
		m.last = current
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	if current.Status != "healthy" {
		m.log.Warn().Str("status", current.Status).Msg("System status degraded")
	}
	if m.bus != nil {
		m.bus.EmitTyped("status_monitor", current)
	}
}
