package market

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"finboard/internal/scheduler"
)

// Monitor keeps the latest snapshot and refreshes it on a fixed interval.
type Monitor struct {
	logger   *slog.Logger
	ingestor *Ingestor
	task     *scheduler.Task

	mu     sync.RWMutex
	latest Snapshot
	ready  chan struct{}
	once   sync.Once
}

// NewMonitor creates a new Monitor. Call Start to begin polling.
func NewMonitor(logger *slog.Logger, ingestor *Ingestor, interval time.Duration) *Monitor {
	m := &Monitor{logger: logger, ingestor: ingestor, ready: make(chan struct{})}
	m.task = scheduler.NewTask("market-refresh", interval, m.refreshJob, logger)
	return m
}

func (m *Monitor) refreshJob(ctx context.Context) (func(), error) {
	snap := m.ingestor.Fetch(ctx)
	return func() { m.set(snap) }, nil
}

func (m *Monitor) set(snap Snapshot) {
	m.mu.Lock()
	m.latest = snap
	m.mu.Unlock()
	m.once.Do(func() { close(m.ready) })
}

// Start begins periodic refreshes.
func (m *Monitor) Start(ctx context.Context) {
	m.task.Start(ctx)
}

// Stop cancels the refresh loop; a fetch still in flight is discarded.
func (m *Monitor) Stop() {
	m.task.Stop()
}

// Refresh fetches synchronously and replaces the snapshot.
func (m *Monitor) Refresh(ctx context.Context) Snapshot {
	snap := m.ingestor.Fetch(ctx)
	m.set(snap)
	return snap
}

// Latest returns the current snapshot. Before the first fetch it is empty and every
// section reports unavailable.
func (m *Monitor) Latest() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Ready is closed once the first snapshot has been stored.
func (m *Monitor) Ready() <-chan struct{} {
	return m.ready
}
