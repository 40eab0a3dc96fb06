package database

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// ErrPoolSaturated is reported by the health check while every connection is
// in use and callers are queueing for one
var ErrPoolSaturated = errors.New("database connection pool saturated")

// saturationRatio is the share of MaxOpenConnections in use that counts as busy
const saturationRatio = 0.8

// PoolSnapshot is one sample of the connection pool
type PoolSnapshot struct {
	Open      int
	Idle      int
	InUse     int
	MaxOpen   int
	WaitCount int64
	WaitTime  time.Duration
	// NewWaits is the number of callers that had to wait since the previous sample
	NewWaits  int64
	SampledAt time.Time
}

// Busy reports whether in-use connections crossed the saturation ratio
func (s PoolSnapshot) Busy() bool {
	return s.MaxOpen > 0 && float64(s.InUse) >= float64(s.MaxOpen)*saturationRatio
}

// Saturated reports a full pool with callers queueing
func (s PoolSnapshot) Saturated() bool {
	return s.MaxOpen > 0 && s.InUse >= s.MaxOpen && s.NewWaits > 0
}

type statsFunc func() (sql.DBStats, error)

// PoolMonitor samples the pool on an interval. Transitions into and out of the
// busy state are logged once each.
type PoolMonitor struct {
	stats  statsFunc
	clock  coreport.TimeProvider
	logger coreport.Logger

	mu   sync.RWMutex
	last PoolSnapshot
	busy bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewPoolMonitor creates a monitor over the manager's connection pool
func NewPoolMonitor(m *Manager) *PoolMonitor {
	return newPoolMonitor(func() (sql.DBStats, error) {
		sqlDB, err := m.DB().DB()
		if err != nil {
			return sql.DBStats{}, fmt.Errorf("failed to get database connection: %w", err)
		}
		return sqlDB.Stats(), nil
	}, m.timeProvider, m.logger)
}

func newPoolMonitor(stats statsFunc, clock coreport.TimeProvider, logger coreport.Logger) *PoolMonitor {
	return &PoolMonitor{stats: stats, clock: clock, logger: logger, stop: make(chan struct{})}
}

// Start takes a first sample and keeps sampling every interval until Stop
func (m *PoolMonitor) Start(interval time.Duration) error {
	if _, err := m.Sample(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := m.Sample(); err != nil {
					m.logger.Error("Failed to sample connection pool", map[string]any{"error": err.Error()})
				}
			case <-m.stop:
				return
			}
		}
	}()
	return nil
}

// Stop ends sampling; calling it again is a no-op
func (m *PoolMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Sample reads the pool stats and records them as the latest snapshot
func (m *PoolMonitor) Sample() (PoolSnapshot, error) {
	stats, err := m.stats()
	if err != nil {
		return PoolSnapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := PoolSnapshot{
		Open:      stats.OpenConnections,
		Idle:      stats.Idle,
		InUse:     stats.InUse,
		MaxOpen:   stats.MaxOpenConnections,
		WaitCount: stats.WaitCount,
		WaitTime:  stats.WaitDuration,
		NewWaits:  max(stats.WaitCount-m.last.WaitCount, 0),
		SampledAt: m.clock.Now(),
	}
	m.last = snap

	fields := map[string]any{
		"in_use":    snap.InUse,
		"max_open":  snap.MaxOpen,
		"idle":      snap.Idle,
		"new_waits": snap.NewWaits,
		"wait_time": snap.WaitTime.String(),
	}
	switch busy := snap.Busy(); {
	case busy && !m.busy:
		m.logger.Warn("Database connection pool nearly exhausted", fields)
	case !busy && m.busy:
		m.logger.Info("Database connection pool recovered", fields)
	}
	m.busy = snap.Busy()

	return snap, nil
}

// Last returns the most recent snapshot
func (m *PoolMonitor) Last() PoolSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}
