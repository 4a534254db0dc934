// Package monitor runs the recurring background task that keeps the
// companion's state ticking while a mission is active.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solivara/vigil/internal/config"
)

// TickFunc performs one unit of background work. Implementations own
// their locking; the monitor only schedules.
type TickFunc func(now time.Time) error

// Monitor drives a TickFunc at a fixed period until stopped. A failing or
// panicking tick is reported and followed by a backoff pause; the loop
// never terminates on its own. Stop cancels the loop and waits for it, so
// no tick runs after Stop returns.
type Monitor struct {
	cfg    config.MonitorConfig
	logger *zap.Logger
	tick   TickFunc

	stateLock sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// New creates a monitor. The tick function must not be nil.
func New(cfg config.MonitorConfig, logger *zap.Logger, tick TickFunc) (*Monitor, error) {
	if tick == nil {
		return nil, fmt.Errorf("tick function cannot be nil")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.FaultBackoff <= 0 {
		cfg.FaultBackoff = 2 * time.Second
	}
	return &Monitor{
		cfg:    cfg,
		logger: logger.Named("monitor"),
		tick:   tick,
	}, nil
}

// Start launches the loop. Calling Start on a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.stateLock.Lock()
	defer m.stateLock.Unlock()
	if m.isRunning {
		m.logger.Warn("Monitor.Start called, but monitor is already running.")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.isRunning = true
	m.wg.Add(1)
	go m.run(loopCtx)
	m.logger.Info("Background monitor started", zap.Duration("tick_interval", m.cfg.TickInterval))
}

// Stop cancels the loop and waits for the in-flight tick to finish.
// Idempotent; safe to call on a monitor that never started.
func (m *Monitor) Stop() {
	m.stateLock.Lock()
	if !m.isRunning {
		m.stateLock.Unlock()
		return
	}
	cancel := m.cancel
	m.stateLock.Unlock()

	cancel()
	m.wg.Wait()

	m.stateLock.Lock()
	m.isRunning = false
	m.stateLock.Unlock()
	m.logger.Info("Background monitor stopped")
}

// Running reports whether the loop is live.
func (m *Monitor) Running() bool {
	m.stateLock.Lock()
	defer m.stateLock.Unlock()
	return m.isRunning
}

// run is the loop body for the monitor goroutine.
func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := m.safeTick(now); err != nil {
				// Transient fault: report, pause, keep going. The loop
				// must never die on a bad tick.
				m.logger.Warn("Monitor tick failed; backing off", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.cfg.FaultBackoff):
				}
			}
		}
	}
}

// safeTick runs one tick, converting panics into errors.
func (m *Monitor) safeTick(now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	return m.tick(now)
}
