package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/solivara/vigil/internal/config"
)

func testCfg() config.MonitorConfig {
	return config.MonitorConfig{
		TickInterval: 5 * time.Millisecond,
		FaultBackoff: 5 * time.Millisecond,
	}
}

func TestNew_RequiresTickFunc(t *testing.T) {
	_, err := New(testCfg(), zaptest.NewLogger(t), nil)
	assert.Error(t, err)
}

func TestMonitor_TicksUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	var ticks atomic.Int64
	m, err := New(testCfg(), zaptest.NewLogger(t), func(now time.Time) error {
		ticks.Add(1)
		return nil
	})
	require.NoError(t, err)

	m.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() >= 3 },
		time.Second, time.Millisecond)

	m.Stop()
	assert.False(t, m.Running())

	// No tick after termination may mutate state.
	settled := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, ticks.Load())
}

func TestMonitor_StartIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	var ticks atomic.Int64
	m, err := New(testCfg(), zaptest.NewLogger(t), func(now time.Time) error {
		ticks.Add(1)
		return nil
	})
	require.NoError(t, err)

	m.Start(context.Background())
	m.Start(context.Background()) // no second goroutine
	require.Eventually(t, func() bool { return ticks.Load() >= 1 },
		time.Second, time.Millisecond)
	m.Stop()
}

func TestMonitor_StopWithoutStart(t *testing.T) {
	m, err := New(testCfg(), zaptest.NewLogger(t), func(now time.Time) error { return nil })
	require.NoError(t, err)
	m.Stop()
	m.Stop()
}

func TestMonitor_SurvivesFailingTicks(t *testing.T) {
	defer goleak.VerifyNone(t)

	var ticks atomic.Int64
	m, err := New(testCfg(), zaptest.NewLogger(t), func(now time.Time) error {
		if ticks.Add(1)%2 == 1 {
			return errors.New("transient fault")
		}
		return nil
	})
	require.NoError(t, err)

	m.Start(context.Background())
	// The loop keeps ticking through repeated failures.
	require.Eventually(t, func() bool { return ticks.Load() >= 6 },
		2*time.Second, time.Millisecond)
	m.Stop()
}

func TestMonitor_RecoversPanickingTick(t *testing.T) {
	defer goleak.VerifyNone(t)

	var ticks atomic.Int64
	m, err := New(testCfg(), zaptest.NewLogger(t), func(now time.Time) error {
		if ticks.Add(1) == 1 {
			panic("tick blew up")
		}
		return nil
	})
	require.NoError(t, err)

	m.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() >= 3 },
		2*time.Second, time.Millisecond)
	m.Stop()
}

func TestMonitor_RestartsAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	var ticks atomic.Int64
	m, err := New(testCfg(), zaptest.NewLogger(t), func(now time.Time) error {
		ticks.Add(1)
		return nil
	})
	require.NoError(t, err)

	m.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() >= 1 }, time.Second, time.Millisecond)
	m.Stop()

	before := ticks.Load()
	m.Start(context.Background())
	require.Eventually(t, func() bool { return ticks.Load() > before }, time.Second, time.Millisecond)
	m.Stop()
}
