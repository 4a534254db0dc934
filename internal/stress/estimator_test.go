package stress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/solivara/vigil/api/schemas"
)

func logWith(messages ...string) *Log {
	log := NewLog()
	for _, m := range messages {
		log.Append(LogEntry{Text: m})
	}
	return log
}

func TestEstimator_SilenceThresholds(t *testing.T) {
	e := NewEstimator(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	empty := NewLog()

	tests := []struct {
		name    string
		silence time.Duration
		want    schemas.StressLevel
	}{
		{"130s silence is critical", 130 * time.Second, schemas.StressCritical},
		{"90s silence is high", 90 * time.Second, schemas.StressHigh},
		{"10s silence with no keywords is low", 10 * time.Second, schemas.StressLow},
		{"exactly 120s stays high", 120 * time.Second, schemas.StressHigh},
		{"exactly 60s falls through to counters", 60 * time.Second, schemas.StressLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := e.Evaluate(now, now.Add(-tc.silence), empty, schemas.StateActive)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEstimator_KeywordCounters(t *testing.T) {
	e := NewEstimator(nil)
	now := time.Now()

	// Counter counts every keyword in every entry: "scared" + "tired" in
	// one message is two.
	moderate := logWith("I'm scared and tired")
	assert.Equal(t, schemas.StressModerate, e.Evaluate(now, now, moderate, schemas.StateActive))

	high := logWith("scared", "so tired", "alone here", "in pain")
	assert.Equal(t, schemas.StressHigh, e.Evaluate(now, now, high, schemas.StateActive))

	single := logWith("a bit scared but fine")
	assert.Equal(t, schemas.StressLow, e.Evaluate(now, now, single, schemas.StateActive))
}

func TestEstimator_WindowIsLastTen(t *testing.T) {
	e := NewEstimator(nil)
	now := time.Now()

	log := NewLog()
	// Four keyword hits, then ten clean messages pushing them out of the
	// window.
	log.Append(LogEntry{Text: "scared"})
	log.Append(LogEntry{Text: "tired"})
	log.Append(LogEntry{Text: "alone"})
	log.Append(LogEntry{Text: "pain"})
	for i := 0; i < 10; i++ {
		log.Append(LogEntry{Text: "status nominal"})
	}
	assert.Equal(t, schemas.StressLow, e.Evaluate(now, now, log, schemas.StateActive))
}

func TestEstimator_NonActiveForcesLow(t *testing.T) {
	e := NewEstimator(nil)
	now := time.Now()
	loaded := logWith("scared", "tired", "alone", "socorro", "pain")

	for _, state := range []schemas.MissionState{
		schemas.StatePreparation, schemas.StateCritical,
		schemas.StateRecovery, schemas.StateCompleted,
	} {
		got := e.Evaluate(now, now.Add(-10*time.Minute), loaded, state)
		assert.Equal(t, schemas.StressLow, got, "state %s must force low", state)
	}
}

func TestAverageCode(t *testing.T) {
	assert.Equal(t, 1.0, AverageCode(nil), "empty history defaults to 1.0")

	samples := []schemas.StressSample{
		{Level: 1}, {Level: 2}, {Level: 3}, {Level: 4},
	}
	assert.InDelta(t, 2.5, AverageCode(samples), 1e-9)
}
