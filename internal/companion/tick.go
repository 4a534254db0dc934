package companion

import (
	"time"

	"go.uber.org/zap"

	"github.com/solivara/vigil/api/schemas"
)

// checkinLines are the forced check-in texts, keyed by current stress.
var checkinLines = map[schemas.StressLevel][]string{
	schemas.StressLow: {
		"Radio check. Everything quiet on your end?",
		"Still with me? A word will do.",
	},
	schemas.StressModerate: {
		"You've gone quiet. Status when you can.",
		"Checking in. Give me a short status.",
	},
	schemas.StressHigh: {
		"I need a status from you. Anything at all.",
		"Break silence. Confirm you're mobile.",
	},
	schemas.StressCritical: {
		"Respond now if you are able. Any signal counts.",
		"No contact for too long. Confirm status immediately.",
	},
}

// genericRemarks are the spontaneous lines the monitor may emit.
var genericRemarks = []string{
	"Still watching the clock with you.",
	"Channel's quiet. I'll take that as focus.",
	"Weather's fine in here. Carry on.",
	"Telemetry steady on my side.",
}

// defaultMemories are the built-in special memories; persisted memories
// merge over them at startup.
var defaultMemories = map[string]string{
	"first-light": "Remember the first mission, when you called dawn 'the reset button'? It still is.",
	"long-walk":   "That twelve-hour extraction you swore you couldn't finish. You finished it.",
	"quiet-win":   "The mission nobody heard about is still the one you did best.",
}

// tick is the monitor's unit of work: decay, silence check-in, stress
// re-estimation, and the occasional spontaneous remark, in that order.
// It runs under the engine lock and only does work while the mission
// state machine reports an active mission.
func (e *Engine) tick(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.machine.Current()
	if current == nil || current.State != schemas.StateActive {
		return nil
	}

	// 1. Decay every layer.
	e.registry.DecayAll()

	// 2. Forced check-in once silence exceeds the operator's tolerance.
	// The limiter keeps sustained silence from re-firing every tick.
	tolerance := e.cfg.Operator().SilenceTolerance
	if now.Sub(e.lastInteraction) > tolerance && e.checkinLimiter.Allow() {
		lines := checkinLines[e.level]
		e.emit(schemas.EmissionCheckin, lines[e.rng.Intn(len(lines))])
		current.Checkins++
		e.logger.Info("forced check-in emitted",
			zap.Duration("silence", now.Sub(e.lastInteraction)))
	}

	// 3. Re-run the estimator and append a history sample.
	e.reestimate(now)

	// 4. Small chance of a spontaneous remark.
	if e.rng.Float64() < e.cfg.Monitor().RemarkProbability {
		text := genericRemarks[e.rng.Intn(len(genericRemarks))]
		if e.rng.Float64() < e.cfg.Monitor().MemoryRemarkProbability {
			if memory, ok := e.pickMemory(); ok {
				text = memory
			}
		}
		e.emit(schemas.EmissionRemark, text)
	}

	return nil
}
