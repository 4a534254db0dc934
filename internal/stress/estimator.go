package stress

import (
	"strings"
	"time"

	"github.com/solivara/vigil/api/schemas"
)

// Thresholds for the silence-based escalation, in seconds of operator
// silence on an active mission.
const (
	silenceCriticalSeconds = 120
	silenceHighSeconds     = 60
)

// estimatorWindow is how many recent log entries the keyword counter
// scans.
const estimatorWindow = 10

// DefaultKeywords are the stress-indicating keywords the estimator scans
// for. Matching is case-insensitive substring containment.
var DefaultKeywords = []string{
	"scared", "afraid", "exhausted", "tired", "alone", "lost",
	"hurt", "pain", "panic", "help",
	"medo", "cansado", "sozinho", "perdido", "socorro",
}

// Estimator derives a discrete stress level from operator silence and
// recent trigger-keyword density.
type Estimator struct {
	keywords []string
}

// NewEstimator builds an estimator over the given keyword list. An empty
// list falls back to DefaultKeywords.
func NewEstimator(keywords []string) *Estimator {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	return &Estimator{keywords: keywords}
}

// Keywords returns the keyword list the estimator scans for.
func (e *Estimator) Keywords() []string { return e.keywords }

// Evaluate computes the current stress level. Silence escalation applies
// only while the mission is active; any other state forces Low regardless
// of history.
func (e *Estimator) Evaluate(now, lastInteraction time.Time, log *Log, state schemas.MissionState) schemas.StressLevel {
	if state != schemas.StateActive {
		return schemas.StressLow
	}

	// Total keyword occurrences across the window: one increment for
	// every keyword found in every entry.
	counter := 0
	for _, entry := range log.Recent(estimatorWindow) {
		lowered := strings.ToLower(entry.Text)
		for _, kw := range e.keywords {
			if strings.Contains(lowered, kw) {
				counter++
			}
		}
	}

	silence := now.Sub(lastInteraction).Seconds()
	switch {
	case silence > silenceCriticalSeconds:
		return schemas.StressCritical
	case silence > silenceHighSeconds:
		return schemas.StressHigh
	case counter > 3:
		return schemas.StressHigh
	case counter > 1:
		return schemas.StressModerate
	default:
		return schemas.StressLow
	}
}

// AverageCode computes the arithmetic mean of the recorded level codes.
// An empty history defaults to 1.0, the Low baseline.
func AverageCode(samples []schemas.StressSample) float64 {
	if len(samples) == 0 {
		return 1.0
	}
	sum := 0
	for _, s := range samples {
		sum += s.Level
	}
	return float64(sum) / float64(len(samples))
}
