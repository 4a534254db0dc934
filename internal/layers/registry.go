package layers

import (
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/solivara/vigil/api/schemas"
)

// ackProbability is the chance a message that matched no layer still gets
// a neutral acknowledgment instead of silence.
const ackProbability = 0.30

// neutralAcks are the fallback acknowledgments.
var neutralAcks = []string{
	"Copy.",
	"Understood.",
	"Noted. Keep going.",
	"I'm listening.",
}

// stressPrefixes vary the rendered response by the current stress level.
var stressPrefixes = map[schemas.StressLevel]string{
	schemas.StressLow:      "",
	schemas.StressModerate: "[steady] ",
	schemas.StressHigh:     "[priority] ",
	schemas.StressCritical: "[critical] ",
}

// Registry owns the fixed layer set and resolves at most one response per
// incoming message. It is not safe for concurrent use; the owning engine
// serializes access. Randomness goes through the injected source so tests
// can assert exact outcomes.
type Registry struct {
	layers [layerCount]*Layer
	rng    *rand.Rand
	logger *zap.Logger
}

// NewRegistry builds the registry over the default layer set.
func NewRegistry(rng *rand.Rand, logger *zap.Logger) *Registry {
	return &Registry{
		layers: defaultLayers(),
		rng:    rng,
		logger: logger.Named("layers"),
	}
}

// Get returns the layer with the given ID.
func (r *Registry) Get(id LayerID) *Layer { return r.layers[id] }

// Activations returns the current activation level per layer name.
func (r *Registry) Activations() map[string]int {
	out := make(map[string]int, len(r.layers))
	for _, l := range r.layers {
		out[l.ID.String()] = l.Activation
	}
	return out
}

// DecayAll applies one tick of decay to every layer.
func (r *Registry) DecayAll() {
	for _, l := range r.layers {
		l.Decay()
	}
}

// Resolve scans the message against every layer and produces at most one
// rendered response. Every eligible layer that matched is bumped and put
// on cooldown; only the one with the highest pre-bump activation speaks
// (ties resolve to the lowest LayerID). A message that matched nothing
// gets a neutral acknowledgment with fixed probability.
func (r *Registry) Resolve(message string, level schemas.StressLevel) (string, bool) {
	lowered := strings.ToLower(message)

	var matched []*Layer
	for _, l := range r.layers {
		if l.Eligible() && l.Matches(lowered) {
			matched = append(matched, l)
		}
	}

	if len(matched) == 0 {
		if r.rng.Float64() < ackProbability {
			return stressPrefixes[level] + neutralAcks[r.rng.Intn(len(neutralAcks))], true
		}
		return "", false
	}

	// Selection uses pre-bump activation; the array is in LayerID order,
	// so strict > keeps the lowest ID on ties.
	winner := matched[0]
	for _, l := range matched[1:] {
		if l.Activation > winner.Activation {
			winner = l
		}
	}

	response := winner.Responses[r.rng.Intn(len(winner.Responses))]
	for _, l := range matched {
		l.bump()
		l.Cooldown = CooldownMin + r.rng.Intn(CooldownMax-CooldownMin+1)
	}

	r.logger.Debug("layer resolved",
		zap.String("layer", winner.ID.String()),
		zap.Int("matched", len(matched)),
		zap.Int("activation", winner.Activation))

	return stressPrefixes[level] + response, true
}
