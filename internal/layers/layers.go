// Package layers implements the fixed set of response layers and the
// single-response resolution across them. Each layer is an independent
// trigger/response unit with its own activation level and cooldown.
package layers

import (
	"strings"
)

// LayerID identifies one of the fixed response layers. Layers live in an
// array indexed by LayerID, so iteration order (and resolution
// tie-breaking) is deterministic.
type LayerID int

const (
	LayerEmotional LayerID = iota
	LayerTactical
	LayerLogistical
	LayerRapport
	LayerHumor

	layerCount
)

// String returns the layer's canonical name.
func (id LayerID) String() string {
	switch id {
	case LayerEmotional:
		return "emotional"
	case LayerTactical:
		return "tactical"
	case LayerLogistical:
		return "logistical"
	case LayerRapport:
		return "rapport"
	case LayerHumor:
		return "humor"
	default:
		return "unknown"
	}
}

// Activation and cooldown tuning. Activation is clamped to [0,100];
// cooldown is drawn uniformly from [CooldownMin, CooldownMax] ticks.
const (
	ActivationMax       = 100
	ActivationIncrement = 10
	CooldownMin         = 5
	CooldownMax         = 15
	decayFactor         = 0.95
)

// Layer is one trigger/response unit. Purpose is documentation only.
type Layer struct {
	ID         LayerID
	Purpose    string
	Keywords   []string
	Responses  []string
	Activation int
	Cooldown   int
}

// Matches reports whether the (already lowercased) message contains any
// of the layer's trigger keywords.
func (l *Layer) Matches(lowered string) bool {
	for _, kw := range l.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// Eligible reports whether the layer may respond right now.
func (l *Layer) Eligible() bool { return l.Cooldown == 0 }

// Decay applies one tick of multiplicative activation decay and counts
// the cooldown down. Neither value ever goes below zero.
func (l *Layer) Decay() {
	l.Activation = int(float64(l.Activation) * decayFactor)
	if l.Activation < 0 {
		l.Activation = 0
	}
	if l.Cooldown > 0 {
		l.Cooldown--
	}
}

// bump raises the activation by the standard increment, clamped to the
// maximum.
func (l *Layer) bump() {
	l.Activation += ActivationIncrement
	if l.Activation > ActivationMax {
		l.Activation = ActivationMax
	}
}

// defaultLayers builds the fixed layer set. Created once at system start,
// mutated by decay and trigger bumps, never destroyed.
func defaultLayers() [layerCount]*Layer {
	return [layerCount]*Layer{
		LayerEmotional: {
			ID:      LayerEmotional,
			Purpose: "steadies the operator when fear or fatigue shows in a message",
			Keywords: []string{
				"scared", "afraid", "fear", "exhausted", "tired", "alone",
				"anxious", "overwhelmed", "medo", "cansado", "sozinho",
			},
			Responses: []string{
				"Breathe. You've handled worse than this and I was there for it.",
				"I hear you. Take thirty seconds, then we keep moving.",
				"You're not alone out there. I'm on the line the whole way.",
				"Fatigue is data, not a verdict. Note it and pace yourself.",
			},
		},
		LayerTactical: {
			ID:      LayerTactical,
			Purpose: "keeps attention on objectives, routes, and positioning",
			Keywords: []string{
				"route", "plan", "objective", "position", "move", "advance",
				"contact", "cover",
			},
			Responses: []string{
				"Copy. Re-check your reference points before you commit.",
				"Stick to the plan unless the ground says otherwise.",
				"Mark your position and give me a bearing when you can.",
				"One objective at a time. Which is closest to done?",
			},
		},
		LayerLogistical: {
			ID:      LayerLogistical,
			Purpose: "tracks supplies, equipment, and consumables",
			Keywords: []string{
				"supplies", "ammo", "water", "food", "battery", "equipment",
				"fuel", "kit",
			},
			Responses: []string{
				"Log the count. Running dry surprises nobody who counted.",
				"Ration from now, resupply is not guaranteed on schedule.",
				"Check the spares before you need them, not after.",
			},
		},
		LayerRapport: {
			ID:      LayerRapport,
			Purpose: "reinforces the working bond on positive contact",
			Keywords: []string{
				"thanks", "thank you", "good", "copy", "friend", "obrigado",
			},
			Responses: []string{
				"Anytime. That's the job.",
				"Good to hear your voice steady.",
				"Copy that. We make a decent team.",
			},
		},
		LayerHumor: {
			ID:      LayerHumor,
			Purpose: "lightens the channel when the operator invites it",
			Keywords: []string{
				"joke", "funny", "laugh", "bored", "piada",
			},
			Responses: []string{
				"I'd tell you a joke about the mission, but it's still classified.",
				"Bored is the best possible field report. Enjoy it.",
				"My humor module survived the last firmware update. Barely.",
			},
		},
	}
}
