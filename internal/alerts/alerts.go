// Package alerts scans operator messages for safety keywords and
// suppresses duplicate alert emissions.
package alerts

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Trust increments. Direct address to the companion or the supervising
// operator earns a larger bump than an ordinary interaction.
const (
	TrustOrdinary      = 1
	TrustDirectAddress = 5
)

// directAddressKeywords grant the larger trust increment.
var directAddressKeywords = map[string]struct{}{
	"vigil":     {},
	"overwatch": {},
}

// alertTemplates maps safety/attention keywords to alert templates. The
// keyword is interpolated into the rendered string, which is also the
// dedupe key.
var alertTemplates = map[string]string{
	"socorro":   "DISTRESS CALL: operator signaled %q. Flagging for immediate attention.",
	"mayday":    "DISTRESS CALL: operator signaled %q. Flagging for immediate attention.",
	"emergency": "EMERGENCY: operator reported %q. Escalating.",
	"injured":   "MEDICAL: operator reported %q. Logging condition.",
	"ferido":    "MEDICAL: operator reported %q. Logging condition.",
	"trapped":   "SAFETY: operator reported %q. Marking last known position.",
	"vigil":     "Direct address to companion acknowledged.",
	"overwatch": "Supervising operator paged on behalf of the operator.",
}

// Deduper tracks which rendered alert strings are currently active so
// repeated triggers do not spam duplicates. Alerts never expire within a
// process lifetime. Not safe for concurrent use; the owning engine
// serializes access.
type Deduper struct {
	active map[string]struct{}
	logger *zap.Logger
}

// NewDeduper returns an empty deduplicator.
func NewDeduper(logger *zap.Logger) *Deduper {
	return &Deduper{
		active: make(map[string]struct{}),
		logger: logger.Named("alerts"),
	}
}

// Result is the outcome of scanning one message.
type Result struct {
	// Alerts holds the newly activated rendered alert strings, in
	// deterministic keyword order.
	Alerts []string
	// TrustDelta is the trust increment the message earned.
	TrustDelta int
}

// orderedKeywords keeps emission order stable across runs.
var orderedKeywords = []string{
	"socorro", "mayday", "emergency", "injured", "ferido", "trapped",
	"vigil", "overwatch",
}

// Scan checks the message against the safety keyword map. Each rendered
// alert string is emitted at most once per process lifetime.
func (d *Deduper) Scan(message string) Result {
	lowered := strings.ToLower(message)
	res := Result{TrustDelta: TrustOrdinary}

	for _, kw := range orderedKeywords {
		if !strings.Contains(lowered, kw) {
			continue
		}
		if _, direct := directAddressKeywords[kw]; direct {
			res.TrustDelta = TrustDirectAddress
		}

		rendered := alertTemplates[kw]
		if strings.Contains(rendered, "%q") {
			rendered = fmt.Sprintf(rendered, kw)
		}
		if _, seen := d.active[rendered]; seen {
			continue
		}
		d.active[rendered] = struct{}{}
		res.Alerts = append(res.Alerts, rendered)
		d.logger.Warn("alert activated", zap.String("keyword", kw))
	}
	return res
}

// ActiveCount reports how many distinct alerts are currently active.
func (d *Deduper) ActiveCount() int { return len(d.active) }
