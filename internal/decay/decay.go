// Package decay implements the lazy exponential erosion applied to a node's
// stored risk before it participates in base-risk evaluation or propagation.
package decay

import (
	"math"
	"time"
)

const (
	// DailyFactor is the per-day multiplicative decay applied to risk.
	DailyFactor = 0.995
	// Floor is the minimum risk any ever-risky node retains.
	Floor = 0.01
)

// Apply returns risk decayed from lastSeen to now. Zero elapsed time is the
// identity; the result never drops below Floor once risk was ever positive.
func Apply(risk float64, lastSeen, now time.Time) float64 {
	if risk <= 0 {
		return 0
	}
	days := now.Sub(lastSeen).Hours() / 24.0
	if days <= 0 {
		return risk
	}
	decayed := risk * math.Pow(DailyFactor, days)
	if decayed < Floor {
		return Floor
	}
	return decayed
}
