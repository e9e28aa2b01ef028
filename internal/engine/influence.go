// Influence: how one media outlet or discussion partner moves a human's
// ideology and affective polarization. The same rule serves both sources;
// only the magnitude and the receptivity damping differ.
package engine

import (
	"math"

	"github.com/talgya/polarsim/internal/agents"
	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/entropy"
)

// Receptivity damping per source. Outlets are discounted half as strongly as people.
const (
	mediaDamping  = 0.5
	socialDamping = 1.0
)

// minDisagreement is the disagreement below which receptivity is not damped
// and a reversed draw does not take the backfire path.
const minDisagreement = 0.05

// Outcome describes the effect of a single interaction.
type Outcome struct {
	Backfire      bool    // Direction reversed and the backfire AP path was taken
	IdeologyDelta float64 // Change applied to ideology
	APDelta       float64 // Change applied to affective polarization
}

// isExtreme reports whether an ideology sits at or beyond 2 or 4.
func isExtreme(v float64) bool {
	return v <= 2 || v >= 4
}

// side is -1 left of center, +1 right of center, 0 at center.
func side(v float64) int {
	switch {
	case v < agents.IdeologyMid:
		return -1
	case v > agents.IdeologyMid:
		return 1
	}
	return 0
}

// backfireChance is the configured backfire probability when both positions
// are extreme and on opposite sides of center, else zero.
func backfireChance(consumer, source float64, p config.Params) float64 {
	if !isExtreme(consumer) || !isExtreme(source) {
		return 0
	}
	cs, ss := side(consumer), side(source)
	if cs == 0 || ss == 0 || cs == ss {
		return 0
	}
	return p.BackfireProbability
}

// applyInfluence moves h toward (or, on backfire, away from) source.
// magnitude is the learning rate for this source; damping scales how much
// affective polarization closes the human off to disagreement.
// One uniform draw is always consumed for the backfire test.
func applyInfluence(h *agents.Human, source, magnitude, damping float64, p config.Params, u entropy.Uniform) Outcome {
	diff := source - h.Ideology
	disagreement := math.Abs(diff)
	normalized := disagreement / ideologySpan

	direction := 1.0
	if u.Float() < backfireChance(h.Ideology, source, p) {
		direction = -1
	}

	receptivity := 1.0
	if normalized > minDisagreement {
		apScaled := h.AffectivePolarization / agents.APMax
		receptivity = math.Max(0, 1-apScaled*normalized*damping)
	}

	out := Outcome{IdeologyDelta: direction * magnitude * receptivity * diff}
	h.Ideology += out.IdeologyDelta

	ap := h.AffectivePolarization
	if direction < 0 && disagreement > minDisagreement {
		out.Backfire = true
		out.APDelta = p.DisagreementPenalty * p.BackfireAmplifier
	} else {
		distanceFactor := disagreement / ideologySpan
		amplifier := 1 + ap/agents.APMax
		switch {
		case disagreement <= p.LikeMindedThreshold:
			out.APDelta = p.LikeMindedBoost * (1 - distanceFactor) * amplifier
		case disagreement > p.DisagreementThreshold:
			out.APDelta = p.DisagreementPenalty
		case disagreement > p.CrossCuttingThreshold:
			out.APDelta = -p.CrossCuttingReduction * (1 - math.Abs(distanceFactor-0.5)) * amplifier
		}
	}
	h.AffectivePolarization += out.APDelta
	return out
}
