// Satisfaction: comfort with this tick's interactions and the resulting
// happy/unhappy draw.
package engine

import (
	"math"

	"github.com/talgya/polarsim/internal/agents"
	"github.com/talgya/polarsim/internal/entropy"
)

// similarity is 1 for identical ideologies and 0 at opposite ends of the scale.
func similarity(a, b float64) float64 {
	return 1 - math.Abs(a-b)/ideologySpan
}

// comfortIndex averages social and media comfort and subtracts baseline stress.
// A side with no interactions contributes zero comfort.
func comfortIndex(h *agents.Human, baselineStress float64) float64 {
	social := 0.0
	if len(h.Partners) > 0 {
		for _, o := range h.Partners {
			social += similarity(o.Ideology, h.Ideology)
		}
		social /= float64(len(h.Partners))
	}

	media := 0.0
	if len(h.Consumed) > 0 {
		for _, m := range h.Consumed {
			media += similarity(m.Ideology, h.Ideology)
		}
		media /= float64(len(h.Consumed))
	}

	return (social+media)/2 - baselineStress
}

// tolerance falls from ~1 to ~0 as affective polarization rises past 5.
func tolerance(ap float64) float64 {
	return math.Max(0.001, 1/(1+math.Exp(ap-5)))
}

// unhappyProbability is the relative shortfall of comfort below tolerance.
func unhappyProbability(comfort, tol float64) float64 {
	if comfort >= tol {
		return 0
	}
	return entropy.Clamp01((tol - comfort) / tol)
}

// updateSatisfaction scores h's comfort and advances its mood state machine.
func (s *Simulation) updateSatisfaction(h *agents.Human) {
	h.Comfort = comfortIndex(h, s.Params.BaselineStress)
	pUnhappy := unhappyProbability(h.Comfort, tolerance(h.AffectivePolarization))
	h.UpdateMood(s.rng.Float() < pUnhappy, s.Params.FlipThreshold)
}
