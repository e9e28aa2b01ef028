// Source selection: which outlets a human reads and whom they talk to.
// Both selectors weight candidates by exp(-β·|Δideology|), with β growing
// with the human's bias trait and affective polarization.
package engine

import (
	"math"
	"sort"

	"github.com/talgya/polarsim/internal/agents"
	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/entropy"
)

// ideologySpan is the width of the ideology scale (5 - 1).
const ideologySpan = agents.IdeologyMax - agents.IdeologyMin

// selectMedia picks up to NewsFrequency distinct outlets for h.
// Outlets outside the selective-exposure window are excluded unless that
// leaves nothing, in which case every outlet is a candidate. Draws are
// weighted and without replacement.
func selectMedia(h *agents.Human, media []*agents.Media, p config.Params, u entropy.Uniform) []*agents.Media {
	if len(media) == 0 || h.NewsFrequency <= 0 {
		return nil
	}

	ap := h.AffectivePolarization / agents.APMax
	beta := p.MediaBiasCoefficient * h.SelectiveExposure * (1 + ap)
	maxDiff := math.Max(0, ideologySpan*(1-h.SelectiveExposure)-ap*p.ConsumptionModifier)

	pool := make([]*agents.Media, 0, len(media))
	for _, m := range media {
		if math.Abs(m.Ideology-h.Ideology) <= maxDiff {
			pool = append(pool, m)
		}
	}
	if len(pool) == 0 {
		pool = media
	}

	weights := make([]float64, len(pool))
	total := 0.0
	for i, m := range pool {
		weights[i] = math.Exp(-beta * math.Abs(m.Ideology-h.Ideology))
		total += weights[i]
	}
	if !(total > 0) {
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(weights))
	}
	for i := range weights {
		weights[i] /= total
	}

	k := min(h.NewsFrequency, len(pool))
	picked := entropy.WeightedSample(u, weights, k)
	result := make([]*agents.Media, len(picked))
	for i, idx := range picked {
		result[i] = pool[idx]
	}
	return result
}

// selectPartners draws DiscussionFrequency times from candidates (nearest
// first) by inverse-CDF sampling. Repeat picks are dropped, so fewer
// partners than draws may come back. Returns nil when every weight
// underflows to zero.
func selectPartners(h *agents.Human, candidates []*agents.Human, p config.Params, u entropy.Uniform) []*agents.Human {
	if h.DiscussionFrequency <= 0 || len(candidates) == 0 {
		return nil
	}

	ap := h.AffectivePolarization / agents.APMax
	beta := h.Homophily * p.DiscussionModifier * (1 + ap)

	weights := make([]float64, len(candidates))
	total := 0.0
	for i, c := range candidates {
		weights[i] = math.Exp(-beta * math.Abs(c.Ideology-h.Ideology))
		total += weights[i]
	}
	if !(total > 0) {
		return nil
	}
	for i := range weights {
		weights[i] /= total
	}

	_, distinct := drawWithDiscard(u, weights, h.DiscussionFrequency)
	result := make([]*agents.Human, len(distinct))
	for i, idx := range distinct {
		result[i] = candidates[idx]
	}
	return result
}

// drawWithDiscard makes n inverse-CDF draws over probs. raw holds every
// pick in draw order; distinct keeps first occurrences only.
func drawWithDiscard(u entropy.Uniform, probs []float64, n int) (raw, distinct []int) {
	cum := entropy.Cumulative(probs)
	seen := make(map[int]bool, n)
	raw = make([]int, 0, n)
	for i := 0; i < n; i++ {
		idx := entropy.PickCumulative(cum, u.Float())
		raw = append(raw, idx)
		if !seen[idx] {
			seen[idx] = true
			distinct = append(distinct, idx)
		}
	}
	return raw, distinct
}

// nearestHumans returns up to 2×DiscussionFrequency other humans ordered by
// distance from h. Equal distances keep population order.
func (s *Simulation) nearestHumans(h *agents.Human) []*agents.Human {
	limit := 2 * h.DiscussionFrequency
	if limit <= 0 || len(s.Humans) < 2 {
		return nil
	}

	type candidate struct {
		h    *agents.Human
		dist float64
	}
	others := make([]candidate, 0, len(s.Humans)-1)
	for _, o := range s.Humans {
		if o == h {
			continue
		}
		others = append(others, candidate{h: o, dist: s.Grid.Distance(h.Position, o.Position)})
	}
	sort.SliceStable(others, func(i, j int) bool {
		return others[i].dist < others[j].dist
	})

	if limit > len(others) {
		limit = len(others)
	}
	result := make([]*agents.Human, limit)
	for i := range result {
		result[i] = others[i].h
	}
	return result
}
