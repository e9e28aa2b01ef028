package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/polarsim/internal/agents"
)

// numBins is the number of integer ideology bins used for diversity.
const numBins = 5

// PartyMetrics aggregates one party's humans.
type PartyMetrics struct {
	Count           int     `json:"count"`
	MeanIdeology    float64 `json:"mean_ideology"`
	SDIdeology      float64 `json:"sd_ideology"`
	MeanAP          float64 `json:"mean_ap"`
	SDAP            float64 `json:"sd_ap"`
	SocialDiversity float64 `json:"social_diversity"`
	MediaDiversity  float64 `json:"media_diversity"`
	HappyPercent    float64 `json:"happy_percent"`
}

// Metrics is the population snapshot produced after each tick.
type Metrics struct {
	Tick       uint64 `json:"tick"`
	Population int    `json:"population"`

	MeanIdeology float64 `json:"mean_ideology"`
	SDIdeology   float64 `json:"sd_ideology"`
	MeanAP       float64 `json:"mean_ap"`
	SDAP         float64 `json:"sd_ap"`

	SocialDiversity float64 `json:"social_diversity"`
	MediaDiversity  float64 `json:"media_diversity"`
	HappyPercent    float64 `json:"happy_percent"`

	// Mean Republican ideology minus mean Democrat ideology.
	PartisanGap float64 `json:"partisan_gap"`

	Backfires   int `json:"backfires"`
	Relocations int `json:"relocations"`

	ByParty map[string]PartyMetrics `json:"by_party"`
}

// ComputeMetrics aggregates humans' current state and this tick's
// interaction history.
func ComputeMetrics(tick uint64, humans []*agents.Human) Metrics {
	m := Metrics{
		Tick:       tick,
		Population: len(humans),
		ByParty:    make(map[string]PartyMetrics, agents.NumParties),
	}

	var groups [agents.NumParties][]*agents.Human
	for _, h := range humans {
		groups[h.Party] = append(groups[h.Party], h)
	}

	all := aggregate(humans)
	m.MeanIdeology, m.SDIdeology = all.MeanIdeology, all.SDIdeology
	m.MeanAP, m.SDAP = all.MeanAP, all.SDAP
	m.SocialDiversity, m.MediaDiversity = all.SocialDiversity, all.MediaDiversity
	m.HappyPercent = all.HappyPercent

	for _, p := range agents.Parties {
		m.ByParty[p.String()] = aggregate(groups[p])
	}
	if len(groups[agents.Democrat]) > 0 && len(groups[agents.Republican]) > 0 {
		m.PartisanGap = m.ByParty[agents.Republican.String()].MeanIdeology -
			m.ByParty[agents.Democrat.String()].MeanIdeology
	}
	return m
}

func aggregate(humans []*agents.Human) PartyMetrics {
	pm := PartyMetrics{Count: len(humans)}
	if len(humans) == 0 {
		return pm
	}

	ideology := make([]float64, len(humans))
	ap := make([]float64, len(humans))
	social := make([]float64, len(humans))
	media := make([]float64, len(humans))
	happy := 0
	for i, h := range humans {
		ideology[i] = h.Ideology
		ap[i] = h.AffectivePolarization
		social[i] = SocialDiversity(h)
		media[i] = MediaDiversity(h)
		if h.Happy {
			happy++
		}
	}

	pm.MeanIdeology, pm.SDIdeology = meanSD(ideology)
	pm.MeanAP, pm.SDAP = meanSD(ap)
	pm.SocialDiversity = stat.Mean(social, nil)
	pm.MediaDiversity = stat.Mean(media, nil)
	pm.HappyPercent = 100 * float64(happy) / float64(len(humans))
	return pm
}

// meanSD returns the mean and sample standard deviation; the deviation is
// zero for fewer than two values.
func meanSD(x []float64) (mean, sd float64) {
	mean = stat.Mean(x, nil)
	if len(x) < 2 {
		return mean, 0
	}
	return mean, stat.StdDev(x, nil)
}

// SocialDiversity is the diversity of the ideologies h discussed with this tick.
func SocialDiversity(h *agents.Human) float64 {
	vals := make([]float64, len(h.Partners))
	for i, o := range h.Partners {
		vals[i] = o.Ideology
	}
	return ShannonDiversity(vals)
}

// MediaDiversity is the diversity of the outlets h consumed this tick.
func MediaDiversity(h *agents.Human) float64 {
	vals := make([]float64, len(h.Consumed))
	for i, m := range h.Consumed {
		vals[i] = m.Ideology
	}
	return ShannonDiversity(vals)
}

// ShannonDiversity bins ideologies into the integers 1–5 and returns the
// Shannon entropy of the bin distribution normalized by ln 5. Empty input
// yields 0.
func ShannonDiversity(ideologies []float64) float64 {
	if len(ideologies) == 0 {
		return 0
	}
	var counts [numBins]float64
	for _, v := range ideologies {
		counts[ideologyBin(v)]++
	}
	probs := make([]float64, numBins)
	for i, c := range counts {
		probs[i] = c / float64(len(ideologies))
	}
	return stat.Entropy(probs) / math.Log(numBins)
}

// ideologyBin rounds v and clamps it into 1–5, returning a zero-based index.
func ideologyBin(v float64) int {
	b := int(math.Round(v))
	if b < 1 {
		b = 1
	}
	if b > numBins {
		b = numBins
	}
	return b - 1
}
