// Agent spawning: creates the initial population of humans and outlets,
// either from random distributions or from external records.
package agents

import (
	"fmt"

	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/entropy"
	"github.com/talgya/polarsim/internal/world"
)

// Initial ideology distribution centers per party.
var partyIdeologyMean = [NumParties]float64{
	Democrat:    2.0,
	Republican:  4.0,
	Independent: 3.0,
}

// Initial affective polarization centers per party.
var partyAPMean = [NumParties]float64{
	Democrat:    5.0,
	Republican:  5.0,
	Independent: 3.0,
}

// Outlet ideology centers per media type.
var mediaIdeologyMean = [3]float64{
	MediaLiberal:      1.5,
	MediaModerate:     3.0,
	MediaConservative: 4.5,
}

const (
	initialIdeologySD = 0.6
	initialAPSD       = 1.5
	mediaIdeologySD   = 0.3
)

// Spawner creates agents for the simulation. All draws come from the run's
// shared source.
type Spawner struct {
	rng    *entropy.Source
	params config.Params
	lean   *world.LeanField

	nextHuman int
	nextMedia int
}

// NewSpawner creates a spawner drawing from rng.
func NewSpawner(rng *entropy.Source, p config.Params) *Spawner {
	s := &Spawner{rng: rng, params: p}
	if p.RegionalLean != 0 {
		s.lean = world.NewLeanField(rng.Seed()+500, p.RegionalScale)
	}
	return s
}

// SpawnHuman creates a human with randomly drawn party and state at pos.
func (s *Spawner) SpawnHuman(pos world.Coord) *Human {
	party := s.drawParty()

	ideology := s.rng.Normal(partyIdeologyMean[party], initialIdeologySD)
	if s.lean != nil {
		ideology += s.params.RegionalLean * s.lean.At(pos)
	}

	h := &Human{
		Party:                 party,
		Ideology:              ideology,
		AffectivePolarization: s.rng.Normal(partyAPMean[party], initialAPSD),
		NewsFrequency:         1 + s.rng.Intn(s.params.MaxNewsFrequency),
		DiscussionFrequency:   1 + s.rng.Intn(s.params.MaxDiscussionFrequency),
	}
	s.finish(h, pos)
	return h
}

// SpawnFromRecord creates a human from an external record at pos. Ideology
// and affective polarization are clamped into range (NaN becomes the lower
// bound); frequencies below one become one. Susceptibility traits are drawn as for random humans.
func (s *Spawner) SpawnFromRecord(rec Record, pos world.Coord) (*Human, error) {
	party, err := ParseParty(rec.Party)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	h := &Human{
		ExternalID:            rec.ID,
		Party:                 party,
		Ideology:              rec.Ideology,
		AffectivePolarization: rec.AffectivePolarization,
		NewsFrequency:         max(rec.NewsFrequency, 1),
		DiscussionFrequency:   max(rec.DiscussionFrequency, 1),
	}
	s.finish(h, pos)
	return h, nil
}

// finish assigns identity and position, draws the individual traits, and
// clamps the initial state.
func (s *Spawner) finish(h *Human, pos world.Coord) {
	h.ID = s.nextHuman
	s.nextHuman++
	h.Position = pos
	h.SocialInfluence = s.trait(s.params.GlobalSocialInfluence)
	h.SelectiveExposure = s.trait(s.params.GlobalSelectiveExposure)
	h.Homophily = s.trait(s.params.GlobalHomophily)
	h.Happy = true
	h.ClampState()
}

// trait draws an individual value around a global mean, clamped to [0,1].
func (s *Spawner) trait(mean float64) float64 {
	return entropy.Clamp01(s.rng.Normal(mean, s.params.TraitNoise))
}

func (s *Spawner) drawParty() Party {
	if s.rng.Chance(s.params.IndependentShare) {
		return Independent
	}
	if s.rng.Chance(0.5) {
		return Democrat
	}
	return Republican
}

// SpawnMedia creates an outlet at pos. Types cycle liberal, moderate,
// conservative so the media landscape stays balanced.
func (s *Spawner) SpawnMedia(pos world.Coord) *Media {
	t := MediaType(s.nextMedia % 3)
	m := &Media{
		ID:       s.nextMedia,
		Type:     t,
		Position: pos,
		Ideology: entropy.Clamp(s.rng.Normal(mediaIdeologyMean[t], mediaIdeologySD), IdeologyMin, IdeologyMax),
		Strength: s.trait(s.params.GlobalMediaInfluence),
	}
	s.nextMedia++
	return m
}
