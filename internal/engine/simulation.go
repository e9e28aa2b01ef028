// Simulation ties the grid, the population and the per-tick rules together.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/polarsim/internal/agents"
	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/entropy"
	"github.com/talgya/polarsim/internal/world"
)

// ErrCapacity reports that the configured population does not fit on the grid.
var ErrCapacity = errors.New("combined density exceeds grid capacity")

// Simulation holds the complete world state. Step mutates it; the read
// accessors may be called from other goroutines.
type Simulation struct {
	mu sync.RWMutex

	Params config.Params
	Grid   *world.Grid
	Humans []*agents.Human // Index matches the grid occupant index
	Media  []*agents.Media

	rng   *entropy.Source
	order []int
	tick  uint64
	stats Metrics
}

// Setup builds a simulation from p. With no records, humans and outlets are
// drawn at random according to the configured densities; otherwise one
// human is created per record in order. Everything is placed on random
// empty cells.
func Setup(p config.Params, records []agents.Record) (*Simulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := entropy.New(p.Seed)
	p.Seed = rng.Seed()
	grid := world.NewGrid(p.Width, p.Height, p.Wrap)
	spawner := agents.NewSpawner(rng, p)

	capacity := grid.Capacity()
	numHumans := int(float64(capacity)*p.PopulationDensity + 0.5)
	if len(records) > 0 {
		numHumans = len(records)
	}
	numMedia := int(float64(capacity)*p.MediaDensity + 0.5)

	humans := make([]*agents.Human, 0, numHumans)
	for i := 0; i < numHumans; i++ {
		pos, err := grid.RandomEmpty(rng)
		if err != nil {
			return nil, placementError("human", i, err)
		}
		var h *agents.Human
		if len(records) > 0 {
			h, err = spawner.SpawnFromRecord(records[i], pos)
			if err != nil {
				return nil, fmt.Errorf("setup: %w", err)
			}
		} else {
			h = spawner.SpawnHuman(pos)
		}
		if err := grid.Place(pos, world.Occupant{Kind: world.HumanOccupant, Index: len(humans)}); err != nil {
			return nil, placementError("human", i, err)
		}
		humans = append(humans, h)
	}

	media := make([]*agents.Media, 0, numMedia)
	for i := 0; i < numMedia; i++ {
		pos, err := grid.RandomEmpty(rng)
		if err != nil {
			return nil, placementError("media", i, err)
		}
		m := spawner.SpawnMedia(pos)
		if err := grid.Place(pos, world.Occupant{Kind: world.MediaOccupant, Index: len(media)}); err != nil {
			return nil, placementError("media", i, err)
		}
		media = append(media, m)
	}

	sim := newSimulation(p, rng, grid, humans, media)
	slog.Info("simulation set up",
		"seed", p.Seed,
		"grid", grid.String(),
		"humans", len(humans),
		"media", len(media),
		"from_records", len(records) > 0,
	)
	return sim, nil
}

func placementError(kind string, i int, err error) error {
	if errors.Is(err, world.ErrGridFull) {
		return fmt.Errorf("place %s %d: %w", kind, i, ErrCapacity)
	}
	return fmt.Errorf("place %s %d: %w", kind, i, err)
}

// NewSimulation wraps an already populated world. Each human and outlet is
// placed on the grid at its Position; their slice index becomes the grid
// occupant index.
func NewSimulation(p config.Params, rng *entropy.Source, grid *world.Grid, humans []*agents.Human, media []*agents.Media) (*Simulation, error) {
	for i, h := range humans {
		if err := grid.Place(h.Position, world.Occupant{Kind: world.HumanOccupant, Index: i}); err != nil {
			return nil, fmt.Errorf("place human %d: %w", h.ID, err)
		}
	}
	for i, m := range media {
		if err := grid.Place(m.Position, world.Occupant{Kind: world.MediaOccupant, Index: i}); err != nil {
			return nil, fmt.Errorf("place media %d: %w", m.ID, err)
		}
	}
	return newSimulation(p, rng, grid, humans, media), nil
}

func newSimulation(p config.Params, rng *entropy.Source, grid *world.Grid, humans []*agents.Human, media []*agents.Media) *Simulation {
	order := make([]int, len(humans))
	for i := range order {
		order[i] = i
	}
	s := &Simulation{
		Params: p,
		Grid:   grid,
		Humans: humans,
		Media:  media,
		rng:    rng,
		order:  order,
	}
	s.stats = ComputeMetrics(0, humans)
	return s
}

// Step advances the simulation by one tick and returns its metrics.
// Humans update one after another against the live state of everyone else,
// so a human processed early in the tick can influence later ones with
// already-updated values. Metrics are taken after every human has updated
// and before unhappy humans relocate.
func (s *Simulation) Step() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	if s.Params.ShuffleOrder {
		s.rng.Shuffle(len(s.order), func(i, j int) {
			s.order[i], s.order[j] = s.order[j], s.order[i]
		})
	}

	backfires := 0
	for _, idx := range s.order {
		backfires += s.updateHuman(s.Humans[idx])
	}

	m := ComputeMetrics(s.tick, s.Humans)
	m.Backfires = backfires
	m.Relocations = s.relocate()
	s.stats = m
	return m
}

// updateHuman runs one human's interaction phase and returns how many of
// its interactions backfired.
func (s *Simulation) updateHuman(h *agents.Human) int {
	p := s.Params
	h.ResetInteractions()
	backfires := 0

	for _, m := range selectMedia(h, s.Media, p, s.rng) {
		h.Consumed = append(h.Consumed, m)
		if applyInfluence(h, m.Ideology, p.GlobalMediaInfluence*m.Strength, mediaDamping, p, s.rng).Backfire {
			backfires++
		}
	}

	for _, o := range selectPartners(h, s.nearestHumans(h), p, s.rng) {
		h.Partners = append(h.Partners, o)
		if applyInfluence(h, o.Ideology, h.SocialInfluence, socialDamping, p, s.rng).Backfire {
			backfires++
		}
	}

	h.ClampState()
	h.AffectivePolarization *= 1 - p.APDecayRate

	s.updateSatisfaction(h)
	h.TicksSinceLastMove++
	return backfires
}

// Tick returns the number of ticks processed.
func (s *Simulation) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// Seed returns the seed the run's random source was created with.
func (s *Simulation) Seed() int64 {
	return s.rng.Seed()
}

// Metrics returns the most recent tick's metrics.
func (s *Simulation) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// AgentSnapshot is the per-human view exposed for visualization.
type AgentSnapshot struct {
	ID                    int     `json:"id" db:"agent_id"`
	ExternalID            string  `json:"external_id,omitempty" db:"external_id"`
	X                     int     `json:"x" db:"x"`
	Y                     int     `json:"y" db:"y"`
	Party                 string  `json:"party" db:"party"`
	Ideology              float64 `json:"ideology" db:"ideology"`
	AffectivePolarization float64 `json:"affective_polarization" db:"affective_polarization"`
	Happy                 bool    `json:"happy" db:"happy"`
}

// MediaSnapshot is the per-outlet view exposed for visualization.
type MediaSnapshot struct {
	ID       int     `json:"id"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Type     string  `json:"type"`
	Ideology float64 `json:"ideology"`
	Strength float64 `json:"strength"`
}

// Snapshot returns the current state of every human, in population order.
func (s *Simulation) Snapshot() []AgentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]AgentSnapshot, len(s.Humans))
	for i, h := range s.Humans {
		result[i] = AgentSnapshot{
			ID:                    h.ID,
			ExternalID:            h.ExternalID,
			X:                     h.Position.X,
			Y:                     h.Position.Y,
			Party:                 h.Party.String(),
			Ideology:              h.Ideology,
			AffectivePolarization: h.AffectivePolarization,
			Happy:                 h.Happy,
		}
	}
	return result
}

// MediaSnapshots returns every outlet.
func (s *Simulation) MediaSnapshots() []MediaSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]MediaSnapshot, len(s.Media))
	for i, m := range s.Media {
		result[i] = MediaSnapshot{
			ID:       m.ID,
			X:        m.Position.X,
			Y:        m.Position.Y,
			Type:     m.Type.String(),
			Ideology: m.Ideology,
			Strength: m.Strength,
		}
	}
	return result
}
