package engine

import (
	"math"
	"testing"

	"github.com/talgya/polarsim/internal/agents"
	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/entropy"
	"github.com/talgya/polarsim/internal/world"
)

// scripted replays a fixed sequence of uniform draws, cycling when exhausted.
type scripted struct {
	vals []float64
	n    int
}

func (s *scripted) Float() float64 {
	v := s.vals[s.n%len(s.vals)]
	s.n++
	return v
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

// testParams returns defaults with deterministic iteration order.
func testParams() config.Params {
	p := config.Default()
	p.ShuffleOrder = false
	p.Seed = 1
	return p
}

func newTestSim(t *testing.T, p config.Params, humans []*agents.Human, media []*agents.Media) *Simulation {
	t.Helper()
	grid := world.NewGrid(p.Width, p.Height, p.Wrap)
	sim, err := NewSimulation(p, entropy.New(p.Seed), grid, humans, media)
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	return sim
}

func human(id int, x, y int, ideology float64) *agents.Human {
	return &agents.Human{
		ID:                  id,
		Party:               agents.Independent,
		Position:            world.Coord{X: x, Y: y},
		Ideology:            ideology,
		Happy:               true,
		NewsFrequency:       1,
		DiscussionFrequency: 1,
	}
}
