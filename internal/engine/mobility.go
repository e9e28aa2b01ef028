// Mobility: unhappy humans move to the nearby empty cell whose neighbors
// suit them best.
package engine

import (
	"log/slog"

	"github.com/talgya/polarsim/internal/agents"
	"github.com/talgya/polarsim/internal/world"
)

// relocate moves every eligible unhappy human, in population order.
// Candidate cells are scored row-major and the first maximum wins. Moves take
// effect immediately, so later movers see the updated grid. Returns the
// number of moves.
func (s *Simulation) relocate() int {
	moves := 0
	for _, h := range s.Humans {
		if !h.CanRelocate() {
			continue
		}

		cells := s.Grid.EmptyWithin(h.Position, s.Params.SearchRadius)
		if len(cells) == 0 {
			continue
		}

		best := cells[0]
		bestScore := s.cellScore(best, h)
		for _, c := range cells[1:] {
			if score := s.cellScore(c, h); score > bestScore {
				best, bestScore = c, score
			}
		}

		if err := s.Grid.Move(h.Position, best); err != nil {
			// Cells come from EmptyWithin on the current grid; this is a bookkeeping bug.
			slog.Error("relocation failed", "human", h.ID, "error", err)
			continue
		}
		slog.Debug("human relocated",
			"human", h.ID,
			"from", h.Position,
			"to", best,
			"score", bestScore,
		)
		h.Position = best
		h.TicksSinceLastMove = 0
		h.UnhappyTicks = 0
		moves++
	}
	return moves
}

// cellScore blends the mean similarity of humans and of outlets on the
// cells adjacent to c. The mover itself is ignored; a kind with no
// neighbors contributes zero.
func (s *Simulation) cellScore(c world.Coord, h *agents.Human) float64 {
	var humanSum, mediaSum float64
	var humanN, mediaN int

	for _, n := range s.Grid.Neighbors(c) {
		occ := s.Grid.At(n)
		switch occ.Kind {
		case world.HumanOccupant:
			o := s.Humans[occ.Index]
			if o == h {
				continue
			}
			humanSum += similarity(o.Ideology, h.Ideology)
			humanN++
		case world.MediaOccupant:
			mediaSum += similarity(s.Media[occ.Index].Ideology, h.Ideology)
			mediaN++
		}
	}

	social, media := 0.0, 0.0
	if humanN > 0 {
		social = humanSum / float64(humanN)
	}
	if mediaN > 0 {
		media = mediaSum / float64(mediaN)
	}
	w := s.Params.SocialComfortWeight
	return w*social + (1-w)*media
}
