// Package world provides the square grid agents live on, its occupancy
// bookkeeping, and the spatial queries the simulation needs.
// Coordinates are (X, Y) with 0 <= X < Width and 0 <= Y < Height.
package world

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	ErrOccupied    = errors.New("cell already occupied")
	ErrGridFull    = errors.New("no empty cell available")
)

// Coord is a cell position on the grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// OccupantKind says what, if anything, sits on a cell.
type OccupantKind uint8

const (
	Empty OccupantKind = iota
	HumanOccupant
	MediaOccupant
)

// Occupant identifies the agent on a cell. Index is the agent's position in
// the simulation's human or media slice, depending on Kind.
type Occupant struct {
	Kind  OccupantKind
	Index int
}

// NeighborDirections are the four orthogonal offsets used for adjacency.
var NeighborDirections = [4]Coord{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
}

// Grid is a fixed-size 2D grid where each cell holds at most one agent.
type Grid struct {
	Width  int
	Height int
	Wrap   bool // Torus topology when true

	cells []Occupant
	used  int
}

// NewGrid creates an empty grid.
func NewGrid(width, height int, wrap bool) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Wrap:   wrap,
		cells:  make([]Occupant, width*height),
	}
}

// Capacity returns the number of cells.
func (g *Grid) Capacity() int {
	return g.Width * g.Height
}

// Occupied returns the number of cells holding an agent.
func (g *Grid) Occupied() int {
	return g.used
}

// InBounds reports whether c lies on the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

func (g *Grid) index(c Coord) int {
	return c.Y*g.Width + c.X
}

// At returns the occupant of c. Out-of-bounds cells read as empty.
func (g *Grid) At(c Coord) Occupant {
	if !g.InBounds(c) {
		return Occupant{}
	}
	return g.cells[g.index(c)]
}

// IsEmpty reports whether c is on the grid and unoccupied.
func (g *Grid) IsEmpty(c Coord) bool {
	return g.InBounds(c) && g.cells[g.index(c)].Kind == Empty
}

// Place puts occ on c. The cell must be empty.
func (g *Grid) Place(c Coord, occ Occupant) error {
	if !g.InBounds(c) {
		return fmt.Errorf("place at %v: %w", c, ErrOutOfBounds)
	}
	if occ.Kind == Empty {
		return fmt.Errorf("place at %v: empty occupant", c)
	}
	i := g.index(c)
	if g.cells[i].Kind != Empty {
		return fmt.Errorf("place at %v: %w", c, ErrOccupied)
	}
	g.cells[i] = occ
	g.used++
	return nil
}

// Move relocates whatever occupies from onto the empty cell to.
func (g *Grid) Move(from, to Coord) error {
	if !g.InBounds(from) || !g.InBounds(to) {
		return fmt.Errorf("move %v -> %v: %w", from, to, ErrOutOfBounds)
	}
	src := g.index(from)
	if g.cells[src].Kind == Empty {
		return fmt.Errorf("move %v -> %v: source is empty", from, to)
	}
	dst := g.index(to)
	if g.cells[dst].Kind != Empty {
		return fmt.Errorf("move %v -> %v: %w", from, to, ErrOccupied)
	}
	g.cells[dst] = g.cells[src]
	g.cells[src] = Occupant{}
	return nil
}

// Neighbors returns the distinct in-grid orthogonal neighbors of c, in
// NeighborDirections order. On a wrapped grid two cells wide (or tall) both
// offsets along that axis reach the same cell; it is listed once.
func (g *Grid) Neighbors(c Coord) []Coord {
	result := make([]Coord, 0, 4)
next:
	for _, d := range NeighborDirections {
		n := Coord{X: c.X + d.X, Y: c.Y + d.Y}
		if g.Wrap {
			n = g.wrap(n)
		}
		if !g.InBounds(n) || n == c {
			continue
		}
		for _, seen := range result {
			if seen == n {
				continue next
			}
		}
		result = append(result, n)
	}
	return result
}

func (g *Grid) wrap(c Coord) Coord {
	c.X = ((c.X % g.Width) + g.Width) % g.Width
	c.Y = ((c.Y % g.Height) + g.Height) % g.Height
	return c
}

// Distance returns the Euclidean distance between cell centers, measured
// across the edges when the grid wraps.
func (g *Grid) Distance(a, b Coord) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	if g.Wrap {
		dx = math.Min(dx, float64(g.Width)-dx)
		dy = math.Min(dy, float64(g.Height)-dy)
	}
	return math.Hypot(dx, dy)
}

// EmptyWithin returns every empty cell whose distance from c is at most
// radius, scanned row-major (by Y, then X). c itself is never included.
func (g *Grid) EmptyWithin(c Coord, radius float64) []Coord {
	var result []Coord
	r := int(math.Floor(radius))
	for y := c.Y - r; y <= c.Y+r; y++ {
		for x := c.X - r; x <= c.X+r; x++ {
			n := Coord{X: x, Y: y}
			if g.Wrap {
				n = g.wrap(n)
			} else if !g.InBounds(n) {
				continue
			}
			if n == c || !g.IsEmpty(n) {
				continue
			}
			if g.Distance(c, n) <= radius {
				result = append(result, n)
			}
		}
	}
	if g.Wrap {
		result = dedupeRowMajor(result)
	}
	return result
}

// dedupeRowMajor removes duplicates produced when a wrapped search window is
// wider than the grid, and restores row-major order.
func dedupeRowMajor(cs []Coord) []Coord {
	seen := make(map[Coord]bool, len(cs))
	out := cs[:0]
	for _, c := range cs {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sortRowMajor(out)
	return out
}

func sortRowMajor(cs []Coord) {
	// Insertion sort: wrapped windows are small and nearly sorted.
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && less(cs[j], cs[j-1]); j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

func less(a, b Coord) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// EmptyCells returns all empty cells in row-major order.
func (g *Grid) EmptyCells() []Coord {
	result := make([]Coord, 0, g.Capacity()-g.used)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c := Coord{X: x, Y: y}
			if g.cells[g.index(c)].Kind == Empty {
				result = append(result, c)
			}
		}
	}
	return result
}

// Picker draws an integer in [0, n).
type Picker interface {
	Intn(n int) int
}

// RandomEmpty picks a uniformly random empty cell.
func (g *Grid) RandomEmpty(p Picker) (Coord, error) {
	free := g.Capacity() - g.used
	if free <= 0 {
		return Coord{}, ErrGridFull
	}
	// Rejection sampling is fast while the grid is sparse.
	if free*4 >= g.Capacity() {
		for i := 0; i < 64; i++ {
			c := Coord{X: p.Intn(g.Width), Y: p.Intn(g.Height)}
			if g.IsEmpty(c) {
				return c, nil
			}
		}
	}
	empty := g.EmptyCells()
	return empty[p.Intn(len(empty))], nil
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, occupied=%d)", g.Width, g.Height, g.used)
}
