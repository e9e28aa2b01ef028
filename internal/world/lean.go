// Regional political lean using layered simplex noise.
// Produces a smooth field over the grid so that neighboring cells share a
// similar liberal/conservative tilt, the way real districts cluster.
package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// LeanField maps grid cells to a lean in [-1, 1]; negative is liberal.
type LeanField struct {
	noise opensimplex.Noise
	scale float64
}

// NewLeanField creates a lean field. scale is the feature size in cells;
// larger values give broader regions.
func NewLeanField(seed int64, scale float64) *LeanField {
	if scale <= 0 {
		scale = 10
	}
	return &LeanField{
		noise: opensimplex.New(seed),
		scale: scale,
	}
}

// At returns the lean at c.
func (f *LeanField) At(c Coord) float64 {
	x := float64(c.X) / f.scale
	y := float64(c.Y) / f.scale

	// Two octaves: broad regions plus local variation.
	v := f.noise.Eval2(x, y)*0.7 + f.noise.Eval2(x*2, y*2)*0.3
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return v
}
