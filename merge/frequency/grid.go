package frequency

import "math"

// Grid describes the 50%-overlap tile layout shared by every frame in a
// burst (spec.md §4.6). tileSize is the per-channel transform size T (8 or
// 16); in raw pixels each tile spans tileSize*cfaWidth samples per side.
type Grid struct {
	TileSize int
	CFAWidth int
	StepPx   int // raw-pixel step between tile origins (50% overlap)
	TileSpan int // raw-pixel span of one tile
	OriginsX []int
	OriginsY []int
}

// NewGrid lays out tiles covering a width x height (already padded) raw
// plane with 50% overlap.
func NewGrid(width, height, tileSize, cfaWidth int) *Grid {
	span := tileSize * cfaWidth
	step := span / 2
	if step == 0 {
		step = span
	}
	g := &Grid{TileSize: tileSize, CFAWidth: cfaWidth, StepPx: step, TileSpan: span}
	for y := 0; y+span <= height; y += step {
		g.OriginsY = append(g.OriginsY, y)
	}
	for x := 0; x+span <= width; x += step {
		g.OriginsX = append(g.OriginsX, x)
	}
	if len(g.OriginsY) == 0 {
		g.OriginsY = []int{0}
	}
	if len(g.OriginsX) == 0 {
		g.OriginsX = []int{0}
	}
	return g
}

// TileCount returns the total number of tiles in the grid.
func (g *Grid) TileCount() int { return len(g.OriginsX) * len(g.OriginsY) }

// raisedCosine1D returns an n-sample raised-cosine (Hann) window,
// normalized to peak at 1, used both for the 50%-overlap tile window
// (spec.md §4.6 step 8) and, with n = 2*tileSpan, for the mismatch window
// (spec.md §4.6 step 4).
func raisedCosine1D(n int) []float32 {
	w := make([]float32, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = float32(0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// windowSeparable returns the 2-D separable raised-cosine window value at
// (x, y) within an n x n tile.
func windowSeparable(win1D []float32, x, y int) float32 {
	return win1D[x] * win1D[y]
}
