// Package pyramid builds the multi-resolution reference/comparison
// pyramids the hierarchical aligner searches over (spec.md §4.3). Level 0
// is finest; the first downscale collapses the CFA to luminance, every
// level after that is a 2x box average.
package pyramid

import (
	"fmt"

	"github.com/gogpu/hdrplus/gpu"
	"github.com/gogpu/hdrplus/herrors"
)

// Pyramid is an ordered list of single-channel textures, level 0 finest.
type Pyramid struct {
	Levels []*gpu.Texture
}

// Factors returns the downscale factors implied by cfaWidth and the number
// of additional 2x levels, e.g. Factors(2, 3) -> [2, 2, 2, 2].
func Factors(cfaWidth int, extraLevels int) []int {
	factors := make([]int, 0, extraLevels+1)
	factors = append(factors, cfaWidth)
	for i := 0; i < extraLevels; i++ {
		factors = append(factors, 2)
	}
	return factors
}

// LevelCount returns the smallest L such that, after applying the given
// factors progressively to (width, height), min(w,h)/prod(factors) <=
// searchDistance. This mirrors spec.md §4.3's pyramid-depth derivation.
func LevelCount(width, height, cfaWidth, searchDistance int) int {
	w, h := width, height
	levels := 0
	// Level 0: CFA collapse.
	w, h = w/cfaWidth, h/cfaWidth
	levels++
	for min(w, h) > searchDistance {
		w, h = (w+1)/2, (h+1)/2
		levels++
	}
	return levels
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Build downscales a prepared texture progressively using factors (first
// factor collapses the CFA to luminance via colorFactors, subsequent
// factors are 2x area averages). blackLevelMean is subtracted before the
// first collapse, per spec.md §4.3.
func Build(ctx *gpu.Context, prepared *gpu.Texture, cfaWidth int, colorFactors [3]float32, blackLevelMean float32, factors []int) (*Pyramid, error) {
	if len(factors) == 0 {
		return nil, herrors.New(herrors.InvalidArgument, "pyramid.Build", fmt.Errorf("empty factor list"))
	}
	if factors[0] != cfaWidth {
		return nil, herrors.New(herrors.InvalidArgument, "pyramid.Build", fmt.Errorf("first factor %d != cfaWidth %d", factors[0], cfaWidth))
	}

	level0, err := collapseCFA(ctx, prepared, cfaWidth, colorFactors, blackLevelMean)
	if err != nil {
		return nil, err
	}
	levels := []*gpu.Texture{level0}

	cur := level0
	for _, f := range factors[1:] {
		if f != 2 {
			return nil, herrors.New(herrors.InvalidArgument, "pyramid.Build", fmt.Errorf("unsupported downscale factor %d (only 2 allowed past level 0)", f))
		}
		down, err := boxDownscale2x(ctx, cur)
		if err != nil {
			return nil, err
		}
		levels = append(levels, down)
		cur = down
	}
	return &Pyramid{Levels: levels}, nil
}

// collapseCFA reduces a cfaWidth x cfaWidth super-pixel block to a single
// luminance value using per-channel color factors, for Bayer (cfaWidth==2,
// channel order R,G,G,B averaged to R,G,B) and X-Trans (cfaWidth==6).
func collapseCFA(ctx *gpu.Context, tex *gpu.Texture, cfaWidth int, colorFactors [3]float32, blackLevelMean float32) (*gpu.Texture, error) {
	w := tex.Width / cfaWidth
	h := tex.Height / cfaWidth
	out, err := ctx.AllocTexture(w, h, gpu.StorageFloatR, "pyramid.level0")
	if err != nil {
		return nil, err
	}

	channelOf := cfaChannelMap(cfaWidth)

	for by := 0; by < h; by++ {
		for bx := 0; bx < w; bx++ {
			var acc, weight float32
			for cy := 0; cy < cfaWidth; cy++ {
				for cx := 0; cx < cfaWidth; cx++ {
					v := tex.At(bx*cfaWidth+cx, by*cfaWidth+cy) - blackLevelMean
					ch := channelOf(cx, cy)
					f := colorFactors[ch]
					if f == 0 {
						f = 1
					}
					acc += v * f
					weight += f
				}
			}
			if weight == 0 {
				weight = 1
			}
			out.Set(bx, by, acc/weight)
		}
	}
	return out, nil
}

// cfaChannelMap returns a function mapping an in-cell (cx, cy) offset to a
// channel index 0=R,1=G,2=B. Bayer uses the canonical RGGB layout; X-Trans
// uses the Fujifilm 6x6 repeating pattern.
func cfaChannelMap(cfaWidth int) func(cx, cy int) int {
	if cfaWidth == 2 {
		// RGGB.
		pattern := [2][2]int{{0, 1}, {1, 2}}
		return func(cx, cy int) int { return pattern[cy][cx] }
	}
	// X-Trans 6x6 pattern (Fujifilm canonical layout).
	pattern := [6][6]int{
		{1, 1, 0, 1, 1, 2},
		{1, 1, 2, 1, 1, 0},
		{2, 0, 1, 0, 2, 1},
		{1, 1, 2, 1, 1, 0},
		{1, 1, 0, 1, 1, 2},
		{0, 2, 1, 2, 0, 1},
	}
	return func(cx, cy int) int { return pattern[cy%6][cx%6] }
}

// boxDownscale2x averages 2x2 blocks into a single value. Odd dimensions
// are handled by rounding up (the caller guarantees tile-multiple padding
// upstream, per spec.md §3's invariant that every level's dimensions are
// multiples of its tile size).
func boxDownscale2x(ctx *gpu.Context, tex *gpu.Texture) (*gpu.Texture, error) {
	w := (tex.Width + 1) / 2
	h := (tex.Height + 1) / 2
	out, err := ctx.AllocTexture(w, h, gpu.StorageFloatR, tex.Label+".down2")
	if err != nil {
		return nil, err
	}
	for by := 0; by < h; by++ {
		for bx := 0; bx < w; bx++ {
			var sum float32
			var n float32
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					x, y := bx*2+dx, by*2+dy
					if x >= tex.Width || y >= tex.Height {
						continue
					}
					sum += tex.At(x, y)
					n++
				}
			}
			out.Set(bx, by, sum/n)
		}
	}
	return out, nil
}
