// Package align implements the hierarchical aligner (spec.md §4.4):
// tile-wise integer-pixel motion search across a resolution pyramid, with
// 3-candidate upsampling between levels for robustness against outliers.
package align

import (
	"fmt"

	"github.com/gogpu/hdrplus/gpu"
	"github.com/gogpu/hdrplus/herrors"
	"github.com/gogpu/hdrplus/pyramid"
)

// Vec2 is an integer 2-D motion vector, in pixels at the resolution of the
// field it belongs to.
type Vec2 struct{ X, Y int }

// Field is a 2-D array of per-tile alignment vectors.
type Field struct {
	TilesX, TilesY int
	Vectors        []Vec2
	// costs holds the matching cost achieved for each tile's chosen vector,
	// used by the next-finer level's 3-candidate upsample step.
	costs []float32
}

func newField(tx, ty int) *Field {
	return &Field{TilesX: tx, TilesY: ty, Vectors: make([]Vec2, tx*ty), costs: make([]float32, tx*ty)}
}

func (f *Field) at(tx, ty int) Vec2    { return f.Vectors[ty*f.TilesX+tx] }
func (f *Field) set(tx, ty int, v Vec2, cost float32) {
	f.Vectors[ty*f.TilesX+tx] = v
	f.costs[ty*f.TilesX+tx] = cost
}
func (f *Field) cost(tx, ty int) float32 { return f.costs[ty*f.TilesX+tx] }

// Config carries the per-level parameters derived by the orchestrator
// (spec.md §4.8): tile sizes decreasing-then-clamped to 8, and search
// distances, both indexed finest-first to match the Pyramid level order
// (level 0 = finest).
type Config struct {
	Factors         []int
	TileSizes       []int
	SearchDist      []int
	UniformExposure bool
}

func (c Config) validate(levels int) error {
	if len(c.Factors) != levels || len(c.TileSizes) != levels || len(c.SearchDist) != levels {
		return fmt.Errorf("config length mismatch: factors=%d tileSizes=%d searchDist=%d levels=%d",
			len(c.Factors), len(c.TileSizes), len(c.SearchDist), levels)
	}
	return nil
}

// Align searches for the per-tile motion field that best matches cmpPrepared
// onto the reference pyramid refPyr, coarse to fine. cmpPrepared is the full
// (pre-CFA-collapse) prepared comparison texture; Align builds its own
// pyramid from it using the same factors/cfaWidth/colorFactors as the
// reference. The returned Field is in raw (pre-CFA-collapse) pixels: one
// vector per cfg.TileSizes[0]-pixel tile of cmpPrepared, taken from the
// pyramid level-0 tile covering it and scaled by cfg.Factors[0], restricted
// to even integers per spec.md §4.4.
func Align(ctx *gpu.Context, refPyr *pyramid.Pyramid, cmpPrepared *gpu.Texture, cfaWidth int, colorFactors [3]float32, blackLevelMean float32, cfg Config) (*Field, error) {
	if err := cfg.validate(len(refPyr.Levels)); err != nil {
		return nil, herrors.New(herrors.InvalidArgument, "align.Align", err)
	}

	cmpPyr, err := pyramid.Build(ctx, cmpPrepared, cfaWidth, colorFactors, blackLevelMean, cfg.Factors)
	if err != nil {
		return nil, err
	}
	if len(cmpPyr.Levels) != len(refPyr.Levels) {
		return nil, herrors.New(herrors.Internal, "align.Align", fmt.Errorf("comparison pyramid depth %d != reference depth %d", len(cmpPyr.Levels), len(refPyr.Levels)))
	}

	coarsest := len(refPyr.Levels) - 1
	field := initCoarseField(refPyr.Levels[coarsest], cfg.TileSizes[coarsest])
	searchLevel(refPyr.Levels[coarsest], cmpPyr.Levels[coarsest], field, cfg.TileSizes[coarsest], cfg.SearchDist[coarsest], false, cfg.UniformExposure)

	for level := coarsest - 1; level >= 0; level-- {
		factor := cfg.Factors[level+1]
		field = upsampleWithConsistency(field, factor, cfg.TileSizes[level], refPyr.Levels[level], cmpPyr.Levels[level], cfg.SearchDist[level])
		useL2 := level == 0
		searchLevel(refPyr.Levels[level], cmpPyr.Levels[level], field, cfg.TileSizes[level], cfg.SearchDist[level], useL2, cfg.UniformExposure)
	}

	// Re-express the level-0 field in raw pixels, on a grid of
	// cfg.TileSizes[0]-pixel tiles over cmpPrepared.
	f0, ts := cfg.Factors[0], cfg.TileSizes[0]
	raw := newField((cmpPrepared.Width+ts-1)/ts, (cmpPrepared.Height+ts-1)/ts)
	for ty := 0; ty < raw.TilesY; ty++ {
		for tx := 0; tx < raw.TilesX; tx++ {
			cx := scaleIndex(tx*ts/f0/ts, field.TilesX, field.TilesX)
			cy := scaleIndex(ty*ts/f0/ts, field.TilesY, field.TilesY)
			raw.set(tx, ty, scaleVec(field.at(cx, cy), f0), field.cost(cx, cy))
		}
	}
	restrictToEven(raw)
	return raw, nil
}

func initCoarseField(ref *gpu.Texture, tileSize int) *Field {
	tx := (ref.Width + tileSize - 1) / tileSize
	ty := (ref.Height + tileSize - 1) / tileSize
	return newField(tx, ty)
}

// searchLevel evaluates, for every tile, the matching cost over
// [-searchDist, +searchDist]^2 around the tile's current (prior) vector,
// and keeps the minimum-cost shift. Out-of-bounds comparison reads return
// zero (textures are symmetrically zero-padded, spec.md §4.4 edge policy).
func searchLevel(ref, cmp *gpu.Texture, field *Field, tileSize, searchDist int, useL2, uniformExposure bool) {
	for ty := 0; ty < field.TilesY; ty++ {
		for tx := 0; tx < field.TilesX; tx++ {
			prior := field.at(tx, ty)
			bestCost := float32(0)
			bestVec := prior
			first := true
			for dy := -searchDist; dy <= searchDist; dy++ {
				for dx := -searchDist; dx <= searchDist; dx++ {
					cand := Vec2{X: prior.X + dx, Y: prior.Y + dy}
					cost := tileCost(ref, cmp, tx*tileSize, ty*tileSize, tileSize, cand, useL2)
					if first || cost < bestCost || (cost == bestCost && tieBreak(cand, bestVec, uniformExposure)) {
						bestCost = cost
						bestVec = cand
						first = false
					}
				}
			}
			field.set(tx, ty, bestVec, bestCost)
		}
	}
}

// tieBreak selects, on an exact matching-cost tie, which of cand/cur to
// keep — spec.md §4.4 says the uniform-vs-non-uniform exposure flag exists
// "to select tie-breaking" without naming the uniform-exposure rule's
// counterpart, so the two rules are:
//
//   - Uniform exposure: prefer the smaller-magnitude (closer-to-zero-motion)
//     candidate. Every frame shares the same gain-equalized noise floor, so
//     biasing a genuine tie toward no motion is a safe prior.
//   - Non-uniform exposure: keep cur (scan order decides, smallest dy then
//     dx). Gain-equalization has already rescaled the comparison samples by
//     a different factor per frame; layering a second, zero-motion bias on
//     top of that would skew the estimate toward whichever frame's gain
//     happens to favor small vectors, so ties resolve by first-seen order
//     instead.
func tieBreak(cand, cur Vec2, uniformExposure bool) bool {
	if !uniformExposure {
		return false
	}
	candMag := cand.X*cand.X + cand.Y*cand.Y
	curMag := cur.X*cur.X + cur.Y*cur.Y
	return candMag < curMag
}

func tileCost(ref, cmp *gpu.Texture, x0, y0, tileSize int, shift Vec2, useL2 bool) float32 {
	var sum float32
	for y := 0; y < tileSize; y++ {
		for x := 0; x < tileSize; x++ {
			rx, ry := x0+x, y0+y
			if rx >= ref.Width || ry >= ref.Height {
				continue
			}
			r := ref.At(rx, ry)
			c := cmp.AtZero(rx+shift.X, ry+shift.Y)
			d := r - c
			if useL2 {
				sum += d * d
			} else {
				if d < 0 {
					d = -d
				}
				sum += d
			}
		}
	}
	return sum
}

// upsampleWithConsistency scales coarse's vectors by factor to the next
// finer level's tile grid, then for every fine tile chooses among three
// candidates: the direct upsample of its parent tile, and the upsampled
// vectors of the two 4-neighbor parent tiles with the lowest recorded
// coarse-level cost — the 3x3 consistency check of spec.md §4.4.
func upsampleWithConsistency(coarse *Field, factor, fineTileSize int, ref, cmp *gpu.Texture, searchDist int) *Field {
	tx := (ref.Width + fineTileSize - 1) / fineTileSize
	ty := (ref.Height + fineTileSize - 1) / fineTileSize
	fine := newField(tx, ty)

	for ftY := 0; ftY < ty; ftY++ {
		for ftX := 0; ftX < tx; ftX++ {
			// Map fine tile to its parent coarse tile by the ratio of tile
			// counts, which tracks the pyramid's own downscale factor
			// between these two levels.
			cx := scaleIndex(ftX, tx, coarse.TilesX)
			cy := scaleIndex(ftY, ty, coarse.TilesY)

			candidates := []Vec2{scaleVec(coarse.at(cx, cy), factor)}
			neighbors := neighborCoords(cx, cy, coarse.TilesX, coarse.TilesY)
			type scored struct {
				v    Vec2
				cost float32
			}
			var ranked []scored
			for _, n := range neighbors {
				ranked = append(ranked, scored{v: scaleVec(coarse.at(n[0], n[1]), factor), cost: coarse.cost(n[0], n[1])})
			}
			// Keep the two lowest-cost neighbors.
			for i := 0; i < len(ranked); i++ {
				for j := i + 1; j < len(ranked); j++ {
					if ranked[j].cost < ranked[i].cost {
						ranked[i], ranked[j] = ranked[j], ranked[i]
					}
				}
			}
			for i := 0; i < len(ranked) && i < 2; i++ {
				candidates = append(candidates, ranked[i].v)
			}

			best := candidates[0]
			bestCost := tileCost(ref, cmp, ftX*fineTileSize, ftY*fineTileSize, fineTileSize, best, false)
			for _, cand := range candidates[1:] {
				cost := tileCost(ref, cmp, ftX*fineTileSize, ftY*fineTileSize, fineTileSize, cand, false)
				if cost < bestCost {
					bestCost = cost
					best = cand
				}
			}
			fine.set(ftX, ftY, best, bestCost)
		}
	}
	return fine
}

func scaleIndex(idx, fineCount, coarseCount int) int {
	if fineCount == 0 {
		return 0
	}
	i := idx * coarseCount / fineCount
	if i >= coarseCount {
		i = coarseCount - 1
	}
	return i
}

func scaleVec(v Vec2, factor int) Vec2 {
	return Vec2{X: v.X * factor, Y: v.Y * factor}
}

func neighborCoords(x, y, w, h int) [][2]int {
	var out [][2]int
	dirs := [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	for _, d := range dirs {
		nx, ny := x+d[0], y+d[1]
		if nx < 0 || ny < 0 || nx >= w || ny >= h {
			continue
		}
		out = append(out, [2]int{nx, ny})
	}
	return out
}

// restrictToEven rounds every vector component to the nearest even integer,
// preserving CFA phase (spec.md §4.4, §3 invariants).
func restrictToEven(f *Field) {
	for i, v := range f.Vectors {
		f.Vectors[i] = Vec2{X: roundToEven(v.X), Y: roundToEven(v.Y)}
	}
}

func roundToEven(v int) int {
	if v%2 == 0 {
		return v
	}
	if v > 0 {
		return v - 1
	}
	return v + 1
}
