// Package spatial implements the spatial (pixel-domain) merge engine
// (spec.md §4.5, "Fast" merging_algorithm): align each comparison frame,
// estimate a per-super-pixel robustness weight from blurred color
// difference, and accumulate.
package spatial

import (
	"fmt"
	"math"

	"github.com/gogpu/hdrplus/align"
	"github.com/gogpu/hdrplus/gpu"
	"github.com/gogpu/hdrplus/herrors"
	"github.com/gogpu/hdrplus/pyramid"
	"github.com/gogpu/hdrplus/texture"
)

const blurSupport = 16

// Robustness maps the user-facing noise_reduction slider (1..23) to the
// scalar r used in the per-super-pixel weight, per spec.md §4.5. Negative
// values of the formula (noise_reduction 26 and above, outside the
// documented 1..23 range) are clamped to r == 0, which disables robust
// rejection entirely.
func Robustness(noiseReduction int) float64 {
	r := 0.12*math.Pow(1.3, float64(36-roundInt(float64(noiseReduction)))/2) - 0.4529822
	if r < 0 {
		return 0
	}
	return r
}

func roundInt(v float64) int { return int(math.Round(v)) }

// Accumulator is the merge accumulator for the spatial engine: a float32
// texture with the reference frame's shape.
type Accumulator struct {
	tex   *gpu.Texture
	count int
}

// NewAccumulator allocates a zero-initialized accumulator matching the
// reference frame's prepared shape.
func NewAccumulator(ctx *gpu.Context, refPrepared *gpu.Texture) (*Accumulator, error) {
	tex, err := ctx.AllocTexture(refPrepared.Width, refPrepared.Height, refPrepared.Class, "spatial.accumulator")
	if err != nil {
		return nil, err
	}
	return &Accumulator{tex: tex}, nil
}

// Texture returns the accumulator's backing texture.
func (a *Accumulator) Texture() *gpu.Texture { return a.tex }

// AddReference seeds the accumulator with the reference frame at unit
// weight — the first "frame" in spec.md §4.5 step 6.
func (a *Accumulator) AddReference(ref *gpu.Texture) {
	copy(a.tex.Data, ref.Data)
	a.count++
}

// referenceNoiseSigma computes the mean color-difference between the
// reference and its own binomial blur, once per burst (spec.md §4.5 step 4).
func referenceNoiseSigma(ctx *gpu.Context, ref *gpu.Texture, cfaWidth int) (float32, error) {
	blurred, err := texture.BinomialBlur(ctx, ref, cfaWidth, blurSupport)
	if err != nil {
		return 0, err
	}
	buf, bx, by, err := texture.ColorDifference(ctx, ref, blurred, cfaWidth)
	if err != nil {
		return 0, err
	}
	if bx*by == 0 {
		return 0, herrors.New(herrors.Internal, "spatial.referenceNoiseSigma", fmt.Errorf("empty super-pixel grid"))
	}
	var sum float32
	for _, v := range buf.Data {
		sum += v
	}
	sigma := sum / float32(bx*by)
	if sigma <= 0 {
		sigma = 1e-6
	}
	return sigma, nil
}

// MergeFrame aligns cmpPrepared onto the reference pyramid, computes the
// robustness weight, and accumulates it into acc, per spec.md §4.5.
// sigma is the once-per-burst reference noise estimate from
// referenceNoiseSigma; r is the robustness scalar from Robustness.
func MergeFrame(ctx *gpu.Context, acc *Accumulator, refPyr *pyramid.Pyramid, refPrepared, cmpPrepared *gpu.Texture, cfaWidth int, colorFactors [3]float32, blackLevelMean float32, alignCfg align.Config, sigma float32, r float64) error {
	field, err := align.Align(ctx, refPyr, cmpPrepared, cfaWidth, colorFactors, blackLevelMean, alignCfg)
	if err != nil {
		return err
	}

	tileSize := alignCfg.TileSizes[0]
	aligned := applyField(ctx, cmpPrepared, field, tileSize)

	refBlur, err := texture.BinomialBlur(ctx, refPrepared, cfaWidth, blurSupport)
	if err != nil {
		return err
	}
	alignedBlur, err := texture.BinomialBlur(ctx, aligned, cfaWidth, blurSupport)
	if err != nil {
		return err
	}

	diffBuf, bx, by, err := texture.ColorDifference(ctx, refBlur, alignedBlur, cfaWidth)
	if err != nil {
		return err
	}

	weightTex, err := ctx.AllocTexture(bx, by, gpu.StorageFloatR, "spatial.weight")
	if err != nil {
		return err
	}
	for i, d := range diffBuf.Data {
		var w float32
		if r > 0 {
			w = clamp32(1-d*float32(r)/sigma, 0, 1)
		}
		weightTex.Data[i] = w
	}

	weightFull, err := texture.Upsample(ctx, weightTex, acc.tex.Width, acc.tex.Height, texture.Bilinear)
	if err != nil {
		return err
	}

	merged, err := texture.WeightedAdd(ctx, acc.tex, aligned, weightFull)
	if err != nil {
		return err
	}
	copy(acc.tex.Data, merged.Data)
	acc.count++
	return nil
}

// applyField resamples cmp onto the reference coordinate system using a
// piecewise-constant-per-tile shift from field, clamping out-of-bounds
// reads to zero on the (symmetrically zero-padded) comparison texture, per
// spec.md §4.4's edge policy.
func applyField(ctx *gpu.Context, cmp *gpu.Texture, field *align.Field, tileSize int) *gpu.Texture {
	out, _ := ctx.AllocTexture(cmp.Width, cmp.Height, cmp.Class, cmp.Label+".aligned")
	for ty := 0; ty < field.TilesY; ty++ {
		for tx := 0; tx < field.TilesX; tx++ {
			v := field.Vectors[ty*field.TilesX+tx]
			x0, y0 := tx*tileSize, ty*tileSize
			x1 := minInt(x0+tileSize, cmp.Width)
			y1 := minInt(y0+tileSize, cmp.Height)
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					out.Set(x, y, cmp.AtZero(x+v.X, y+v.Y))
				}
			}
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clamp32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ReferenceNoiseSigma exports referenceNoiseSigma for callers (the
// orchestrator computes it once per burst before the per-frame loop).
func ReferenceNoiseSigma(ctx *gpu.Context, ref *gpu.Texture, cfaWidth int) (float32, error) {
	return referenceNoiseSigma(ctx, ref, cfaWidth)
}
