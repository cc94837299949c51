// Package exposure implements the exposure normalizer (spec.md §4.7): given
// the merged raw texture and the reference frame's black/white levels and
// color factors, it computes a post-merge gain and applies it, either as a
// single linear scalar or as a locally adaptive tone curve.
package exposure

import (
	"fmt"

	"github.com/gogpu/hdrplus/gpu"
	"github.com/gogpu/hdrplus/herrors"
	"github.com/gogpu/hdrplus/texture"
)

// Mode selects the exposure_control config value (spec.md §6 Config
// surface).
type Mode int

const (
	// Off applies no gain; the merged texture passes through unchanged.
	Off Mode = iota
	// Linear2X scales linearly to use the full white-level headroom,
	// capped at 2x.
	Linear2X
	// LinearFullRange scales linearly to use the full white-level
	// headroom, uncapped.
	LinearFullRange
	// Curve0EV applies a locally adaptive tone curve targeting the scene's
	// own 0 EV brightness.
	Curve0EV
	// Curve1EV is Curve0EV's target doubled (+1 EV).
	Curve1EV
)

const (
	// toneTargetFraction is the fraction of (white_level - black_min) the
	// tone-mapped modes target as their local mid-tone brightness. Open
	// question (spec.md gives no explicit constant): 0.18 is the
	// conventional photographic mid-gray reflectance, recorded as a design
	// decision in DESIGN.md.
	toneTargetFraction = 0.18
	toneGainFloor      = 0.25
	toneGainCeil       = 8.0
)

// Normalize computes and applies the exposure gain for mode, returning the
// normalized texture and the scalar gain actually applied (for linear modes
// this is exact; for tone-mapped modes it is the mean of the per-pixel
// gain map, per spec.md §6's "scalar post-exposure gain actually applied").
func Normalize(ctx *gpu.Context, merged *gpu.Texture, cfaWidth int, blackLevel []float32, whiteLevel float32, colorFactors [3]float32, mode Mode) (*gpu.Texture, float32, error) {
	if len(blackLevel) != cfaWidth*cfaWidth {
		return nil, 0, herrors.New(herrors.InvalidArgument, "exposure.Normalize",
			fmt.Errorf("black level length %d != %d", len(blackLevel), cfaWidth*cfaWidth))
	}

	if mode == Off {
		return merged.Clone(), 1, nil
	}

	blackMin := blackLevel[0]
	for _, v := range blackLevel[1:] {
		if v < blackMin {
			blackMin = v
		}
	}

	if mode == Linear2X || mode == LinearFullRange {
		return normalizeLinear(ctx, merged, blackMin, whiteLevel, mode)
	}
	return normalizeCurve(ctx, merged, cfaWidth, blackMin, whiteLevel, colorFactors, mode)
}

func normalizeLinear(ctx *gpu.Context, merged *gpu.Texture, blackMin, whiteLevel float32, mode Mode) (*gpu.Texture, float32, error) {
	maxVal, err := texture.Max(ctx, merged)
	if err != nil {
		return nil, 0, err
	}
	denom := maxVal - blackMin
	if denom < 1e-6 {
		denom = 1e-6
	}
	gain := (whiteLevel - blackMin) / denom
	if mode == Linear2X && gain > 2 {
		gain = 2
	}

	out, err := ctx.AllocTexture(merged.Width, merged.Height, merged.Class, merged.Label+".exposed")
	if err != nil {
		return nil, 0, err
	}
	for i, v := range merged.Data {
		out.Data[i] = blackMin + (v-blackMin)*gain
	}
	return out, gain, nil
}

func normalizeCurve(ctx *gpu.Context, merged *gpu.Texture, cfaWidth int, blackMin, whiteLevel float32, colorFactors [3]float32, mode Mode) (*gpu.Texture, float32, error) {
	support := 1
	if cfaWidth > 2 {
		support = 2
	}

	luma, err := localLuminance(ctx, merged, cfaWidth, colorFactors, support)
	if err != nil {
		return nil, 0, err
	}

	target := toneTargetFraction * (whiteLevel - blackMin)
	if mode == Curve1EV {
		target *= 2
	}

	out, err := ctx.AllocTexture(merged.Width, merged.Height, merged.Class, merged.Label+".exposed")
	if err != nil {
		return nil, 0, err
	}

	var gainSum float64
	for i := range merged.Data {
		l := luma.Data[i] - blackMin
		if l < 1e-6 {
			l = 1e-6
		}
		g := target / l
		g = clamp32(g, toneGainFloor, toneGainCeil)
		out.Data[i] = blackMin + (merged.Data[i]-blackMin)*g
		gainSum += float64(g)
	}
	meanGain := float32(gainSum / float64(len(merged.Data)))
	return out, meanGain, nil
}

// localLuminance collapses each CFA super-pixel to a single color-factor
// weighted luminance value, replicated back across the cell, then blurs it
// with a binomial kernel of 2*support+1 taps — the "blurred luminance
// estimate" of spec.md §4.7, computed without a separate pyramid dependency.
func localLuminance(ctx *gpu.Context, tex *gpu.Texture, cfaWidth int, colorFactors [3]float32, support int) (*gpu.Texture, error) {
	collapsed, err := ctx.AllocTexture(tex.Width, tex.Height, tex.Class, tex.Label+".luma")
	if err != nil {
		return nil, err
	}
	blocksX := tex.Width / cfaWidth
	blocksY := tex.Height / cfaWidth
	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			var sum, wsum float32
			for cy := 0; cy < cfaWidth; cy++ {
				for cx := 0; cx < cfaWidth; cx++ {
					w := colorFactorWeight(cx, cy, cfaWidth, colorFactors)
					v := tex.At(bx*cfaWidth+cx, by*cfaWidth+cy)
					sum += w * v
					wsum += w
				}
			}
			var mean float32
			if wsum > 0 {
				mean = sum / wsum
			}
			for cy := 0; cy < cfaWidth; cy++ {
				for cx := 0; cx < cfaWidth; cx++ {
					collapsed.Set(bx*cfaWidth+cx, by*cfaWidth+cy, mean)
				}
			}
		}
	}
	return texture.BinomialBlur(ctx, collapsed, cfaWidth, support*2)
}

// colorFactorWeight returns the color-factor weight for CFA cell (cx, cy):
// red at (0,0), blue at (1,1) for Bayer, green everywhere else — the same
// Bayer assignment as pyramid's cfaChannelMap. For X-Trans it is a
// simplification of that map, kept package-local since it is only needed
// for this weighted mean.
func colorFactorWeight(cx, cy, cfaWidth int, colorFactors [3]float32) float32 {
	if cfaWidth == 2 {
		switch {
		case cx == 0 && cy == 0:
			return colorFactors[0]
		case cx == 1 && cy == 1:
			return colorFactors[2]
		default:
			return colorFactors[1]
		}
	}
	// X-Trans: fall back to the green factor almost everywhere, matching
	// the pattern's green-majority layout; only (2,2) uses the mean of the
	// red and blue factors.
	if cx == 2 && cy == 2 {
		return (colorFactors[0] + colorFactors[2]) / 2
	}
	return colorFactors[1]
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
