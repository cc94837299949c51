package frequency

import (
	"math"

	"github.com/gogpu/hdrplus/gpu"
)

// rmsTexture computes, for every tile in g, the RMS of the reference tile's
// raw samples averaged across the CFA's channels — the per-tile shot-noise
// estimate spec.md §4.6 step 3 calls for.
func rmsTexture(ref *gpu.Texture, g *Grid, cfaWidth int) []float32 {
	out := make([]float32, g.TileCount())
	nch := numChannels(cfaWidth)
	idx := 0
	for _, y0 := range g.OriginsY {
		for _, x0 := range g.OriginsX {
			var sumSq float32
			var n float32
			for ch := 0; ch < nch; ch++ {
				tile := extractChannelTile(ref, x0, y0, cfaWidth, ch, g.TileSize)
				for _, v := range tile {
					sumSq += v * v
				}
				n += float32(len(tile))
			}
			out[idx] = float32(math.Sqrt(float64(sumSq / n)))
			idx++
		}
	}
	return out
}

// absDiffTexture returns the per-pixel absolute difference between the
// aligned comparison and reference textures, full resolution.
func absDiffTexture(ctx *gpu.Context, ref, aligned *gpu.Texture) (*gpu.Texture, error) {
	out, err := ctx.AllocTexture(ref.Width, ref.Height, gpu.StorageFloatR, "freq.absdiff")
	if err != nil {
		return nil, err
	}
	for i := range out.Data {
		d := ref.Data[i] - aligned.Data[i]
		if d < 0 {
			d = -d
		}
		out.Data[i] = d
	}
	return out, nil
}

// mismatchTexture computes, per tile, the modified-raised-cosine-weighted
// mean absolute difference over a window twice the tile span, normalized by
// sqrt(0.5*sigmaRef^2 + 0.5*sigmaRef^2/exposureFactor + 1), then globally
// renormalized so the frame mean is approximately 0.12 (spec.md §4.6 step
// 4).
func mismatchTexture(absDiff *gpu.Texture, g *Grid, sigmaRef float32, exposureFactor float64) []float32 {
	windowSpan := 2 * g.TileSpan
	win := raisedCosine1D(windowSpan)

	denom := float32(math.Sqrt(0.5*float64(sigmaRef)*float64(sigmaRef) + 0.5*float64(sigmaRef)*float64(sigmaRef)/exposureFactor + 1))
	if denom == 0 {
		denom = 1e-6
	}

	out := make([]float32, g.TileCount())
	idx := 0
	for _, ty0 := range g.OriginsY {
		for _, tx0 := range g.OriginsX {
			cx := tx0 + g.TileSpan/2
			cy := ty0 + g.TileSpan/2
			wx0 := cx - windowSpan/2
			wy0 := cy - windowSpan/2

			var sum, weight float32
			for wy := 0; wy < windowSpan; wy++ {
				py := wy0 + wy
				if py < 0 || py >= absDiff.Height {
					continue
				}
				for wx := 0; wx < windowSpan; wx++ {
					px := wx0 + wx
					if px < 0 || px >= absDiff.Width {
						continue
					}
					w := windowSeparable(win, wx, wy)
					sum += w * absDiff.At(px, py)
					weight += w
				}
			}
			var mean float32
			if weight > 0 {
				mean = sum / weight
			}
			out[idx] = mean / denom
			idx++
		}
	}

	// Renormalize so the frame mean is approximately 0.12.
	var total float32
	for _, v := range out {
		total += v
	}
	if len(out) > 0 && total > 0 {
		mean := total / float32(len(out))
		scale := float32(0.12) / mean
		for i := range out {
			out[i] *= scale
		}
	}
	return out
}

// highlightsNormTexture computes, for every tile, the fraction of CFA
// super-pixels whose maximum channel (after de-equalizing by exposureFactor) exceeds 50%
// of whiteLevel, transformed by clamp((1-frac)^2, 0.04/min(exposureFactor,4),
// 1). For a uniform-exposure burst this is 1 everywhere (spec.md §4.6 step
// 5).
func highlightsNormTexture(aligned *gpu.Texture, g *Grid, cfaWidth int, exposureFactor float64, whiteLevel float32, uniformExposure bool) []float32 {
	out := make([]float32, g.TileCount())
	if uniformExposure || whiteLevel <= 0 {
		for i := range out {
			out[i] = 1
		}
		return out
	}

	threshold := 0.5 * whiteLevel
	lowerBound := float32(0.04 / math.Min(exposureFactor, 4))

	idx := 0
	for _, y0 := range g.OriginsY {
		for _, x0 := range g.OriginsX {
			var clipped, total int
			for ty := 0; ty < g.TileSpan; ty += cfaWidth {
				for tx := 0; tx < g.TileSpan; tx += cfaWidth {
					var maxV float32
					for cy := 0; cy < cfaWidth; cy++ {
						for cx := 0; cx < cfaWidth; cx++ {
							if v := aligned.AtZero(x0+tx+cx, y0+ty+cy); v > maxV {
								maxV = v
							}
						}
					}
					total++
					if maxV/float32(exposureFactor) > threshold {
						clipped++
					}
				}
			}
			frac := float32(clipped) / float32(total)
			v := (1 - frac) * (1 - frac)
			out[idx] = clamp32(v, lowerBound, 1)
			idx++
		}
	}
	return out
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
