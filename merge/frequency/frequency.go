// Package frequency implements the frequency-domain (FFT-based Wiener)
// merge engine (spec.md §4.6, the non-"Fast" merging_algorithm modes):
// 50%-overlap tile transforms, subpixel alignment via the Fourier shift
// theorem, per-bin temporal merge weighting, frequency-dependent
// deconvolution sharpening, and overlap-add reconstruction.
package frequency

import (
	"fmt"

	"github.com/gogpu/hdrplus/align"
	"github.com/gogpu/hdrplus/gpu"
	"github.com/gogpu/hdrplus/herrors"
	"github.com/gogpu/hdrplus/merge/frequency/fft"
	"github.com/gogpu/hdrplus/pyramid"
	"github.com/gogpu/hdrplus/texture"
)

const refBlurSupport = 16

// referenceNoiseSigma mirrors merge/spatial's own reference-noise estimate
// (mean color-difference between the reference and its own binomial blur),
// kept as a package-local copy rather than an import of merge/spatial so the
// two merge engines stay independent of each other.
func referenceNoiseSigma(ctx *gpu.Context, ref *gpu.Texture, cfaWidth int) (float32, error) {
	blurred, err := texture.BinomialBlur(ctx, ref, cfaWidth, refBlurSupport)
	if err != nil {
		return 0, err
	}
	buf, bx, by, err := texture.ColorDifference(ctx, ref, blurred, cfaWidth)
	if err != nil {
		return 0, err
	}
	if bx*by == 0 {
		return 0, herrors.New(herrors.Internal, "frequency.referenceNoiseSigma", fmt.Errorf("empty super-pixel grid"))
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

// applyField resamples cmp onto the reference coordinate system using a
// piecewise-constant-per-tile shift from field, the same scheme
// merge/spatial uses (spec.md §4.4's edge policy: out-of-bounds comparison
// reads are zero).
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

// tileChannelSpectra holds one tile's per-channel forward spectra plus the
// window-normalization weight accumulated so far, per channel and bin. The
// outer slices have length numChannels(cfaWidth): 3 for Bayer, 4 for
// X-Trans.
type tileChannelSpectra struct {
	ref       [][]fft.Complex // pristine reference spectrum, the diff baseline
	merged    [][]fft.Complex // weighted running sum
	weightSum [][]float32     // per-bin weight normalizer
}

func newTileChannelSpectra(T, nch int) *tileChannelSpectra {
	t := &tileChannelSpectra{
		ref:       make([][]fft.Complex, nch),
		merged:    make([][]fft.Complex, nch),
		weightSum: make([][]float32, nch),
	}
	for ch := 0; ch < nch; ch++ {
		t.ref[ch] = make([]fft.Complex, T*T)
		t.merged[ch] = make([]fft.Complex, T*T)
		t.weightSum[ch] = make([]float32, T*T)
	}
	return t
}

// MergeBurst runs the frequency-domain merge engine over a burst: refPrepared
// is the reference frame (contributing at unit weight), cmpPrepared holds
// every other prepared comparison frame, not yet aligned — MergeBurst aligns
// each one onto the reference pyramid refPyr itself. tileSize is the per-channel transform size T (8
// or 16, spec.md §4.8). exposureFactors is parallel to cmpPrepared — each
// frame's own 2^((ref_bias-this_bias)/100) exposure factor (spec.md
// Glossary), since a bracketed burst has a different factor per frame.
// Returns the merged, deconvolved raw plane at refPrepared's resolution.
func MergeBurst(
	ctx *gpu.Context,
	refPyr *pyramid.Pyramid,
	refPrepared *gpu.Texture,
	cmpPrepared []*gpu.Texture,
	cfaWidth int,
	colorFactors [3]float32,
	blackLevelMean float32,
	alignCfg align.Config,
	tileSize int,
	exposureFactors []float64,
	whiteLevel float32,
	uniformExposure bool,
) (*gpu.Texture, error) {
	if len(exposureFactors) != len(cmpPrepared) {
		return nil, herrors.New(herrors.InvalidArgument, "frequency.MergeBurst",
			fmt.Errorf("exposureFactors length %d != comparison frame count %d", len(exposureFactors), len(cmpPrepared)))
	}
	total := 1 + len(cmpPrepared)
	m := newMachine(total)
	if err := m.prepareRef(); err != nil {
		return nil, herrors.New(herrors.Internal, "frequency.MergeBurst", err)
	}

	nch := numChannels(cfaWidth)
	grid := NewGrid(refPrepared.Width, refPrepared.Height, tileSize, cfaWidth)
	win := raisedCosine1D(tileSize)

	sigmaRef, err := referenceNoiseSigma(ctx, refPrepared, cfaWidth)
	if err != nil {
		return nil, err
	}
	rms := rmsTexture(refPrepared, grid, cfaWidth)

	numTiles := grid.TileCount()
	tiles := make([]*tileChannelSpectra, numTiles)
	tileMismatch := make([]float32, numTiles) // worst-seen mismatch, drives the deconv skip
	scalarWeightSum := make([]float32, numTiles*tileSize*tileSize)
	refSpecCh0 := make([][]fft.Complex, numTiles) // pure reference spectrum, used as the subpixel search target

	// Seed every tile with the reference's own spectrum at unit weight.
	idx := 0
	for _, y0 := range grid.OriginsY {
		for _, x0 := range grid.OriginsX {
			tiles[idx] = newTileChannelSpectra(tileSize, nch)
			for ch := 0; ch < nch; ch++ {
				samples := extractChannelTile(refPrepared, x0, y0, cfaWidth, ch, tileSize)
				windowed := applyWindow2D(samples, win, tileSize)
				spec, err := forward2D(windowed, tileSize)
				if err != nil {
					return nil, herrors.New(herrors.Internal, "frequency.MergeBurst", err)
				}
				copy(tiles[idx].ref[ch], spec)
				copy(tiles[idx].merged[ch], spec)
				for k := range tiles[idx].weightSum[ch] {
					tiles[idx].weightSum[ch][k] = 1
				}
				if ch == 0 {
					refSpecCh0[idx] = append([]fft.Complex(nil), spec...)
				}
			}
			idx++
		}
	}

	for fi, cmp := range cmpPrepared {
		exposureFactor := exposureFactors[fi]
		field, err := align.Align(ctx, refPyr, cmp, cfaWidth, colorFactors, blackLevelMean, alignCfg)
		if err != nil {
			return nil, err
		}
		aligned := applyField(ctx, cmp, field, alignCfg.TileSizes[0])

		absDiff, err := absDiffTexture(ctx, refPrepared, aligned)
		if err != nil {
			return nil, err
		}
		mismatch := mismatchTexture(absDiff, grid, sigmaRef, exposureFactor)
		highlights := highlightsNormTexture(aligned, grid, cfaWidth, exposureFactor, whiteLevel, uniformExposure)

		idx = 0
		for _, y0 := range grid.OriginsY {
			for _, x0 := range grid.OriginsX {
				motionNorm := mismatch[idx] * highlights[idx]
				noiseNorm := rms[idx] * rms[idx]
				if mismatch[idx] > tileMismatch[idx] {
					tileMismatch[idx] = mismatch[idx]
				}

				// A single subpixel shift per tile (estimated from channel 0)
				// applies to every channel, since all channels of one CFA
				// super-pixel move together physically.
				ch0Samples := applyWindow2D(extractChannelTile(aligned, x0, y0, cfaWidth, 0, tileSize), win, tileSize)
				ch0Spec, err := forward2D(ch0Samples, tileSize)
				if err != nil {
					return nil, herrors.New(herrors.Internal, "frequency.MergeBurst", err)
				}
				dx, dy := subpixelShift(refSpecCh0[idx], ch0Spec, tileSize)

				shiftedByCh := make([][]fft.Complex, nch)
				for ch := 0; ch < nch; ch++ {
					samples := applyWindow2D(extractChannelTile(aligned, x0, y0, cfaWidth, ch, tileSize), win, tileSize)
					spec, err := forward2D(samples, tileSize)
					if err != nil {
						return nil, herrors.New(herrors.Internal, "frequency.MergeBurst", err)
					}
					shiftedByCh[ch] = shiftSpectrum(spec, tileSize, dx, dy)
				}

				chW := make([]float32, nch)
				for k := 0; k < tileSize*tileSize; k++ {
					for ch := 0; ch < nch; ch++ {
						refBin := tiles[idx].ref[ch][k]
						diff := shiftedByCh[ch][k].Sub(refBin)
						w := binWeight(noiseNorm, motionNorm, refBin, diff)
						chW[ch] = w
					}
					sw := scalarWeight(chW)
					scalarWeightSum[idx*tileSize*tileSize+k] += sw
					for ch := 0; ch < nch; ch++ {
						w := chW[ch]
						tiles[idx].merged[ch][k] = tiles[idx].merged[ch][k].Add(shiftedByCh[ch][k].Scale(w))
						tiles[idx].weightSum[ch][k] += w
					}
				}
				idx++
			}
		}
	}
	for range cmpPrepared {
		if err := m.accumulate(); err != nil {
			return nil, herrors.New(herrors.Internal, "frequency.MergeBurst", err)
		}
	}

	if err := m.deconvolve(); err != nil {
		return nil, herrors.New(herrors.Internal, "frequency.MergeBurst", err)
	}
	nFrames := float32(len(cmpPrepared))
	idx = 0
	for range grid.OriginsY {
		for range grid.OriginsX {
			for ch := 0; ch < nch; ch++ {
				for k := range tiles[idx].merged[ch] {
					ws := tiles[idx].weightSum[ch][k]
					if ws > 0 {
						tiles[idx].merged[ch][k] = tiles[idx].merged[ch][k].Scale(1 / ws)
					}
				}
			}
			var avgW float32
			if nFrames > 0 {
				total := float32(0)
				for _, v := range scalarWeightSum[idx*tileSize*tileSize : (idx+1)*tileSize*tileSize] {
					total += v
				}
				avgW = total / (nFrames * float32(tileSize*tileSize))
			}
			for ch := 0; ch < nch; ch++ {
				applyDeconv(tiles[idx].merged[ch], tileSize, avgW, tileMismatch[idx])
			}
			idx++
		}
	}

	if err := m.invert(); err != nil {
		return nil, herrors.New(herrors.Internal, "frequency.MergeBurst", err)
	}
	outSum, err := ctx.AllocTexture(refPrepared.Width, refPrepared.Height, gpu.StorageFloatR, "frequency.merged")
	if err != nil {
		return nil, err
	}
	outWeight, err := ctx.AllocTexture(refPrepared.Width, refPrepared.Height, gpu.StorageFloatR, "frequency.weight")
	if err != nil {
		return nil, err
	}
	idx = 0
	for _, y0 := range grid.OriginsY {
		for _, x0 := range grid.OriginsX {
			for ch := 0; ch < nch; ch++ {
				samples, err := inverse2D(tiles[idx].merged[ch], tileSize)
				if err != nil {
					return nil, herrors.New(herrors.Internal, "frequency.MergeBurst", err)
				}
				windowedOut := applyWindow2D(samples, win, tileSize)
				insertChannelTile(outSum, x0, y0, cfaWidth, ch, tileSize, windowedOut)
				insertWindowWeight(outWeight, x0, y0, cfaWidth, ch, tileSize, win)
			}
			idx++
		}
	}
	for i := range outSum.Data {
		if outWeight.Data[i] > 0 {
			outSum.Data[i] /= outWeight.Data[i]
		}
	}

	if err := m.cleanBorders(); err != nil {
		return nil, herrors.New(herrors.Internal, "frequency.MergeBurst", err)
	}
	cleanBorders(outSum, refPrepared, 1)

	if err := m.emit(); err != nil {
		return nil, herrors.New(herrors.Internal, "frequency.MergeBurst", err)
	}
	return outSum, nil
}

func applyWindow2D(samples []float32, win1D []float32, T int) []float32 {
	out := make([]float32, len(samples))
	for y := 0; y < T; y++ {
		for x := 0; x < T; x++ {
			out[y*T+x] = samples[y*T+x] * windowSeparable(win1D, x, y)
		}
	}
	return out
}

// insertWindowWeight accumulates the squared window (the normalization
// weight an overlap-add reconstruction needs) into the same channel cells
// insertChannelTile writes samples into.
func insertWindowWeight(tex *gpu.Texture, x0, y0, cfaWidth, ch, T int, win1D []float32) {
	w2 := make([]float32, T*T)
	for y := 0; y < T; y++ {
		for x := 0; x < T; x++ {
			w := windowSeparable(win1D, x, y)
			w2[y*T+x] = w * w
		}
	}
	insertChannelTile(tex, x0, y0, cfaWidth, ch, T, w2)
}

// cleanBorders clips negative samples to zero (spec.md §4.6 step 9) and
// blends the outermost pixel ring 50/50 with the reference frame, since
// tiles never reach all the way to a padded frame's true edge.
func cleanBorders(out, ref *gpu.Texture, border int) {
	for i, v := range out.Data {
		if v < 0 {
			out.Data[i] = 0
		}
	}
	if border > out.Width/2 {
		border = out.Width / 2
	}
	if border > out.Height/2 {
		border = out.Height / 2
	}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			if x >= border && x < out.Width-border && y >= border && y < out.Height-border {
				continue
			}
			v := out.At(x, y)
			r := ref.At(x, y)
			out.Set(x, y, 0.5*v+0.5*r)
		}
	}
}
