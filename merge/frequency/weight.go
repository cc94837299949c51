package frequency

import "github.com/gogpu/hdrplus/merge/frequency/fft"

// binWeight computes one channel's merge weight at one frequency bin
// (spec.md §4.6 step 6b); MergeBurst calls it once per channel. Inputs:
//
//	noiseNorm     = per-tile reference shot-noise estimate, squared
//	motionNorm    = per-tile mismatch-texture value times highlights-norm
//	magnitudeNorm = reference bin's own energy (guards the residual against
//	                blowing up on near-zero signal)
//	d2            = squared magnitude of the shifted-comparison/reference
//	                residual at this bin
//
// The weight is a Wiener-style shrinkage gain: it is driven to 1 when the
// residual is small relative to the expected noise+motion floor (the frame
// agrees with the reference, so merge it in) and to 0 when the residual is
// large (real motion or misalignment, so reject it).
func binWeight(noiseNorm, motionNorm float32, ref, diff fft.Complex) float32 {
	magnitudeNorm := ref.Abs2() + 1e-6
	d2 := diff.Abs2()
	floor := noiseNorm * motionNorm
	if floor <= 0 {
		floor = 1e-6
	}
	w := floor / (floor + d2/magnitudeNorm)
	return clamp32(w, 0, 1)
}

// scalarWeight reduces a tile's per-channel weights (3 for Bayer, 4 for
// X-Trans) to a single robust scalar by dropping the minimum and maximum and
// averaging whatever remains (spec.md §4.6 step 6c) — resistant to a single
// channel's outlier weight dominating the tile's deconvolution strength. At
// 3 channels this leaves exactly the median; at 4 it leaves the mean of the
// two middle values.
func scalarWeight(w []float32) float32 {
	sorted := append([]float32(nil), w...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	mid := sorted[1 : len(sorted)-1]
	var sum float32
	for _, v := range mid {
		sum += v
	}
	return sum / float32(len(mid))
}
