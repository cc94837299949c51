package frequency

import "github.com/gogpu/hdrplus/merge/frequency/fft"

// subpixelSteps is the per-axis resolution of the sub-integer shift search:
// 7 samples spanning [-0.5, +0.5] (spec.md §4.6 step 6a).
const subpixelSteps = 7

// subpixelShift finds the fractional (dx, dy) in [-0.5, 0.5] that minimizes
// the summed squared magnitude of the residual between ref and cmp's
// spectrum shifted by (dx, dy), searched on a subpixelSteps x subpixelSteps
// grid via the Fourier shift theorem (shiftSpectrum).
func subpixelShift(ref, cmp []fft.Complex, T int) (float64, float64) {
	bestDx, bestDy := 0.0, 0.0
	bestCost := residualEnergy(ref, cmp, T, 0, 0)

	step := 1.0 / float64(subpixelSteps-1)
	for i := 0; i < subpixelSteps; i++ {
		dy := -0.5 + float64(i)*step
		for j := 0; j < subpixelSteps; j++ {
			dx := -0.5 + float64(j)*step
			cost := residualEnergy(ref, cmp, T, dx, dy)
			if cost < bestCost {
				bestCost = cost
				bestDx, bestDy = dx, dy
			}
		}
	}
	return bestDx, bestDy
}

func residualEnergy(ref, cmp []fft.Complex, T int, dx, dy float64) float64 {
	shifted := shiftSpectrum(cmp, T, dx, dy)
	var sum float64
	for k := range ref {
		d := shifted[k].Sub(ref[k])
		sum += float64(d.Abs2())
	}
	return sum
}
