package frequency

import (
	"math"

	"github.com/gogpu/hdrplus/merge/frequency/fft"
)

// deconvMismatchSkip is the per-tile global-mismatch threshold at or above
// which deconvolution sharpening is skipped entirely for that tile — a high
// mismatch means the merged estimate is unreliable and sharpening it would
// amplify noise rather than detail (spec.md §4.6 step 7).
const deconvMismatchSkip = 0.3

// deconvGainTable returns T/2+1 per-axis sharpening gains indexed by
// distance-from-DC, used separably across both tile axes. Gains decrease
// from the lowest frequencies (most reliable signal, most boost) toward
// Nyquist (least reliable, least boost) — the frequency-domain analogue of
// an unsharp-mask radius. Open question (spec.md does not give explicit
// constants for this table): values chosen as a smooth half-cosine taper
// from 4.0 at DC to 0 at Nyquist, recorded in DESIGN.md.
func deconvGainTable(T int) []float32 {
	n := T/2 + 1
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		frac := float64(i) / float64(n-1)
		out[i] = float32(4.0 * (0.5 + 0.5*math.Cos(frac*math.Pi)))
	}
	return out
}

// foldIndex maps a frequency bin index k in [0, T) to its distance from DC
// in [0, T/2], folding the upper half back onto the lower (real signals'
// spectra are symmetric about Nyquist).
func foldIndex(k, T int) int {
	if k > T/2 {
		return T - k
	}
	return k
}

// applyDeconv multiplies spec in place by the separable gain
// (1+w*cw[dm])*(1+w*cw[dn]), skipping the DC bin (dm==dn==0) and skipping
// the whole tile when tileMismatch reaches deconvMismatchSkip.
func applyDeconv(spec []fft.Complex, T int, w float32, tileMismatch float32) {
	if tileMismatch >= deconvMismatchSkip {
		return
	}
	cw := deconvGainTable(T)
	for ky := 0; ky < T; ky++ {
		dn := foldIndex(ky, T)
		for kx := 0; kx < T; kx++ {
			dm := foldIndex(kx, T)
			if dm == 0 && dn == 0 {
				continue
			}
			gain := (1 + w*cw[dm]) * (1 + w*cw[dn])
			idx := ky*T + kx
			spec[idx] = spec[idx].Scale(gain)
		}
	}
}
