package frequency

import (
	"math"

	"github.com/gogpu/hdrplus/gpu"
	"github.com/gogpu/hdrplus/merge/frequency/fft"
)

// maxChannels is the largest per-CFA-cell channel count any supported CFA
// width needs (X-Trans); per-channel arrays are sized by
// numChannels(cfaWidth), which returns this value for X-Trans.
const maxChannels = 4

// numChannels returns the per-CFA-cell channel count the frequency engine
// operates on for a given CFA width. Bayer (cfaWidth 2) has 3 physically
// distinct cells (R, G, B — the two green sub-cells are the same channel).
// X-Trans (cfaWidth 6) is reduced to 4 representative channels by splitting
// green into two sub-channels by parity (spec.md §9 open question: X-Trans
// per-channel weighting is not explicit in the source, so this
// implementation keeps the green split only where the CFA actually has two
// distinguishable green sub-cell roles).
func numChannels(cfaWidth int) int {
	if cfaWidth == 2 {
		return 3
	}
	return maxChannels
}

// channelMap returns, for a given CFA width, the channel index that cell
// offset (cx, cy) belongs to: 0..2 for Bayer, 0..3 for X-Trans.
func channelMap(cfaWidth int) func(cx, cy int) int {
	if cfaWidth == 2 {
		pattern := [2][2]int{{0, 1}, {1, 2}}
		return func(cx, cy int) int { return pattern[cy][cx] }
	}
	// X-Trans: reduce the 6x6 pattern to 4 representative channels using
	// the same R/G/G/B assignment collapseCFA uses, so both packages agree
	// on what "channel" means for a super-pixel.
	pattern := [6][6]int{
		{1, 1, 0, 1, 1, 2},
		{1, 1, 2, 1, 1, 0},
		{2, 0, 1, 0, 2, 1},
		{1, 1, 2, 1, 1, 0},
		{1, 1, 0, 1, 1, 2},
		{0, 2, 1, 2, 0, 1},
	}
	return func(cx, cy int) int {
		ch := pattern[cy%6][cx%6]
		if ch == 1 {
			// Alternate the two green sub-cells across channel slots 1/3 by
			// parity, preserving a distinct "G'" channel the spec's
			// super-pixel model expects.
			if (cx+cy)%2 == 0 {
				return 1
			}
			return 3
		}
		return ch
	}
}

// extractChannelTile reads the per-channel T x T sample grid for the tile
// whose raw-pixel origin is (x0, y0), channel ch, from tex.
func extractChannelTile(tex *gpu.Texture, x0, y0, cfaWidth, ch, T int) []float32 {
	out := make([]float32, T*T)
	chOf := channelMap(cfaWidth)
	// Find, within one CFA block, the (cx,cy) offset that maps to ch.
	cx0, cy0 := 0, 0
found:
	for cy := 0; cy < cfaWidth; cy++ {
		for cx := 0; cx < cfaWidth; cx++ {
			if chOf(cx, cy) == ch {
				cx0, cy0 = cx, cy
				break found
			}
		}
	}
	for ty := 0; ty < T; ty++ {
		for tx := 0; tx < T; tx++ {
			px := x0 + tx*cfaWidth + cx0
			py := y0 + ty*cfaWidth + cy0
			out[ty*T+tx] = tex.AtZero(px, py)
		}
	}
	return out
}

// insertChannelTile writes back a T x T per-channel sample grid (already
// windowed) into an accumulator texture at the given tile origin, additively
// — multiple overlapping tiles sum into the same pixel, matching the
// raised-cosine overlap-add scheme of spec.md §4.6 step 8.
func insertChannelTile(tex *gpu.Texture, x0, y0, cfaWidth, ch, T int, samples []float32) {
	chOf := channelMap(cfaWidth)
	cx0, cy0 := 0, 0
found:
	for cy := 0; cy < cfaWidth; cy++ {
		for cx := 0; cx < cfaWidth; cx++ {
			if chOf(cx, cy) == ch {
				cx0, cy0 = cx, cy
				break found
			}
		}
	}
	for ty := 0; ty < T; ty++ {
		for tx := 0; tx < T; tx++ {
			px := x0 + tx*cfaWidth + cx0
			py := y0 + ty*cfaWidth + cy0
			if px < 0 || py < 0 || px >= tex.Width || py >= tex.Height {
				continue
			}
			tex.Set(px, py, tex.At(px, py)+samples[ty*T+tx])
		}
	}
}

// forward2D computes the 2-D forward DFT of a T x T real tile via row FFTs
// followed by column FFTs (separability), returning the full complex T x T
// spectrum.
func forward2D(samples []float32, T int) ([]fft.Complex, error) {
	rows := make([]fft.Complex, T*T)
	for y := 0; y < T; y++ {
		row := make([]fft.Complex, T)
		for x := 0; x < T; x++ {
			row[x] = fft.Complex{Re: samples[y*T+x]}
		}
		spec, err := fft.Forward(row)
		if err != nil {
			return nil, err
		}
		copy(rows[y*T:y*T+T], spec)
	}
	out := make([]fft.Complex, T*T)
	for x := 0; x < T; x++ {
		col := make([]fft.Complex, T)
		for y := 0; y < T; y++ {
			col[y] = rows[y*T+x]
		}
		spec, err := fft.Forward(col)
		if err != nil {
			return nil, err
		}
		for y := 0; y < T; y++ {
			out[y*T+x] = spec[y]
		}
	}
	return out, nil
}

// inverse2D is forward2D's inverse: column inverse-FFTs then row
// inverse-FFTs, returning the real part of each sample.
func inverse2D(spec []fft.Complex, T int) ([]float32, error) {
	cols := make([]fft.Complex, T*T)
	for x := 0; x < T; x++ {
		col := make([]fft.Complex, T)
		for y := 0; y < T; y++ {
			col[y] = spec[y*T+x]
		}
		inv, err := fft.Inverse(col)
		if err != nil {
			return nil, err
		}
		for y := 0; y < T; y++ {
			cols[y*T+x] = inv[y]
		}
	}
	out := make([]float32, T*T)
	for y := 0; y < T; y++ {
		row := make([]fft.Complex, T)
		copy(row, cols[y*T:y*T+T])
		inv, err := fft.Inverse(row)
		if err != nil {
			return nil, err
		}
		for x := 0; x < T; x++ {
			out[y*T+x] = inv[x].Re
		}
	}
	return out, nil
}

// shiftSpectrum applies the Fourier shift theorem: multiplying bin (kx,ky)
// by e^{-2*pi*i*(kx*dx/T + ky*dy/T)} shifts the spatial-domain tile by
// (dx, dy) fractional samples, used by the subpixel search (spec.md §4.6
// step 6a).
func shiftSpectrum(spec []fft.Complex, T int, dx, dy float64) []fft.Complex {
	out := make([]fft.Complex, len(spec))
	for ky := 0; ky < T; ky++ {
		for kx := 0; kx < T; kx++ {
			theta := -2 * math.Pi * (float64(kx)*dx + float64(ky)*dy) / float64(T)
			rot := fft.Complex{Re: float32(math.Cos(theta)), Im: float32(math.Sin(theta))}
			out[ky*T+kx] = spec[ky*T+kx].Mul(rot)
		}
	}
	return out
}
