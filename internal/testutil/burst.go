// Package testutil builds synthetic bursts for package tests across the
// align-and-merge core, the way the teacher's CPU-only software backend
// lets tests run without a real device (gpu.NewContext(nil, ...)).
package testutil

import "github.com/gogpu/hdrplus"

// FlatBurst returns a burst of n identical, noise-free frames of a flat
// value v, CFA width cfaWidth, useful for identity/near-identity merge
// assertions (S1, S4 in spec.md §8).
func FlatBurst(n, width, height, cfaWidth int, v float32) hdrplus.Burst {
	frames := make([]hdrplus.Frame, n)
	metas := make([]hdrplus.FrameMeta, n)
	bl := make([]float32, cfaWidth*cfaWidth)
	for i := 0; i < n; i++ {
		pixels := make([]float32, width*height)
		for j := range pixels {
			pixels[j] = v
		}
		frames[i] = hdrplus.Frame{Width: width, Height: height, CFAWidth: cfaWidth, Pixels: pixels}
		metas[i] = hdrplus.FrameMeta{
			WhiteLevel:   16383,
			BlackLevel:   append([]float32(nil), bl...),
			ColorFactors: [3]float32{1, 1, 1},
		}
	}
	return hdrplus.Burst{Frames: frames, Meta: metas, RefIdx: 0}
}

// RampBurst returns a burst of n identical frames whose pixel value is a
// horizontal gradient, useful for exercising alignment/merge over non-flat
// content without needing real sensor data.
func RampBurst(n, width, height, cfaWidth int) hdrplus.Burst {
	frames := make([]hdrplus.Frame, n)
	metas := make([]hdrplus.FrameMeta, n)
	bl := make([]float32, cfaWidth*cfaWidth)
	for i := 0; i < n; i++ {
		pixels := make([]float32, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				pixels[y*width+x] = float32(x) / float32(width) * 4000
			}
		}
		frames[i] = hdrplus.Frame{Width: width, Height: height, CFAWidth: cfaWidth, Pixels: pixels}
		metas[i] = hdrplus.FrameMeta{
			WhiteLevel:   16383,
			BlackLevel:   append([]float32(nil), bl...),
			ColorFactors: [3]float32{1, 1, 1},
		}
	}
	return hdrplus.Burst{Frames: frames, Meta: metas, RefIdx: 0}
}

// WithClippedHighlights sets every sample of frame idx at or above
// whiteLevel, simulating a blown-out comparison frame for the merge
// weighting edge case (S5 in spec.md §8).
func WithClippedHighlights(b hdrplus.Burst, idx int, whiteLevel float32) hdrplus.Burst {
	f := b.Frames[idx]
	pixels := append([]float32(nil), f.Pixels...)
	for i := range pixels {
		pixels[i] = whiteLevel
	}
	b.Frames[idx].Pixels = pixels
	return b
}

// NonUniformExposure staggers each frame's ExposureBias by step 1/100-EV
// units per frame index, breaking the burst's uniform-exposure invariant
// (spec.md §3).
func NonUniformExposure(b hdrplus.Burst, step int) hdrplus.Burst {
	for i := range b.Meta {
		b.Meta[i].ExposureBias = i * step
	}
	return b
}
