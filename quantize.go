package hdrplus

import (
	"math"

	"github.com/gogpu/hdrplus/gpu"
)

// quantize applies the output_bit_depth rule in place (spec.md §6): Native
// leaves the float32 plane untouched; Output16Bit rounds every sample to
// the nearest integer and clamps it to [0, 65535], or to [0, whiteLevel]
// when whiteLevel is positive and below 65535.
func quantize(tex *gpu.Texture, depth OutputBitDepth, whiteLevel float32) {
	if depth != Output16Bit {
		return
	}
	hi := float32(65535)
	if whiteLevel > 0 && whiteLevel < hi {
		hi = whiteLevel
	}
	for i, v := range tex.Data {
		r := float32(math.Round(float64(v)))
		if r < 0 {
			r = 0
		}
		if r > hi {
			r = hi
		}
		tex.Data[i] = r
	}
}
