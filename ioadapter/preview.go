package ioadapter

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/hdrplus"
)

// Preview renders every sample of a MergedRaw's plane, whatever its CFA
// color, as a downscaled grayscale image.Image, for caller-side quick-look
// thumbnails. It is not on Process's hot path; it exists for callers and
// tests that want a cheap visual sanity check without a full demosaic.
func Preview(m hdrplus.MergedRaw, maxDim int) image.Image {
	src := image.NewGray16(image.Rect(0, 0, m.Width, m.Height))
	hi := m.Meta.WhiteLevel
	if hi <= 0 {
		hi = 16383
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := m.Pixels[y*m.Width+x]
			g := clampUint16(v / hi * 65535)
			src.SetGray16(x, y, color.Gray16{Y: g})
		}
	}
	if m.Width <= maxDim && m.Height <= maxDim {
		return src
	}
	scale := float64(maxDim) / float64(max(m.Width, m.Height))
	dw, dh := int(float64(m.Width)*scale), int(float64(m.Height)*scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewGray16(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
