// Package texture implements the texture primitives of the align-and-merge
// core (spec.md §4.2): pad/crop, binomial blur, bilinear/bicubic upsample,
// hot-pixel correction, exposure equalization, weighted add, and the
// mosaic-aware mean/max reductions the aligner and merger build on.
//
// All intermediate math is IEEE-754 float32, matching spec.md §4.2's
// numeric-semantics contract; clamping happens only where the spec calls
// for it.
package texture

import (
	"fmt"
	"math"

	"github.com/gogpu/hdrplus/gpu"
	"github.com/gogpu/hdrplus/herrors"
)

// UpsampleMode selects the resampling kernel for Upsample.
type UpsampleMode int

const (
	// Bilinear upsampling.
	Bilinear UpsampleMode = iota
	// Bicubic upsampling.
	Bicubic
)

// Pad returns a texture enlarged by px0/px1 columns and py0/py1 rows, with
// zero fill in the new border. Negative pad amounts are a caller error.
func Pad(ctx *gpu.Context, tex *gpu.Texture, px0, px1, py0, py1 int) (*gpu.Texture, error) {
	if px0 < 0 || px1 < 0 || py0 < 0 || py1 < 0 {
		return nil, herrors.New(herrors.InvalidArgument, "texture.Pad", fmt.Errorf("negative pad"))
	}
	w := tex.Width + px0 + px1
	h := tex.Height + py0 + py1
	out, err := ctx.AllocTexture(w, h, tex.Class, tex.Label+".pad")
	if err != nil {
		return nil, err
	}
	ch := tex.Class.Channels()
	for y := 0; y < tex.Height; y++ {
		for x := 0; x < tex.Width; x++ {
			for c := 0; c < ch; c++ {
				out.SetC(x+px0, y+py0, c, tex.AtC(x, y, c))
			}
		}
	}
	return out, nil
}

// Crop is the inverse of Pad: it returns the w×h window starting at (x0,y0).
func Crop(ctx *gpu.Context, tex *gpu.Texture, x0, y0, w, h int) (*gpu.Texture, error) {
	if w <= 0 || h <= 0 || x0 < 0 || y0 < 0 || x0+w > tex.Width || y0+h > tex.Height {
		return nil, herrors.New(herrors.InvalidArgument, "texture.Crop", fmt.Errorf("window out of bounds"))
	}
	out, err := ctx.AllocTexture(w, h, tex.Class, tex.Label+".crop")
	if err != nil {
		return nil, err
	}
	ch := tex.Class.Channels()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for c := 0; c < ch; c++ {
				out.SetC(x, y, c, tex.AtC(x0+x, y0+y, c))
			}
		}
	}
	return out, nil
}

// binomialKernel1D returns the 1-D binomial (Pascal's triangle row)
// coefficients of the given support, normalized to sum to 1.
func binomialKernel1D(support int) []float32 {
	n := support
	row := make([]float64, n+1)
	row[0] = 1
	for i := 1; i <= n; i++ {
		for j := i; j > 0; j-- {
			row[j] += row[j-1]
		}
	}
	var sum float64
	for _, v := range row {
		sum += v
	}
	out := make([]float32, len(row))
	for i, v := range row {
		out[i] = float32(v / sum)
	}
	return out
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = i % period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// BinomialBlur applies a separable binomial filter of the given support to
// tex, per CFA cell: each of the cfaWidth×cfaWidth channels is filtered
// independently so R, G, G', B (or the X-Trans cells) never mix, matching
// spec.md §4.2. Edges use reflect boundary handling.
func BinomialBlur(ctx *gpu.Context, tex *gpu.Texture, cfaWidth, support int) (*gpu.Texture, error) {
	if cfaWidth <= 0 || support <= 0 {
		return nil, herrors.New(herrors.InvalidArgument, "texture.BinomialBlur", fmt.Errorf("cfaWidth=%d support=%d", cfaWidth, support))
	}
	kernel := binomialKernel1D(support)
	radius := support / 2

	horiz, err := ctx.AllocTexture(tex.Width, tex.Height, tex.Class, tex.Label+".blurH")
	if err != nil {
		return nil, err
	}
	ch := tex.Class.Channels()
	cellW := cfaWidth
	for y := 0; y < tex.Height; y++ {
		for x := 0; x < tex.Width; x++ {
			for c := 0; c < ch; c++ {
				var acc float32
				for k := -radius; k <= radius; k++ {
					// Only sample columns that share this pixel's CFA phase
					// so distinct color cells never blend.
					sx := x + k*cellW
					sx = reflectIndex(sx, tex.Width)
					acc += kernel[k+radius] * tex.AtC(sx, y, c)
				}
				horiz.SetC(x, y, c, acc)
			}
		}
	}

	out, err := ctx.AllocTexture(tex.Width, tex.Height, tex.Class, tex.Label+".blur")
	if err != nil {
		return nil, err
	}
	for y := 0; y < tex.Height; y++ {
		for x := 0; x < tex.Width; x++ {
			for c := 0; c < ch; c++ {
				var acc float32
				for k := -radius; k <= radius; k++ {
					sy := y + k*cellW
					sy = reflectIndex(sy, tex.Height)
					acc += kernel[k+radius] * horiz.AtC(x, sy, c)
				}
				out.SetC(x, y, c, acc)
			}
		}
	}
	return out, nil
}

// Upsample resizes tex to w×h using bilinear or bicubic resampling.
func Upsample(ctx *gpu.Context, tex *gpu.Texture, w, h int, mode UpsampleMode) (*gpu.Texture, error) {
	if w <= 0 || h <= 0 {
		return nil, herrors.New(herrors.InvalidArgument, "texture.Upsample", fmt.Errorf("invalid size %dx%d", w, h))
	}
	out, err := ctx.AllocTexture(w, h, tex.Class, tex.Label+".up")
	if err != nil {
		return nil, err
	}
	ch := tex.Class.Channels()
	sx := float64(tex.Width) / float64(w)
	sy := float64(tex.Height) / float64(h)

	for y := 0; y < h; y++ {
		srcY := (float64(y)+0.5)*sy - 0.5
		for x := 0; x < w; x++ {
			srcX := (float64(x)+0.5)*sx - 0.5
			for c := 0; c < ch; c++ {
				var v float32
				if mode == Bicubic {
					v = sampleBicubic(tex, srcX, srcY, c)
				} else {
					v = sampleBilinear(tex, srcX, srcY, c)
				}
				out.SetC(x, y, c, v)
			}
		}
	}
	return out, nil
}

func sampleBilinear(tex *gpu.Texture, x, y float64, c int) float32 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := float32(x - float64(x0))
	fy := float32(y - float64(y0))

	c00 := texAtCClamped(tex, x0, y0, c)
	c10 := texAtCClamped(tex, x0+1, y0, c)
	c01 := texAtCClamped(tex, x0, y0+1, c)
	c11 := texAtCClamped(tex, x0+1, y0+1, c)

	top := c00*(1-fx) + c10*fx
	bot := c01*(1-fx) + c11*fx
	return top*(1-fy) + bot*fy
}

func cubicWeight(t float32) float32 {
	// Catmull-Rom cubic convolution, a = -0.5.
	const a = -0.5
	at := float32(math.Abs(float64(t)))
	switch {
	case at <= 1:
		return (a+2)*at*at*at - (a+3)*at*at + 1
	case at < 2:
		return a*at*at*at - 5*a*at*at + 8*a*at - 4*a
	default:
		return 0
	}
}

func sampleBicubic(tex *gpu.Texture, x, y float64, c int) float32 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := float32(x - float64(x0))
	fy := float32(y - float64(y0))

	var acc float32
	for j := -1; j <= 2; j++ {
		wy := cubicWeight(float32(j) - fy)
		var rowAcc float32
		for i := -1; i <= 2; i++ {
			wx := cubicWeight(float32(i) - fx)
			rowAcc += wx * texAtCClamped(tex, x0+i, y0+j, c)
		}
		acc += wy * rowAcc
	}
	return acc
}

func texAtCClamped(tex *gpu.Texture, x, y, c int) float32 {
	if x < 0 {
		x = 0
	}
	if x >= tex.Width {
		x = tex.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= tex.Height {
		y = tex.Height - 1
	}
	return tex.AtC(x, y, c)
}

// HotPixelCorrect replaces outlier samples using their same-phase CFA
// neighbors, weighted by weightMap (same shape as tex; zero means "not a hot
// pixel"). With an all-zero weightMap the operation is idempotent, per
// spec.md §4.2.
func HotPixelCorrect(ctx *gpu.Context, tex *gpu.Texture, weightMap *gpu.Texture, cfaWidth int) (*gpu.Texture, error) {
	if weightMap != nil && (weightMap.Width != tex.Width || weightMap.Height != tex.Height) {
		return nil, herrors.New(herrors.InvalidArgument, "texture.HotPixelCorrect", fmt.Errorf("weight map shape mismatch"))
	}
	out := tex.Clone()
	if weightMap == nil {
		return out, nil
	}
	for y := 0; y < tex.Height; y++ {
		for x := 0; x < tex.Width; x++ {
			w := weightMap.At(x, y)
			if w == 0 {
				continue
			}
			// Average same-phase neighbors (±cfaWidth in each direction).
			var sum float32
			var n float32
			offsets := [4][2]int{{-cfaWidth, 0}, {cfaWidth, 0}, {0, -cfaWidth}, {0, cfaWidth}}
			for _, o := range offsets {
				nx, ny := x+o[0], y+o[1]
				if nx < 0 || ny < 0 || nx >= tex.Width || ny >= tex.Height {
					continue
				}
				sum += tex.At(nx, ny)
				n++
			}
			if n == 0 {
				continue
			}
			repl := sum / n
			v := tex.At(x, y)
			out.Set(x, y, v*(1-w)+repl*w)
		}
	}
	return out, nil
}

// PrepareFrame applies hot-pixel correction, black-level subtraction,
// exposure equalization (multiply by 2^deltaEV), and symmetric zero-padding
// to the next multiple of the tile factor. cfaWidth and blackLevel (length
// cfaWidth*cfaWidth) describe the per-cell black level; deltaEV is
// (ref_bias - this_bias)/100 already divided down to EV stops.
func PrepareFrame(ctx *gpu.Context, raw *gpu.Texture, hpWeights *gpu.Texture, tileFactor int, deltaEV float64, blackLevel []float32, cfaWidth int) (*gpu.Texture, error) {
	if len(blackLevel) != cfaWidth*cfaWidth {
		return nil, herrors.New(herrors.InvalidArgument, "texture.PrepareFrame",
			fmt.Errorf("black level length %d != %d", len(blackLevel), cfaWidth*cfaWidth))
	}
	if tileFactor <= 0 {
		return nil, herrors.New(herrors.InvalidArgument, "texture.PrepareFrame", fmt.Errorf("invalid tile factor %d", tileFactor))
	}

	corrected, err := HotPixelCorrect(ctx, raw, hpWeights, cfaWidth)
	if err != nil {
		return nil, err
	}

	gain := float32(math.Exp2(deltaEV))
	leveled, err := ctx.AllocTexture(corrected.Width, corrected.Height, corrected.Class, corrected.Label+".leveled")
	if err != nil {
		return nil, err
	}
	for y := 0; y < corrected.Height; y++ {
		for x := 0; x < corrected.Width; x++ {
			cellIdx := (y%cfaWidth)*cfaWidth + (x % cfaWidth)
			v := corrected.At(x, y) - blackLevel[cellIdx]
			leveled.Set(x, y, v*gain)
		}
	}

	padW := nextMultiple(leveled.Width, tileFactor) - leveled.Width
	padH := nextMultiple(leveled.Height, tileFactor) - leveled.Height
	px0 := padW / 2
	px1 := padW - px0
	py0 := padH / 2
	py1 := padH - py0

	return Pad(ctx, leveled, px0, px1, py0, py1)
}

func nextMultiple(v, m int) int {
	if v%m == 0 {
		return v
	}
	return (v/m + 1) * m
}

// WeightedAdd computes a*(1-w) + b*w per pixel, where w is a one-channel
// texture sampled bilinearly if it's coarser than a and b.
func WeightedAdd(ctx *gpu.Context, a, b, w *gpu.Texture) (*gpu.Texture, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, herrors.New(herrors.InvalidArgument, "texture.WeightedAdd", fmt.Errorf("a/b shape mismatch"))
	}
	out, err := ctx.AllocTexture(a.Width, a.Height, a.Class, a.Label+".wadd")
	if err != nil {
		return nil, err
	}
	ch := a.Class.Channels()
	sameRes := w.Width == a.Width && w.Height == a.Height
	sx := float64(w.Width) / float64(a.Width)
	sy := float64(w.Height) / float64(a.Height)
	for y := 0; y < a.Height; y++ {
		for x := 0; x < a.Width; x++ {
			var wv float32
			if sameRes {
				wv = w.At(x, y)
			} else {
				wv = sampleBilinear(w, (float64(x)+0.5)*sx-0.5, (float64(y)+0.5)*sy-0.5, 0)
			}
			for c := 0; c < ch; c++ {
				av := a.AtC(x, y, c)
				bv := b.AtC(x, y, c)
				out.SetC(x, y, c, av*(1-wv)+bv*wv)
			}
		}
	}
	return out, nil
}

// Mean computes a buffer of per-super-pixel means over tex in two passes:
// one summing pass over every sample, then one normalizing pass. If perSubPixel is true the
// output has one value per CFA cell (cfaWidth*cfaWidth values per
// super-pixel block); otherwise one value per super-pixel.
func Mean(ctx *gpu.Context, tex *gpu.Texture, cfaWidth int, perSubPixel bool) (*gpu.Buffer, int, int, error) {
	if cfaWidth <= 0 {
		return nil, 0, 0, herrors.New(herrors.InvalidArgument, "texture.Mean", fmt.Errorf("invalid cfaWidth %d", cfaWidth))
	}
	blocksX := tex.Width / cfaWidth
	blocksY := tex.Height / cfaWidth

	perCell := 1
	if perSubPixel {
		perCell = cfaWidth * cfaWidth
	}
	out, err := ctx.AllocBuffer(blocksX * blocksY * perCell)
	if err != nil {
		return nil, 0, 0, err
	}

	// Summing pass: accumulate every sample of each block into its slot.
	colSums := make([]float32, blocksX*blocksY*perCell)
	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			for cy := 0; cy < cfaWidth; cy++ {
				for cx := 0; cx < cfaWidth; cx++ {
					v := tex.At(bx*cfaWidth+cx, by*cfaWidth+cy)
					idx := meanIndex(bx, by, blocksX, cx, cy, cfaWidth, perSubPixel)
					colSums[idx] += v
				}
			}
		}
	}
	// Normalizing pass.
	n := float32(cfaWidth * cfaWidth)
	if perSubPixel {
		n = 1
	}
	for i, v := range colSums {
		out.Data[i] = v / n
	}
	return out, blocksX, blocksY, nil
}

func meanIndex(bx, by, blocksX, cx, cy, cfaWidth int, perSubPixel bool) int {
	block := by*blocksX + bx
	if !perSubPixel {
		return block
	}
	return block*cfaWidth*cfaWidth + cy*cfaWidth + cx
}

// Max computes the single scalar maximum over tex, two-pass (max along y
// then max along x). Per spec.md §4.2 the row-max pass must guarantee a
// single effective writer to the output scalar; Max performs that reduction
// sequentially on the host so there is exactly one writer by construction
// (the GPU kernel this models uses a single-thread dispatch for the same
// reason — see gpu.DispatchSize and herrors.Internal guard below).
func Max(ctx *gpu.Context, tex *gpu.Texture) (float32, error) {
	if tex.Width == 0 || tex.Height == 0 {
		return 0, herrors.New(herrors.Internal, "texture.Max", fmt.Errorf("empty texture"))
	}
	colMax := make([]float32, tex.Width)
	for x := 0; x < tex.Width; x++ {
		m := tex.At(x, 0)
		for y := 1; y < tex.Height; y++ {
			if v := tex.At(x, y); v > m {
				m = v
			}
		}
		colMax[x] = m
	}
	m := colMax[0]
	for _, v := range colMax[1:] {
		if v > m {
			m = v
		}
	}
	return m, nil
}

// ColorDifference computes the sum of per-channel |a-b| per CFA super-pixel,
// returned as a buffer with one value per super-pixel block.
func ColorDifference(ctx *gpu.Context, a, b *gpu.Texture, cfaWidth int) (*gpu.Buffer, int, int, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, 0, 0, herrors.New(herrors.InvalidArgument, "texture.ColorDifference", fmt.Errorf("shape mismatch"))
	}
	blocksX := a.Width / cfaWidth
	blocksY := a.Height / cfaWidth
	out, err := ctx.AllocBuffer(blocksX * blocksY)
	if err != nil {
		return nil, 0, 0, err
	}
	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			var sum float32
			for cy := 0; cy < cfaWidth; cy++ {
				for cx := 0; cx < cfaWidth; cx++ {
					x, y := bx*cfaWidth+cx, by*cfaWidth+cy
					d := a.At(x, y) - b.At(x, y)
					if d < 0 {
						d = -d
					}
					sum += d
				}
			}
			out.Data[by*blocksX+bx] = sum
		}
	}
	return out, blocksX, blocksY, nil
}
