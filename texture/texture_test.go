package texture

import (
	"math"
	"testing"

	"github.com/gogpu/hdrplus/gpu"
)

func newFilled(t *testing.T, ctx *gpu.Context, w, h int, fill func(x, y int) float32) *gpu.Texture {
	t.Helper()
	tex, err := ctx.AllocTexture(w, h, gpu.StorageFloatR, "test")
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tex.Set(x, y, fill(x, y))
		}
	}
	return tex
}

func TestPadCropRoundTrip(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	src := newFilled(t, ctx, 4, 4, func(x, y int) float32 { return float32(x + y*4) })

	padded, err := Pad(ctx, src, 2, 3, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if padded.Width != 9 || padded.Height != 6 {
		t.Fatalf("unexpected padded size %dx%d", padded.Width, padded.Height)
	}
	if v := padded.At(0, 0); v != 0 {
		t.Fatalf("expected zero fill in pad region, got %v", v)
	}

	cropped, err := Crop(ctx, padded, 2, 1, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got, want := cropped.At(x, y), src.At(x, y); got != want {
				t.Fatalf("crop(pad(x)) mismatch at (%d,%d): got %v want %v", x, y, got, want)
			}
		}
	}
}

func TestBinomialBlurConstantIsIdempotent(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	src := newFilled(t, ctx, 8, 8, func(x, y int) float32 { return 42 })

	blurred, err := BinomialBlur(ctx, src, 2, 16)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got := blurred.At(x, y); math.Abs(float64(got-42)) > 1e-3 {
				t.Fatalf("blur of constant field changed value at (%d,%d): %v", x, y, got)
			}
		}
	}
}

func TestUpsampleBilinearPreservesConstant(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	src := newFilled(t, ctx, 4, 4, func(x, y int) float32 { return 7 })

	up, err := Upsample(ctx, src, 8, 8, Bilinear)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if got := up.At(x, y); math.Abs(float64(got-7)) > 1e-4 {
				t.Fatalf("upsample of constant field changed value at (%d,%d): %v", x, y, got)
			}
		}
	}
}

func TestHotPixelCorrectIdempotentWithZeroWeights(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	src := newFilled(t, ctx, 4, 4, func(x, y int) float32 { return float32(x*10 + y) })
	weights, _ := ctx.AllocTexture(4, 4, gpu.StorageFloatR, "w")

	out, err := HotPixelCorrect(ctx, src, weights, 2)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if got, want := out.At(x, y), src.At(x, y); got != want {
				t.Fatalf("expected idempotence at (%d,%d): got %v want %v", x, y, got, want)
			}
		}
	}
}

func TestPrepareFramePadsToTileMultiple(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	src := newFilled(t, ctx, 10, 10, func(x, y int) float32 { return 1000 })
	black := []float32{64, 64, 64, 64}

	out, err := PrepareFrame(ctx, src, nil, 16, 0, black, 2)
	if err != nil {
		t.Fatal(err)
	}
	if out.Width%16 != 0 || out.Height%16 != 0 {
		t.Fatalf("expected dimensions multiple of tile factor, got %dx%d", out.Width, out.Height)
	}
}

func TestMaxSingleWriterSemantics(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	src := newFilled(t, ctx, 5, 5, func(x, y int) float32 { return float32(x + y) })
	src.Set(3, 3, 999)

	m, err := Max(ctx, src)
	if err != nil {
		t.Fatal(err)
	}
	if m != 999 {
		t.Fatalf("Max = %v, want 999", m)
	}
}

func TestColorDifferenceZeroForIdenticalFrames(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	a := newFilled(t, ctx, 4, 4, func(x, y int) float32 { return float32(x + y) })
	b := a.Clone()

	buf, bx, by, err := ColorDifference(ctx, a, b, 2)
	if err != nil {
		t.Fatal(err)
	}
	if bx != 2 || by != 2 {
		t.Fatalf("unexpected block grid %dx%d", bx, by)
	}
	for _, v := range buf.Data {
		if v != 0 {
			t.Fatalf("expected zero difference for identical frames, got %v", v)
		}
	}
}
