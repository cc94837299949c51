package frequency

import (
	"testing"

	"github.com/gogpu/hdrplus/gpu"
)

func constTexture(t *testing.T, w, h int, v float32) *gpu.Texture {
	t.Helper()
	ctx := gpu.NewContext(nil, nil)
	tex, err := ctx.AllocTexture(w, h, gpu.StorageFloatR, "const")
	if err != nil {
		t.Fatalf("AllocTexture: %v", err)
	}
	for i := range tex.Data {
		tex.Data[i] = v
	}
	return tex
}

func TestHighlightsNormUniformExposureIsAlwaysOne(t *testing.T) {
	tex := constTexture(t, 16, 16, 20000)
	g := NewGrid(16, 16, 4, 2)
	out := highlightsNormTexture(tex, g, 2, 1.0, 16383, true)
	for i, v := range out {
		if v != 1 {
			t.Fatalf("tile %d = %v, want 1 for uniform exposure", i, v)
		}
	}
}

func TestHighlightsNormClippedTileIsLowered(t *testing.T) {
	tex := constTexture(t, 16, 16, 20000) // above whiteLevel*0.5
	g := NewGrid(16, 16, 4, 2)
	out := highlightsNormTexture(tex, g, 2, 1.0, 16383, false)
	for i, v := range out {
		if v > 0.1 {
			t.Fatalf("tile %d = %v, want <= 0.1 for fully clipped tile", i, v)
		}
	}
}

func TestHighlightsNormUnclippedTileIsOne(t *testing.T) {
	tex := constTexture(t, 16, 16, 100) // well below whiteLevel*0.5
	g := NewGrid(16, 16, 4, 2)
	out := highlightsNormTexture(tex, g, 2, 1.0, 16383, false)
	for i, v := range out {
		if v != 1 {
			t.Fatalf("tile %d = %v, want 1 for unclipped tile", i, v)
		}
	}
}

func TestMismatchTextureZeroDiffIsZero(t *testing.T) {
	absDiff := constTexture(t, 32, 32, 0)
	g := NewGrid(32, 32, 8, 2)
	out := mismatchTexture(absDiff, g, 10, 1.0)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("tile %d = %v, want 0 for zero abs-diff", i, v)
		}
	}
}

func TestRmsTextureConstantPlane(t *testing.T) {
	tex := constTexture(t, 32, 32, 5)
	g := NewGrid(32, 32, 8, 2)
	out := rmsTexture(tex, g, 2)
	for i, v := range out {
		if v != 5 {
			t.Fatalf("tile %d rms = %v, want 5", i, v)
		}
	}
}
