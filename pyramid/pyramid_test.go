package pyramid

import (
	"math"
	"testing"

	"github.com/gogpu/hdrplus/gpu"
)

func TestBuildCollapsesConstantFieldToConstant(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	tex, err := ctx.AllocTexture(32, 32, gpu.StorageFloatR, "prepared")
	if err != nil {
		t.Fatal(err)
	}
	for i := range tex.Data {
		tex.Data[i] = 1000
	}

	p, err := Build(ctx, tex, 2, [3]float32{1, 1, 1}, 0, Factors(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(p.Levels))
	}
	for li, lvl := range p.Levels {
		for _, v := range lvl.Data {
			if math.Abs(float64(v-1000)) > 1e-2 {
				t.Fatalf("level %d: expected constant 1000, got %v", li, v)
			}
		}
	}
	if p.Levels[0].Width != 16 || p.Levels[1].Width != 8 || p.Levels[2].Width != 4 {
		t.Fatalf("unexpected level widths: %d %d %d", p.Levels[0].Width, p.Levels[1].Width, p.Levels[2].Width)
	}
}

func TestLevelCountStopsAtSearchDistance(t *testing.T) {
	l := LevelCount(256, 256, 2, 2)
	if l < 2 {
		t.Fatalf("expected at least 2 levels for a 256x256 frame, got %d", l)
	}
}

func TestBuildRejectsMismatchedFirstFactor(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	tex, _ := ctx.AllocTexture(8, 8, gpu.StorageFloatR, "t")
	if _, err := Build(ctx, tex, 2, [3]float32{1, 1, 1}, 0, []int{6, 2}); err == nil {
		t.Fatal("expected error for mismatched first factor")
	}
}
