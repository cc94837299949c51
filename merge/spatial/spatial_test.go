package spatial

import (
	"math"
	"testing"

	"github.com/gogpu/hdrplus/align"
	"github.com/gogpu/hdrplus/gpu"
	"github.com/gogpu/hdrplus/pyramid"
)

func TestRobustnessMonotonicallyDecreasesWithNoiseReduction(t *testing.T) {
	// spec.md §8 item 8: increasing noise_reduction must monotonically
	// decrease the robustness scalar r (raising the comparison weight).
	var prev float64 = -1
	for nr := 1; nr <= 23; nr++ {
		r := Robustness(nr)
		if prev >= 0 && r > prev {
			t.Fatalf("Robustness(%d) = %v is greater than Robustness(%d) = %v; expected monotone decrease", nr, r, nr-1, prev)
		}
		prev = r
	}
}

func constField(ctx *gpu.Context, w, h int, v float32) *gpu.Texture {
	tex, _ := ctx.AllocTexture(w, h, gpu.StorageFloatR, "t")
	for i := range tex.Data {
		tex.Data[i] = v
	}
	return tex
}

func TestMergeFrameIdentityForIdenticalFrames(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	const size = 32
	ref := constField(ctx, size, size, 4000)
	cmp := ref.Clone()

	refPyr, err := pyramid.Build(ctx, ref, 2, [3]float32{1, 1, 1}, 0, pyramid.Factors(2, 2))
	if err != nil {
		t.Fatal(err)
	}
	acc, err := NewAccumulator(ctx, ref)
	if err != nil {
		t.Fatal(err)
	}
	acc.AddReference(ref)

	sigma, err := ReferenceNoiseSigma(ctx, ref, 2)
	if err != nil {
		t.Fatal(err)
	}

	cfg := align.Config{
		Factors:    []int{2, 2, 2},
		TileSizes:  []int{16, 16, 16},
		SearchDist: []int{4, 4, 4},
	}
	r := Robustness(13)
	if err := MergeFrame(ctx, acc, refPyr, ref, cmp, 2, [3]float32{1, 1, 1}, 0, cfg, sigma, r); err != nil {
		t.Fatal(err)
	}

	for i, v := range acc.Texture().Data {
		if math.Abs(float64(v-4000)) > 1 {
			t.Fatalf("pixel %d: expected ~4000 after merging identical frames, got %v", i, v)
		}
	}
}
