package frequency

import (
	"math"
	"testing"

	"github.com/gogpu/hdrplus/gpu"
)

func TestForwardInverse2DRoundTrips(t *testing.T) {
	const T = 8
	samples := make([]float32, T*T)
	for i := range samples {
		samples[i] = float32(i%7) - 3
	}
	spec, err := forward2D(samples, T)
	if err != nil {
		t.Fatalf("forward2D: %v", err)
	}
	back, err := inverse2D(spec, T)
	if err != nil {
		t.Fatalf("inverse2D: %v", err)
	}
	for i := range samples {
		if math.Abs(float64(samples[i]-back[i])) > 1e-3 {
			t.Fatalf("sample %d: got %v, want %v", i, back[i], samples[i])
		}
	}
}

func TestExtractInsertChannelTileRoundTrips(t *testing.T) {
	ctx := gpu.NewContext(nil, nil)
	tex, err := ctx.AllocTexture(16, 16, gpu.StorageFloatR, "test")
	if err != nil {
		t.Fatalf("AllocTexture: %v", err)
	}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			tex.Set(x, y, float32(x+y))
		}
	}
	const T = 4
	tile := extractChannelTile(tex, 0, 0, 2, 0, T)

	out, err := ctx.AllocTexture(16, 16, gpu.StorageFloatR, "out")
	if err != nil {
		t.Fatalf("AllocTexture: %v", err)
	}
	insertChannelTile(out, 0, 0, 2, 0, T, tile)

	back := extractChannelTile(out, 0, 0, 2, 0, T)
	for i := range tile {
		if tile[i] != back[i] {
			t.Fatalf("sample %d: got %v, want %v", i, back[i], tile[i])
		}
	}
}

func TestShiftSpectrumZeroShiftIsIdentity(t *testing.T) {
	const T = 8
	samples := make([]float32, T*T)
	for i := range samples {
		samples[i] = float32(i)
	}
	spec, err := forward2D(samples, T)
	if err != nil {
		t.Fatalf("forward2D: %v", err)
	}
	shifted := shiftSpectrum(spec, T, 0, 0)
	for i := range spec {
		if math.Abs(float64(spec[i].Re-shifted[i].Re)) > 1e-4 || math.Abs(float64(spec[i].Im-shifted[i].Im)) > 1e-4 {
			t.Fatalf("bin %d changed under zero shift: %v -> %v", i, spec[i], shifted[i])
		}
	}
}

func TestChannelMapBayerCoversThreeDistinctChannels(t *testing.T) {
	// Bayer's 2x2 cell has exactly 3 physically distinct samples (R, G, B);
	// numChannels(2) reflects that instead of reserving an unused 4th slot.
	if n := numChannels(2); n != 3 {
		t.Fatalf("numChannels(2) = %d, want 3", n)
	}
	chOf := channelMap(2)
	seen := map[int]bool{}
	for cy := 0; cy < 2; cy++ {
		for cx := 0; cx < 2; cx++ {
			seen[chOf(cx, cy)] = true
		}
	}
	if len(seen) != 3 {
		t.Fatalf("bayer channel map covers %d distinct channels, want 3: %v", len(seen), seen)
	}
}

func TestChannelMapXTransCoversFourDistinctChannels(t *testing.T) {
	if n := numChannels(6); n != 4 {
		t.Fatalf("numChannels(6) = %d, want 4", n)
	}
	chOf := channelMap(6)
	seen := map[int]bool{}
	for cy := 0; cy < 6; cy++ {
		for cx := 0; cx < 6; cx++ {
			seen[chOf(cx, cy)] = true
		}
	}
	if len(seen) != 4 {
		t.Fatalf("x-trans channel map covers %d distinct channels, want 4: %v", len(seen), seen)
	}
}
