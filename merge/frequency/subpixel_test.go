package frequency

import (
	"math"
	"testing"
)

func TestSubpixelShiftIdenticalSpectraIsZero(t *testing.T) {
	const T = 8
	samples := make([]float32, T*T)
	for i := range samples {
		samples[i] = float32(i%5) - 2
	}
	spec, err := forward2D(samples, T)
	if err != nil {
		t.Fatalf("forward2D: %v", err)
	}
	dx, dy := subpixelShift(spec, spec, T)
	if math.Abs(dx) > 1e-9 || math.Abs(dy) > 1e-9 {
		t.Fatalf("dx,dy = %v,%v, want 0,0 for identical spectra", dx, dy)
	}
}
