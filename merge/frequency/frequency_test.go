package frequency

import (
	"math"
	"testing"

	"github.com/gogpu/hdrplus/merge/frequency/fft"
)

func TestMachineHappyPath(t *testing.T) {
	m := newMachine(3)
	if err := m.prepareRef(); err != nil {
		t.Fatalf("prepareRef: %v", err)
	}
	if m.state != PreparedRef {
		t.Fatalf("state = %v, want PreparedRef", m.state)
	}
	if err := m.accumulate(); err != nil {
		t.Fatalf("accumulate 1: %v", err)
	}
	if err := m.accumulate(); err != nil {
		t.Fatalf("accumulate 2: %v", err)
	}
	if m.state != Accumulating || m.consumed != m.total {
		t.Fatalf("state=%v consumed=%d, want Accumulating with all frames consumed", m.state, m.consumed)
	}
	for _, step := range []func() error{m.deconvolve, m.invert, m.cleanBorders, m.emit} {
		if err := step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if m.state != Emitted {
		t.Fatalf("state = %v, want Emitted", m.state)
	}
}

func TestMachineRejectsOutOfOrderTransition(t *testing.T) {
	m := newMachine(2)
	if err := m.deconvolve(); err == nil {
		t.Fatal("deconvolve from Idle should fail")
	}
	if err := m.prepareRef(); err != nil {
		t.Fatalf("prepareRef: %v", err)
	}
	if err := m.deconvolve(); err == nil {
		t.Fatal("deconvolve before all frames consumed should fail")
	}
}

func TestMachineSingleFrameBurstEntersAccumulatingImmediately(t *testing.T) {
	m := newMachine(1)
	if err := m.prepareRef(); err != nil {
		t.Fatalf("prepareRef: %v", err)
	}
	if m.state != Accumulating {
		t.Fatalf("state = %v, want Accumulating (N=1 consumed at prepareRef)", m.state)
	}
}

func TestNewGridOverlapsByHalf(t *testing.T) {
	g := NewGrid(64, 64, 8, 2)
	if g.TileSpan != 16 {
		t.Fatalf("TileSpan = %d, want 16", g.TileSpan)
	}
	if g.StepPx != 8 {
		t.Fatalf("StepPx = %d, want 8", g.StepPx)
	}
	if len(g.OriginsX) < 2 || len(g.OriginsY) < 2 {
		t.Fatalf("expected multiple tile origins, got %d x %d", len(g.OriginsX), len(g.OriginsY))
	}
}

func TestNewGridFallsBackToSingleTileWhenPlaneSmallerThanSpan(t *testing.T) {
	g := NewGrid(4, 4, 8, 2)
	if len(g.OriginsX) != 1 || len(g.OriginsY) != 1 {
		t.Fatalf("expected a single fallback tile, got %d x %d", len(g.OriginsX), len(g.OriginsY))
	}
}

func TestRaisedCosine1DPeaksAtOneAndZerosAtEdges(t *testing.T) {
	w := raisedCosine1D(9)
	if math.Abs(float64(w[0])) > 1e-6 || math.Abs(float64(w[len(w)-1])) > 1e-6 {
		t.Fatalf("window edges = %v, %v, want ~0", w[0], w[len(w)-1])
	}
	mid := w[len(w)/2]
	if mid < 0.99 {
		t.Fatalf("window midpoint = %v, want ~1", mid)
	}
}

func TestBinWeightIsOneWhenResidualIsZero(t *testing.T) {
	ref := fft.Complex{Re: 10, Im: 0}
	w := binWeight(0.01, 0.01, ref, fft.Complex{})
	if w != 1 {
		t.Fatalf("weight = %v, want 1 for zero residual", w)
	}
}

func TestBinWeightDropsTowardZeroForLargeResidual(t *testing.T) {
	ref := fft.Complex{Re: 10, Im: 0}
	diff := fft.Complex{Re: 1000, Im: 1000}
	w := binWeight(0.01, 0.01, ref, diff)
	if w > 0.1 {
		t.Fatalf("weight = %v, want near 0 for large residual", w)
	}
}

func TestScalarWeightDropsMinAndMax(t *testing.T) {
	w := scalarWeight([]float32{0.0, 0.4, 0.6, 1.0})
	if math.Abs(float64(w-0.5)) > 1e-6 {
		t.Fatalf("scalarWeight = %v, want 0.5 (average of the two middle values)", w)
	}
}

func TestScalarWeightThreeChannelsIsMedian(t *testing.T) {
	w := scalarWeight([]float32{0.2, 0.9, 0.5})
	if math.Abs(float64(w-0.5)) > 1e-6 {
		t.Fatalf("scalarWeight = %v, want 0.5 (the median of a 3-channel tile)", w)
	}
}

func TestFoldIndexMirrorsAboveNyquist(t *testing.T) {
	const T = 16
	if foldIndex(0, T) != 0 {
		t.Errorf("foldIndex(0) = %d, want 0", foldIndex(0, T))
	}
	if foldIndex(T/2, T) != T/2 {
		t.Errorf("foldIndex(Nyquist) = %d, want %d", foldIndex(T/2, T), T/2)
	}
	if foldIndex(T-1, T) != 1 {
		t.Errorf("foldIndex(T-1) = %d, want 1", foldIndex(T-1, T))
	}
}

func TestApplyDeconvSkipsDCBin(t *testing.T) {
	const T = 8
	spec := make([]fft.Complex, T*T)
	for i := range spec {
		spec[i] = fft.Complex{Re: 1, Im: 0}
	}
	applyDeconv(spec, T, 1.0, 0.0)
	if spec[0] != (fft.Complex{Re: 1, Im: 0}) {
		t.Fatalf("DC bin modified: %v", spec[0])
	}
	if spec[1].Re <= 1 {
		t.Fatalf("non-DC bin not boosted: %v", spec[1])
	}
}

func TestApplyDeconvSkipsHighMismatchTile(t *testing.T) {
	const T = 8
	spec := make([]fft.Complex, T*T)
	for i := range spec {
		spec[i] = fft.Complex{Re: 1, Im: 0}
	}
	applyDeconv(spec, T, 1.0, deconvMismatchSkip)
	for i, c := range spec {
		if c != (fft.Complex{Re: 1, Im: 0}) {
			t.Fatalf("bin %d modified despite mismatch at skip threshold: %v", i, c)
		}
	}
}

func TestDeconvGainTableMonotonicDecreasing(t *testing.T) {
	g := deconvGainTable(16)
	if g[0] <= g[len(g)-1] {
		t.Fatalf("gain table not decreasing from DC to Nyquist: %v", g)
	}
	for i := 1; i < len(g); i++ {
		if g[i] > g[i-1]+1e-6 {
			t.Fatalf("gain table not monotonic at index %d: %v", i, g)
		}
	}
}
