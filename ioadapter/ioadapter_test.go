package ioadapter

import (
	"testing"

	"github.com/gogpu/hdrplus"
	"github.com/gogpu/hdrplus/herrors"
)

func TestAdaptWidensSamplesAndCopiesMeta(t *testing.T) {
	raw := RawBurst{
		Frames: []RawFrame{
			{
				Width: 2, Height: 2, CFAWidth: 2,
				Samples:      []uint16{100, 200, 300, 400},
				BlackLevel:   []float32{10, 10, 10, 10},
				WhiteLevel:   16383,
				ColorFactors: [3]float32{1, 1, 1},
			},
		},
		RefIdx: 0,
	}
	burst, err := Adapt(raw)
	if err != nil {
		t.Fatalf("Adapt: %v", err)
	}
	if len(burst.Frames) != 1 || len(burst.Meta) != 1 {
		t.Fatalf("unexpected burst shape: %+v", burst)
	}
	want := []float32{100, 200, 300, 400}
	for i, v := range burst.Frames[0].Pixels {
		if v != want[i] {
			t.Errorf("pixel %d = %v, want %v", i, v, want[i])
		}
	}
	if burst.Meta[0].WhiteLevel != 16383 {
		t.Errorf("white level = %v, want 16383", burst.Meta[0].WhiteLevel)
	}
}

func TestAdaptEmptyBurstIsInvalidArgument(t *testing.T) {
	_, err := Adapt(RawBurst{})
	if herrors.KindOf(err) != herrors.InvalidArgument {
		t.Fatalf("kind = %v, want InvalidArgument", herrors.KindOf(err))
	}
}

func TestAdaptRejectsSampleCountMismatch(t *testing.T) {
	raw := RawBurst{Frames: []RawFrame{{Width: 2, Height: 2, CFAWidth: 2, Samples: []uint16{1, 2, 3}}}}
	_, err := Adapt(raw)
	if herrors.KindOf(err) != herrors.InvalidArgument {
		t.Fatalf("kind = %v, want InvalidArgument", herrors.KindOf(err))
	}
}

func TestUnadaptRoundsAndClamps(t *testing.T) {
	m := hdrplus.MergedRaw{
		Width: 2, Height: 1, CFAWidth: 2,
		Pixels: []float32{-5, 70000},
		Meta:   hdrplus.FrameMeta{WhiteLevel: 16383, BlackLevel: []float32{0, 0, 0, 0}},
		Gain:   1.5,
	}
	out := Unadapt(m)
	if out.Samples[0] != 0 {
		t.Errorf("sample 0 = %d, want 0 (clamped)", out.Samples[0])
	}
	if out.Samples[1] != 65535 {
		t.Errorf("sample 1 = %d, want 65535 (clamped)", out.Samples[1])
	}
	if out.Gain != 1.5 {
		t.Errorf("gain = %v, want 1.5", out.Gain)
	}
}

func TestPreviewDownscalesWhenOverMaxDim(t *testing.T) {
	m := hdrplus.MergedRaw{
		Width: 8, Height: 4, CFAWidth: 2,
		Pixels: make([]float32, 32),
		Meta:   hdrplus.FrameMeta{WhiteLevel: 16383},
	}
	img := Preview(m, 4)
	b := img.Bounds()
	if b.Dx() > 4 || b.Dy() > 4 {
		t.Fatalf("preview dims %v exceed maxDim 4", b)
	}
}

func TestPreviewPassthroughWhenWithinMaxDim(t *testing.T) {
	m := hdrplus.MergedRaw{
		Width: 2, Height: 2, CFAWidth: 2,
		Pixels: make([]float32, 4),
		Meta:   hdrplus.FrameMeta{WhiteLevel: 16383},
	}
	img := Preview(m, 8)
	b := img.Bounds()
	if b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("preview dims = %v, want 2x2", b)
	}
}
