// Package ioadapter translates caller-supplied frame buffers and metadata
// into the core's Frame/FrameMeta/Burst types and back (spec.md's boundary
// contract, §6.7): codec and filesystem concerns stay on the caller's side
// of this package, never surfacing through hdrplus.Process's error taxonomy.
package ioadapter

import (
	"fmt"

	"github.com/gogpu/hdrplus"
	"github.com/gogpu/hdrplus/herrors"
)

// RawFrame is a caller-owned 16-bit sensor plane in row-major CFA order,
// the shape a raw decoder (DNG, proprietary raw, a test fixture) hands in.
type RawFrame struct {
	Width, Height int
	CFAWidth      int
	Samples       []uint16

	ExposureBias   int // 1/100-EV units
	BlackLevel     []float32
	WhiteLevel     float32
	ColorFactors   [3]float32
	HotPixelWeight []float32 // optional, same shape as Samples
}

// RawBurst is the caller's unadapted burst: an ordered list of RawFrame plus
// the index of the chosen reference.
type RawBurst struct {
	Frames []RawFrame
	RefIdx int
}

// Adapt converts a RawBurst into the core's Burst, widening every sample
// plane to float32. It validates shape invariants the core itself expects
// (spec.md §3) and reports them as InvalidArgument, but never touches a
// filesystem or codec, so no I/O error kind can leak through it.
func Adapt(raw RawBurst) (hdrplus.Burst, error) {
	if len(raw.Frames) == 0 {
		return hdrplus.Burst{}, herrors.New(herrors.InvalidArgument, "ioadapter.Adapt", fmt.Errorf("empty burst"))
	}
	frames := make([]hdrplus.Frame, len(raw.Frames))
	metas := make([]hdrplus.FrameMeta, len(raw.Frames))
	for i, rf := range raw.Frames {
		if len(rf.Samples) != rf.Width*rf.Height {
			return hdrplus.Burst{}, herrors.New(herrors.InvalidArgument, "ioadapter.Adapt", fmt.Errorf("frame %d: sample count %d != %d*%d", i, len(rf.Samples), rf.Width, rf.Height))
		}
		if rf.HotPixelWeight != nil && len(rf.HotPixelWeight) != len(rf.Samples) {
			return hdrplus.Burst{}, herrors.New(herrors.InvalidArgument, "ioadapter.Adapt", fmt.Errorf("frame %d: hot pixel weight shape mismatch", i))
		}
		pixels := make([]float32, len(rf.Samples))
		for j, s := range rf.Samples {
			pixels[j] = float32(s)
		}
		frames[i] = hdrplus.Frame{
			Width:    rf.Width,
			Height:   rf.Height,
			CFAWidth: rf.CFAWidth,
			Pixels:   pixels,
		}
		metas[i] = hdrplus.FrameMeta{
			ExposureBias:   rf.ExposureBias,
			BlackLevel:     append([]float32(nil), rf.BlackLevel...),
			WhiteLevel:     rf.WhiteLevel,
			ColorFactors:   rf.ColorFactors,
			HotPixelWeight: rf.HotPixelWeight,
		}
	}
	return hdrplus.Burst{Frames: frames, Meta: metas, RefIdx: raw.RefIdx}, nil
}

// RawMerged is the caller-facing shape of a merge result: a plane of 16-bit
// samples ready to hand back to a raw container writer.
type RawMerged struct {
	Width, Height int
	CFAWidth      int
	Samples       []uint16
	BlackLevel    []float32
	WhiteLevel    float32
	Gain          float32
}

// Unadapt narrows a MergedRaw's float32 plane back to 16-bit samples,
// rounding and clamping to [0, 65535]. Callers that asked for
// hdrplus.Native output (unquantized) still get integer samples here;
// callers that asked for hdrplus.Output16Bit already received rounded
// values from Process and this step is a lossless narrow.
func Unadapt(m hdrplus.MergedRaw) RawMerged {
	samples := make([]uint16, len(m.Pixels))
	for i, v := range m.Pixels {
		samples[i] = clampUint16(v)
	}
	return RawMerged{
		Width:      m.Width,
		Height:     m.Height,
		CFAWidth:   m.CFAWidth,
		Samples:    samples,
		BlackLevel: append([]float32(nil), m.Meta.BlackLevel...),
		WhiteLevel: m.Meta.WhiteLevel,
		Gain:       m.Gain,
	}
}

func clampUint16(v float32) uint16 {
	r := v + 0.5
	if r < 0 {
		return 0
	}
	if r > 65535 {
		return 65535
	}
	return uint16(r)
}
