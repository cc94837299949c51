package gpu

import (
	"fmt"

	"github.com/gogpu/hdrplus/herrors"
)

// StorageClass selects the channel layout of an allocated Texture.
type StorageClass int

const (
	// StorageFloatR is a single-channel float32 texture (luminance, weights,
	// alignment-cost planes).
	StorageFloatR StorageClass = iota

	// StorageFloatRGBA is a four-channel float32 texture (interleaved
	// real/imag tile layout used by the frequency merge engine).
	StorageFloatRGBA
)

// Channels returns the per-pixel float32 count for the storage class.
func (s StorageClass) Channels() int {
	switch s {
	case StorageFloatRGBA:
		return 4
	default:
		return 1
	}
}

// Texture is a 2-D float32-backed GPU-resident resource. In the absence of a
// bound hardware device the backing store is host memory and kernels run
// their CPU fallback path, mirroring the teacher's software backend
// (backend/software.go) sitting alongside the hal-backed ones.
type Texture struct {
	Width, Height int
	Class         StorageClass
	Data          []float32 // len == Width*Height*Class.Channels()
	Label         string

	released bool
}

// AllocTexture allocates a zero-filled texture of the given size and storage
// class. Allocation failure (width/height <= 0) is reported as
// herrors.InvalidArgument; a real allocator backed by an exhausted device
// heap reports herrors.OutOfMemory — both share this constructor so callers
// never distinguish allocation failure shape.
func (c *Context) AllocTexture(width, height int, class StorageClass, label string) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, herrors.New(herrors.InvalidArgument, "gpu.AllocTexture",
			fmt.Errorf("invalid size %dx%d", width, height))
	}
	n := width * height * class.Channels()
	data := make([]float32, n)
	if data == nil && n > 0 {
		return nil, herrors.New(herrors.OutOfMemory, "gpu.AllocTexture", nil)
	}
	return &Texture{Width: width, Height: height, Class: class, Data: data, Label: label}, nil
}

// Release marks the texture as no longer owned by its allocator. Reuse of a
// released texture is a herrors.Internal bug at the caller.
func (t *Texture) Release() {
	if t == nil {
		return
	}
	t.Data = nil
	t.released = true
}

// Released reports whether Release has been called.
func (t *Texture) Released() bool { return t != nil && t.released }

// At returns the scalar value at (x, y) for a single-channel texture,
// clamping out-of-bounds reads to the nearest border sample rather than
// returning zero. The aligner's zero edge policy uses AtZero instead.
func (t *Texture) At(x, y int) float32 {
	x = clampInt(x, 0, t.Width-1)
	y = clampInt(y, 0, t.Height-1)
	return t.Data[y*t.Width+x]
}

// AtZero returns the scalar value at (x, y), returning 0 for any
// out-of-bounds read. Used by the aligner against symmetrically zero-padded
// comparison textures, where out-of-bounds genuinely means zero (spec.md
// §4.4 edge policy).
func (t *Texture) AtZero(x, y int) float32 {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return 0
	}
	return t.Data[y*t.Width+x]
}

// AtC returns channel c of the pixel at (x, y) for a multi-channel texture.
func (t *Texture) AtC(x, y, c int) float32 {
	ch := t.Class.Channels()
	return t.Data[(y*t.Width+x)*ch+c]
}

// SetC sets channel c of the pixel at (x, y) for a multi-channel texture.
func (t *Texture) SetC(x, y, c int, v float32) {
	ch := t.Class.Channels()
	t.Data[(y*t.Width+x)*ch+c] = v
}

// Set sets the scalar value at (x, y) for a single-channel texture.
func (t *Texture) Set(x, y int, v float32) {
	t.Data[y*t.Width+x] = v
}

// Clone returns a deep copy of t, independent of the original's backing
// store.
func (t *Texture) Clone() *Texture {
	d := make([]float32, len(t.Data))
	copy(d, t.Data)
	return &Texture{Width: t.Width, Height: t.Height, Class: t.Class, Data: d, Label: t.Label + ".clone"}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Buffer is a flat float32 GPU-resident buffer, used for reduction outputs
// (texture_mean, texture_max) and small uniform parameter blocks.
type Buffer struct {
	Data []float32
}

// AllocBuffer allocates a zero-filled buffer of n floats.
func (c *Context) AllocBuffer(n int) (*Buffer, error) {
	if n < 0 {
		return nil, herrors.New(herrors.InvalidArgument, "gpu.AllocBuffer", fmt.Errorf("negative length %d", n))
	}
	return &Buffer{Data: make([]float32, n)}, nil
}
