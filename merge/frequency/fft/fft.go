// Package fft implements the tile-size 8/16 real-to-complex transform the
// frequency merge engine needs (spec.md §4.6's FFT contract): a radix-4
// decimation-in-time FFT for T ∈ {8, 16}, plus a generic O(T²) DFT used both
// as a correctness fallback and as the reference the radix-4 path is
// verified against.
package fft

import (
	"fmt"
	"math"
)

// Complex is a float32 complex number; the whole package stays in float32 to
// match the core's IEEE-754 float32 numeric-semantics contract (spec.md
// §4.2).
type Complex struct{ Re, Im float32 }

func (c Complex) Add(o Complex) Complex { return Complex{c.Re + o.Re, c.Im + o.Im} }
func (c Complex) Sub(o Complex) Complex { return Complex{c.Re - o.Re, c.Im - o.Im} }
func (c Complex) Mul(o Complex) Complex {
	return Complex{c.Re*o.Re - c.Im*o.Im, c.Re*o.Im + c.Im*o.Re}
}
func (c Complex) Conj() Complex    { return Complex{c.Re, -c.Im} }
func (c Complex) Scale(s float32) Complex { return Complex{c.Re * s, c.Im * s} }
func (c Complex) Abs2() float32    { return c.Re*c.Re + c.Im*c.Im }
func (c Complex) Abs() float32     { return float32(math.Sqrt(float64(c.Abs2()))) }

// SupportedSizes are the tile sizes the radix-4 path accelerates.
var SupportedSizes = map[int]bool{8: true, 16: true}

// isPowerOfTwo reports whether n is a positive power of two.
func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

// twiddle returns e^{-2*pi*i*k/n}.
func twiddle(k, n int) Complex {
	theta := -2 * math.Pi * float64(k) / float64(n)
	return Complex{float32(math.Cos(theta)), float32(math.Sin(theta))}
}

// Forward computes the full complex DFT of x (length must be a power of
// two) using radix-4 decimation-in-time, recursing to a radix-2 base case
// when a level's size is not a multiple of 4. This covers T=8 (one radix-2
// level under a radix-4 level) and T=16 (two radix-4 levels) exactly.
func Forward(x []Complex) ([]Complex, error) {
	n := len(x)
	if !isPowerOfTwo(n) {
		return nil, fmt.Errorf("fft: length %d is not a power of two", n)
	}
	return fftRadix4(x), nil
}

func fftRadix4(x []Complex) []Complex {
	n := len(x)
	if n == 1 {
		return []Complex{x[0]}
	}
	if n == 2 {
		return []Complex{x[0].Add(x[1]), x[0].Sub(x[1])}
	}
	if n%4 != 0 {
		return fftRadix2(x)
	}

	quarter := n / 4
	e0 := make([]Complex, quarter)
	e1 := make([]Complex, quarter)
	e2 := make([]Complex, quarter)
	e3 := make([]Complex, quarter)
	for i := 0; i < quarter; i++ {
		e0[i] = x[4*i]
		e1[i] = x[4*i+1]
		e2[i] = x[4*i+2]
		e3[i] = x[4*i+3]
	}
	f0 := fftRadix4(e0)
	f1 := fftRadix4(e1)
	f2 := fftRadix4(e2)
	f3 := fftRadix4(e3)

	out := make([]Complex, n)
	negI := Complex{0, -1}
	posI := Complex{0, 1}
	for k := 0; k < quarter; k++ {
		w1 := twiddle(k, n).Mul(f1[k])
		w2 := twiddle(2*k, n).Mul(f2[k])
		w3 := twiddle(3*k, n).Mul(f3[k])

		a := f0[k].Add(w2)
		b := f0[k].Sub(w2)
		c := w1.Add(w3)
		d := w1.Sub(w3)

		out[k] = a.Add(c)
		out[k+quarter] = b.Add(d.Mul(negI))
		out[k+2*quarter] = a.Sub(c)
		out[k+3*quarter] = b.Add(d.Mul(posI))
	}
	return out
}

func fftRadix2(x []Complex) []Complex {
	n := len(x)
	if n == 1 {
		return []Complex{x[0]}
	}
	even := make([]Complex, n/2)
	odd := make([]Complex, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = x[2*i]
		odd[i] = x[2*i+1]
	}
	fe := fftRadix2(even)
	fo := fftRadix2(odd)
	out := make([]Complex, n)
	for k := 0; k < n/2; k++ {
		t := twiddle(k, n).Mul(fo[k])
		out[k] = fe[k].Add(t)
		out[k+n/2] = fe[k].Sub(t)
	}
	return out
}

// DFTGeneric computes the full complex DFT directly in O(n^2), the
// correctness-fallback path spec.md §4.6 requires radix-4 results be
// checked against.
func DFTGeneric(x []Complex) []Complex {
	n := len(x)
	out := make([]Complex, n)
	for k := 0; k < n; k++ {
		var acc Complex
		for j := 0; j < n; j++ {
			acc = acc.Add(x[j].Mul(twiddle((k*j)%n, n)))
		}
		out[k] = acc
	}
	return out
}

// Inverse computes the inverse DFT of a full complex spectrum X (length n),
// using the conjugation trick ifft(X) = conj(fft(conj(X))) / n so Forward's
// radix-4 path is reused instead of a separate inverse implementation.
func Inverse(X []Complex) ([]Complex, error) {
	n := len(X)
	conjIn := make([]Complex, n)
	for i, v := range X {
		conjIn[i] = v.Conj()
	}
	spec, err := Forward(conjIn)
	if err != nil {
		return nil, err
	}
	out := make([]Complex, n)
	inv := 1 / float32(n)
	for i, v := range spec {
		out[i] = v.Conj().Scale(inv)
	}
	return out, nil
}

// ForwardReal computes the real-input forward DFT of x (length n, a power
// of two), exploiting Hermitian symmetry: only the first n/2+1 bins are
// returned, per spec.md §4.6.
func ForwardReal(x []float32) ([]Complex, error) {
	n := len(x)
	cx := make([]Complex, n)
	for i, v := range x {
		cx[i] = Complex{Re: v}
	}
	full, err := Forward(cx)
	if err != nil {
		return nil, err
	}
	return full[:n/2+1], nil
}

// MirrorHermitian expands a half-spectrum of length n/2+1 (as produced by
// ForwardReal) back to the full length-n spectrum by conjugate mirroring.
func MirrorHermitian(half []Complex, n int) []Complex {
	full := make([]Complex, n)
	copy(full, half)
	for k := len(half); k < n; k++ {
		full[k] = half[n-k].Conj()
	}
	return full
}

// InverseReal computes the real part of the inverse DFT of a Hermitian
// half-spectrum (length n/2+1), i.e. the real-valued spatial-domain tile a
// real-input forward/inverse round trip should recover.
func InverseReal(half []Complex, n int) ([]float32, error) {
	full := MirrorHermitian(half, n)
	inv, err := Inverse(full)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i, v := range inv {
		out[i] = v.Re
	}
	return out, nil
}
