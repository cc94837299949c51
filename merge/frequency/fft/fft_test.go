package fft

import (
	"math"
	"math/rand"
	"testing"
)

func randComplex(r *rand.Rand, n int) []Complex {
	out := make([]Complex, n)
	for i := range out {
		out[i] = Complex{Re: float32(r.Float64()*2 - 1), Im: float32(r.Float64()*2 - 1)}
	}
	return out
}

func maxRelError(a, b []Complex) float64 {
	var worst float64
	for i := range a {
		num := math.Hypot(float64(a[i].Re-b[i].Re), float64(a[i].Im-b[i].Im))
		den := math.Hypot(float64(b[i].Re), float64(b[i].Im)) + 1e-9
		if rel := num / den; rel > worst {
			worst = rel
		}
	}
	return worst
}

func TestRadix4MatchesGenericDFT(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, n := range []int{8, 16} {
		x := randComplex(r, n)
		got, err := Forward(x)
		if err != nil {
			t.Fatal(err)
		}
		want := DFTGeneric(x)
		if rel := maxRelError(got, want); rel > 1e-5 {
			t.Fatalf("size %d: radix-4 vs generic DFT relative error %v exceeds 1e-5", n, rel)
		}
	}
}

func TestForwardInverseRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for _, n := range []int{8, 16} {
		x := randComplex(r, n)
		spec, err := Forward(x)
		if err != nil {
			t.Fatal(err)
		}
		back, err := Inverse(spec)
		if err != nil {
			t.Fatal(err)
		}
		if rel := maxRelError(back, x); rel > 1e-5 {
			t.Fatalf("size %d: forward/inverse round trip relative error %v exceeds 1e-5", n, rel)
		}
	}
}

func TestForwardRealHermitianRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, n := range []int{8, 16} {
		x := make([]float32, n)
		for i := range x {
			x[i] = float32(r.Float64()*2000 - 1000)
		}
		half, err := ForwardReal(x)
		if err != nil {
			t.Fatal(err)
		}
		if len(half) != n/2+1 {
			t.Fatalf("expected %d Hermitian bins, got %d", n/2+1, len(half))
		}
		back, err := InverseReal(half, n)
		if err != nil {
			t.Fatal(err)
		}
		for i := range x {
			want := float64(x[i])
			got := float64(back[i])
			rel := math.Abs(got-want) / (math.Abs(want) + 1e-6)
			if rel > 1e-4 {
				t.Fatalf("size %d index %d: got %v want %v (rel %v)", n, i, got, want, rel)
			}
		}
	}
}

func TestMirrorHermitianConjugateSymmetry(t *testing.T) {
	half := []Complex{{1, 0}, {2, 3}, {4, 0}, {2, -3}, {5, 1}}
	// n/2+1 == 5 implies n == 8.
	full := MirrorHermitian(half, 8)
	for k := 1; k < 8; k++ {
		mirror := full[8-k]
		want := full[k].Conj()
		if k == 4 {
			continue // Nyquist bin mirrors to itself; both halves already equal.
		}
		if mirror != want {
			t.Fatalf("bin %d not conjugate-symmetric with bin %d", k, 8-k)
		}
	}
}
