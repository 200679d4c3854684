package testutil

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-synth/engine/hw"
)

func TestSineStartsAtZero(t *testing.T) {
	s := Sine(1000, 48000, 0.5, 48)
	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}

	if s[0] != 0 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}

	// Quarter period at 1 kHz / 48 kHz.
	if math.Abs(s[12]-0.5) > 1e-12 {
		t.Fatalf("s[12] = %v, want 0.5", s[12])
	}
}

func TestNoiseIsReproducible(t *testing.T) {
	a := Noise(42, 1, 64)
	b := Noise(42, 1, 64)
	c := Noise(43, 1, 64)

	RequireSliceNearlyEqual(t, a, b, 0)

	same := true
	for i := range a {
		if a[i] < -1 || a[i] > 1 {
			t.Fatalf("a[%d] = %v out of range", i, a[i])
		}

		same = same && a[i] == c[i]
	}

	if same {
		t.Fatal("different seeds gave the same noise")
	}
}

func TestImpulseIgnoresOutOfRange(t *testing.T) {
	if e := Energy(Impulse(8, 3)); e != 1 {
		t.Fatalf("energy = %v, want 1", e)
	}

	if e := Energy(Impulse(8, 8)); e != 0 {
		t.Fatalf("energy = %v, want 0", e)
	}
}

func TestDCAndOnes(t *testing.T) {
	RequireSliceNearlyEqual(t, DC(0.25, 3), []float64{0.25, 0.25, 0.25}, 0)
	RequireSliceNearlyEqual(t, Ones(2), []float64{1, 1}, 0)
}

func TestEnergy(t *testing.T) {
	if e := Energy([]float64{3, -4}); e != 25 {
		t.Fatalf("Energy = %v, want 25", e)
	}

	if e := Energy(nil); e != 0 {
		t.Fatalf("Energy(nil) = %v, want 0", e)
	}
}

func TestLevels(t *testing.T) {
	l, r := Levels([]hw.Frame{{L: 1 << 30, R: -1 << 31}, {L: 0, R: 1 << 29}})
	RequireSliceNearlyEqual(t, l, []float64{0.5, 0}, 0)
	RequireSliceNearlyEqual(t, r, []float64{-1, 0.25}, 0)
}
