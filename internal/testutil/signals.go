// Package testutil holds signal generators and assertions shared by the
// engine's tests.
package testutil

import (
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-synth/engine/hw"
)

// Sine returns n samples of a sine starting at phase 0.
func Sine(freqHz, sampleRate, amplitude float64, n int) []float64 {
	out := make([]float64, n)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// Noise returns n samples of uniform white noise. The same seed always
// gives the same samples.
func Noise(seed uint64, amplitude float64, n int) []float64 {
	out := make([]float64, n)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// Impulse returns n samples that are zero except for a 1 at pos.
func Impulse(n, pos int) []float64 {
	out := make([]float64, n)
	if pos >= 0 && pos < n {
		out[pos] = 1
	}

	return out
}

// DC returns n samples of value.
func DC(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}

	return out
}

// Ones returns n samples of 1.
func Ones(n int) []float64 { return DC(1, n) }

// Energy returns the sum of squares of data.
func Energy(data []float64) float64 {
	var e float64
	for _, v := range data {
		e += v * v
	}

	return e
}

// Levels converts codec frames back to floats, full scale being 1.
func Levels(frames []hw.Frame) (l, r []float64) {
	l = make([]float64, len(frames))
	r = make([]float64, len(frames))

	for i, f := range frames {
		l[i] = float64(f.L) / (1 << 31)
		r[i] = float64(f.R) / (1 << 31)
	}

	return l, r
}
