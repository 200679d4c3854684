package master

import "math"

// butterworthQ is used when the song asks for a resonance of 0.
const butterworthQ = 1 / math.Sqrt2

// filterStage is one RBJ biquad, a0 normalized away, run in transposed
// direct form II on both channels with shared coefficients.
type filterStage struct {
	on, highpass bool
	freq, q      float64
	b0, b1, b2   float64
	a1, a2       float64
	state        [2][2]float64 // per channel: z1, z2
}

// design recomputes coefficients for freq and q. A cutoff outside
// (0, Nyquist) switches the stage off. The state is cleared when the
// stage comes back on so no stale tail replays.
func (s *filterStage) design(freq, q, sampleRate float64) {
	if freq == s.freq && q == s.q {
		return
	}

	s.freq, s.q = freq, q

	valid := sampleRate > 0 && !math.IsInf(sampleRate, 0) &&
		freq > 0 && freq < sampleRate/2 && !math.IsNaN(freq)
	if !valid {
		s.on = false
		return
	}

	if !s.on {
		s.state = [2][2]float64{}
	}

	s.on = true

	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		q = butterworthQ
	}

	w := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w)
	alpha := math.Sin(w) / (2 * q)
	a0 := 1 + alpha

	// Lowpass and highpass share poles; only the numerator differs.
	if s.highpass {
		s.b0 = (1 + cw) / 2 / a0
		s.b1 = -(1 + cw) / a0
	} else {
		s.b0 = (1 - cw) / 2 / a0
		s.b1 = (1 - cw) / a0
	}

	s.b2 = s.b0
	s.a1 = -2 * cw / a0
	s.a2 = (1 - alpha) / a0
}

func (s *filterStage) run(ch int, buf []float64) {
	z := &s.state[ch]
	for i, x := range buf {
		y := s.b0*x + z[0]
		z[0] = s.b1*x - s.a1*y + z[1]
		z[1] = s.b2*x - s.a2*y
		buf[i] = y
	}
}

// StereoFilter is the master lowpass followed by the master highpass.
// Either is bypassed while its cutoff is outside (0, Nyquist).
type StereoFilter struct {
	sampleRate float64
	lpf, hpf   filterStage
}

// NewStereoFilter returns a filter with both stages bypassed.
func NewStereoFilter(sampleRate float64) *StereoFilter {
	return &StereoFilter{sampleRate: sampleRate, hpf: filterStage{highpass: true}}
}

// SetLowpass sets the lowpass cutoff in Hz and its resonance.
func (f *StereoFilter) SetLowpass(freq, q float64) { f.lpf.design(freq, q, f.sampleRate) }

// SetHighpass sets the highpass cutoff in Hz and its resonance.
func (f *StereoFilter) SetHighpass(freq, q float64) { f.hpf.design(freq, q, f.sampleRate) }

// Active reports whether either stage is running.
func (f *StereoFilter) Active() bool { return f.lpf.on || f.hpf.on }

// Process filters l and r in place.
func (f *StereoFilter) Process(l, r []float64) {
	if f.lpf.on {
		f.lpf.run(0, l)
		f.lpf.run(1, r)
	}

	if f.hpf.on {
		f.hpf.run(0, l)
		f.hpf.run(1, r)
	}
}
