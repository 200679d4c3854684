package master

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// LevelMeter tracks smoothed RMS and peak levels per channel, one update
// per render window.
type LevelMeter struct {
	scratch []float64
	smooth  float64

	rmsL, rmsR   float64
	peakL, peakR float64
}

// NewLevelMeter returns a meter for windows of up to maxWindow samples.
// smooth in [0, 1) is the weight of the previous reading.
func NewLevelMeter(maxWindow int, smooth float64) (*LevelMeter, error) {
	if maxWindow <= 0 {
		return nil, fmt.Errorf("level meter window must be > 0: %d", maxWindow)
	}

	if smooth < 0 || smooth >= 1 || math.IsNaN(smooth) {
		return nil, fmt.Errorf("level meter smoothing must be in [0, 1): %f", smooth)
	}

	return &LevelMeter{scratch: make([]float64, maxWindow), smooth: smooth}, nil
}

// Process folds one window into the meter.
func (m *LevelMeter) Process(l, r []float64) {
	if len(l) == 0 {
		return
	}

	m.rmsL = m.smooth*m.rmsL + (1-m.smooth)*m.rms(l)
	m.rmsR = m.smooth*m.rmsR + (1-m.smooth)*m.rms(r)
	m.peakL = max(m.peakL*m.smooth, peak(l))
	m.peakR = max(m.peakR*m.smooth, peak(r))
}

func (m *LevelMeter) rms(buf []float64) float64 {
	var sum float64

	for start := 0; start < len(buf); start += len(m.scratch) {
		chunk := buf[start:min(start+len(m.scratch), len(buf))]
		sq := m.scratch[:len(chunk)]
		vecmath.MulBlock(sq, chunk, chunk)

		for _, v := range sq {
			sum += v
		}
	}

	return math.Sqrt(sum / float64(len(buf)))
}

func peak(buf []float64) float64 {
	var p float64
	for _, v := range buf {
		p = max(p, math.Abs(v))
	}

	return p
}

// RMS returns the smoothed RMS level per channel.
func (m *LevelMeter) RMS() (float64, float64) { return m.rmsL, m.rmsR }

// Peak returns the decaying peak level per channel.
func (m *LevelMeter) Peak() (float64, float64) { return m.peakL, m.peakR }

// Reset clears the readings.
func (m *LevelMeter) Reset() {
	m.rmsL, m.rmsR, m.peakL, m.peakR = 0, 0, 0, 0
}

// SpectrumMeter collects the mono sum of the master output and computes a
// Hann-windowed magnitude spectrum each time a frame fills.
type SpectrumMeter struct {
	size   int
	plan   *algofft.Plan[complex128]
	window []float64

	frame  []float64
	filled int

	windowed []float64
	in, out  []complex128
	re, im   []float64
	mags     []float64
	frames   int
}

// NewSpectrumMeter returns a meter with a size-point FFT. size must be a
// power of two of at least 16.
func NewSpectrumMeter(size int) (*SpectrumMeter, error) {
	if size < 16 || size&(size-1) != 0 {
		return nil, fmt.Errorf("spectrum size must be a power of two >= 16: %d", size)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum plan: %w", err)
	}

	win := make([]float64, size)
	for i := range win {
		win[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size))
	}

	bins := size/2 + 1

	return &SpectrumMeter{
		size:     size,
		plan:     plan,
		window:   win,
		frame:    make([]float64, size),
		windowed: make([]float64, size),
		in:       make([]complex128, size),
		out:      make([]complex128, size),
		re:       make([]float64, bins),
		im:       make([]float64, bins),
		mags:     make([]float64, bins),
	}, nil
}

// Process feeds one window. It returns true when a new spectrum is ready.
func (s *SpectrumMeter) Process(l, r []float64) bool {
	ready := false

	for i := range l {
		s.frame[s.filled] = 0.5 * (l[i] + r[i])

		s.filled++
		if s.filled == s.size {
			s.filled = 0
			if s.analyze() == nil {
				ready = true
			}
		}
	}

	return ready
}

func (s *SpectrumMeter) analyze() error {
	vecmath.MulBlock(s.windowed, s.frame, s.window)

	for i, v := range s.windowed {
		s.in[i] = complex(v, 0)
	}

	if err := s.plan.Forward(s.out, s.in); err != nil {
		return err
	}

	for k := range s.re {
		s.re[k] = real(s.out[k])
		s.im[k] = imag(s.out[k])
	}

	vecmath.Magnitude(s.mags, s.re, s.im)
	vecmath.ScaleBlock(s.mags, s.mags, 2/float64(s.size))
	s.frames++

	return nil
}

// Magnitudes returns the last spectrum, size/2+1 bins scaled so a
// full-scale sine at a bin centre reads about 0.5. The slice is reused.
func (s *SpectrumMeter) Magnitudes() []float64 { return s.mags }

// Frames returns the number of spectra computed.
func (s *SpectrumMeter) Frames() int { return s.frames }

// BinFrequency returns the centre frequency of bin k.
func (s *SpectrumMeter) BinFrequency(k int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(s.size)
}
