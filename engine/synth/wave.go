package synth

import "math"

// Wave is an oscillator waveform.
type Wave uint8

// Waveforms.
const (
	WaveSine Wave = iota
	WaveSaw
	WaveSquare
	WaveTriangle
)

var waveNames = [...]string{"sine", "saw", "square", "triangle"}

func (w Wave) String() string {
	if int(w) < len(waveNames) {
		return waveNames[w]
	}

	return "unknown"
}

// ParseWave returns the waveform named s.
func ParseWave(s string) (Wave, bool) {
	for i, n := range waveNames {
		if n == s {
			return Wave(i), true
		}
	}

	return WaveSine, false
}

// sample returns the waveform at phase in [0, 1).
func (w Wave) sample(phase float64) float64 {
	switch w {
	case WaveSaw:
		return 2*phase - 1
	case WaveSquare:
		if phase < 0.5 {
			return 1
		}

		return -1
	case WaveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}

		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
