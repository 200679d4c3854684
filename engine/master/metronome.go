package master

import "math"

const (
	metronomeFreq       = 1000.0
	metronomeAccentFreq = 2000.0
	metronomeDecayMs    = 15.0
)

// Metronome renders a short decaying sine click on each beat.
type Metronome struct {
	sampleRate float64
	volume     float64
	decay      float64

	phase     float64
	increment float64
	amplitude float64
}

// NewMetronome returns a silent metronome.
func NewMetronome(sampleRate float64) *Metronome {
	return &Metronome{
		sampleRate: sampleRate,
		decay:      math.Exp(-1 / (metronomeDecayMs * 0.001 * sampleRate)),
	}
}

// SetVolume sets the click level in [0, 1].
func (m *Metronome) SetVolume(v float64) { m.volume = min(max(v, 0), 1) }

// Trigger starts a click. Accented clicks are higher and louder.
func (m *Metronome) Trigger(accent bool) {
	freq, amp := metronomeFreq, 0.5
	if accent {
		freq, amp = metronomeAccentFreq, 1
	}

	m.phase = 0
	m.increment = 2 * math.Pi * freq / m.sampleRate
	m.amplitude = amp
}

// Sounding reports whether a click is still audible.
func (m *Metronome) Sounding() bool { return m.amplitude > 1e-4 }

// Render adds the click to l and r.
func (m *Metronome) Render(l, r []float64) {
	if !m.Sounding() || m.volume == 0 {
		m.amplitude *= math.Pow(m.decay, float64(len(l)))
		return
	}

	for i := range l {
		v := m.volume * m.amplitude * math.Sin(m.phase)
		l[i] += v
		r[i] += v
		m.phase += m.increment
		m.amplitude *= m.decay
	}
}
