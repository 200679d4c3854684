package master

import (
	"fmt"
	"math"
)

// Sidechain turns drum hits into a ducking gain for the reverb. Each hit
// pushes an envelope up; the envelope attacks and releases with one-pole
// coefficients evaluated once per render window.
type Sidechain struct {
	sampleRate   float64
	attackCoeff  float64
	releaseCoeff float64
	depth        float64

	target   float64
	envelope float64
}

// NewSidechain returns a sidechain with the given attack and release times
// in milliseconds and a ducking depth in [0, 1].
func NewSidechain(sampleRate, attackMs, releaseMs, depth float64) (*Sidechain, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("sidechain sample rate must be > 0 and finite: %f", sampleRate)
	}

	s := &Sidechain{sampleRate: sampleRate}
	if err := s.SetTimes(attackMs, releaseMs); err != nil {
		return nil, err
	}

	if err := s.SetDepth(depth); err != nil {
		return nil, err
	}

	return s, nil
}

// SetTimes sets attack and release times in milliseconds.
func (s *Sidechain) SetTimes(attackMs, releaseMs float64) error {
	if attackMs <= 0 || math.IsNaN(attackMs) || math.IsInf(attackMs, 0) {
		return fmt.Errorf("sidechain attack must be > 0 and finite: %f", attackMs)
	}

	if releaseMs <= 0 || math.IsNaN(releaseMs) || math.IsInf(releaseMs, 0) {
		return fmt.Errorf("sidechain release must be > 0 and finite: %f", releaseMs)
	}

	s.attackCoeff = math.Ln2 / (attackMs * 0.001 * s.sampleRate)
	s.releaseCoeff = math.Ln2 / (releaseMs * 0.001 * s.sampleRate)

	return nil
}

// SetDepth sets how far a full-strength hit ducks, in [0, 1].
func (s *Sidechain) SetDepth(depth float64) error {
	if depth < 0 || depth > 1 || math.IsNaN(depth) {
		return fmt.Errorf("sidechain depth must be in [0, 1]: %f", depth)
	}

	s.depth = depth

	return nil
}

// Hit registers a trigger of the given strength in [0, 1].
func (s *Sidechain) Hit(strength float64) {
	s.target = max(s.target, min(max(strength, 0), 1))
}

// Render advances the envelope by numSamples and returns the gain to apply
// to the ducked signal for that window.
func (s *Sidechain) Render(numSamples int, hit float64) float64 {
	if hit > 0 {
		s.Hit(hit)
	}

	n := float64(numSamples)
	if s.target > s.envelope {
		s.envelope += (s.target - s.envelope) * (1 - math.Exp(-s.attackCoeff*n))
		if s.target-s.envelope < 1e-3 {
			s.envelope = s.target
		}

		if s.envelope >= s.target {
			s.target = 0
		}
	} else {
		s.target = 0
		s.envelope *= math.Exp(-s.releaseCoeff * n)
	}

	return 1 - s.depth*s.envelope
}

// Envelope returns the current envelope level.
func (s *Sidechain) Envelope() float64 { return s.envelope }
