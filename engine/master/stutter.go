package master

import "fmt"

// Stutter captures a short slice of the master output and loops it until
// released.
type Stutter struct {
	bufL, bufR []float64
	length     int
	pos        int
	recording  bool
	active     bool
}

// NewStutter returns a stutter able to loop up to maxLength samples.
func NewStutter(maxLength int) (*Stutter, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("stutter length must be > 0: %d", maxLength)
	}

	return &Stutter{
		bufL: make([]float64, maxLength),
		bufR: make([]float64, maxLength),
	}, nil
}

// Begin starts capturing length samples, which are then looped.
func (s *Stutter) Begin(length int) {
	s.length = min(max(length, 1), len(s.bufL))
	s.pos = 0
	s.recording = true
	s.active = true
}

// End stops looping.
func (s *Stutter) End() {
	s.active = false
	s.recording = false
}

// Active reports whether the stutter is capturing or looping.
func (s *Stutter) Active() bool { return s.active }

// Process passes audio through while capturing and replaces it with the
// loop afterwards.
func (s *Stutter) Process(l, r []float64) {
	if !s.active {
		return
	}

	for i := range l {
		if s.recording {
			s.bufL[s.pos], s.bufR[s.pos] = l[i], r[i]
		} else {
			l[i], r[i] = s.bufL[s.pos], s.bufR[s.pos]
		}

		s.pos++
		if s.pos == s.length {
			s.pos = 0
			s.recording = false
		}
	}
}
