package hw

import (
	"fmt"

	"github.com/cwbudde/algo-synth/engine/ring"
)

// Interrupts is an InterruptController that records every mask change.
type Interrupts struct {
	enabled [numInterrupts]bool
	// Log holds one entry per Enable or Disable call.
	Log []MaskChange
}

// MaskChange records one Enable or Disable call.
type MaskChange struct {
	ID      InterruptID
	Enabled bool
}

// NewInterrupts returns a controller with every source enabled.
func NewInterrupts() *Interrupts {
	ic := &Interrupts{}
	for i := range ic.enabled {
		ic.enabled[i] = true
	}

	return ic
}

func (ic *Interrupts) Enable(id InterruptID) {
	ic.enabled[id] = true
	ic.Log = append(ic.Log, MaskChange{id, true})
}

func (ic *Interrupts) Disable(id InterruptID) {
	ic.enabled[id] = false
	ic.Log = append(ic.Log, MaskChange{id, false})
}

func (ic *Interrupts) IsEnabled(id InterruptID) bool { return ic.enabled[id] }

// Sim simulates the codec DMA, the interrupt controller and the MIDI/gate
// timer. Time only moves when Advance is called.
type Sim struct {
	Interrupts *Interrupts

	ring   ring.Ring
	tx, rx []Frame
	pos    ring.Cursor

	// Input produces the frame captured at each sample time. Nil captures
	// silence.
	Input func(t uint64) Frame

	elapsed uint64
	played  []Frame

	armed    bool
	due      uint64
	fire     func()
}

// NewSim returns a simulator whose DMA rings hold size frames.
func NewSim(size int) (*Sim, error) {
	r, err := ring.New(size)
	if err != nil {
		return nil, fmt.Errorf("hw: %w", err)
	}

	return &Sim{
		Interrupts: NewInterrupts(),
		ring:       r,
		tx:         make([]Frame, size),
		rx:         make([]Frame, size),
	}, nil
}

// Ring returns the DMA ring geometry.
func (s *Sim) Ring() ring.Ring { return s.ring }

// TX returns the transmit port.
func (s *Sim) TX() Port { return txPort{s} }

// RX returns the receive port.
func (s *Sim) RX() Port { return rxPort{s} }

// Timer returns the MIDI/gate timer.
func (s *Sim) Timer() Timer { return simTimer{s} }

// Elapsed returns the number of frames the DMA has moved.
func (s *Sim) Elapsed() uint64 { return s.elapsed }

// Advance moves the DMA n frames. It returns the frames sent to the codec;
// the slice is reused by the next call. The timer fires at its due frame
// unless its interrupt is masked, in which case it fires as soon as it is
// unmasked at a later frame.
func (s *Sim) Advance(n int) []Frame {
	s.played = s.played[:0]
	for range n {
		s.played = append(s.played, s.tx[s.pos])
		if s.Input != nil {
			s.rx[s.pos] = s.Input(s.elapsed)
		} else {
			s.rx[s.pos] = Frame{}
		}

		s.pos = s.ring.Advance(s.pos, 1)
		s.elapsed++
		s.checkTimer()
	}

	return s.played
}

func (s *Sim) checkTimer() {
	if !s.armed || s.elapsed < s.due || !s.Interrupts.IsEnabled(InterruptMIDIGate) {
		return
	}

	s.armed = false
	fire := s.fire
	s.fire = nil
	fire()
}

type txPort struct{ s *Sim }

func (p txPort) Frames() []Frame       { return p.s.tx }
func (p txPort) Position() ring.Cursor { return p.s.pos }

type rxPort struct{ s *Sim }

func (p rxPort) Frames() []Frame       { return p.s.rx }
func (p rxPort) Position() ring.Cursor { return p.s.pos }

type simTimer struct{ s *Sim }

func (t simTimer) Arm(samples int, fire func()) {
	t.s.armed = true
	t.s.due = t.s.elapsed + uint64(max(samples, 0))
	t.s.fire = fire
}

func (t simTimer) Armed() bool { return t.s.armed }
