package hw

import "github.com/cwbudde/algo-synth/engine/ring"

// InterruptID names an interrupt source.
type InterruptID int

// Interrupt sources the engine masks.
const (
	InterruptMIDIGate InterruptID = iota
	InterruptAudioDMA
	InterruptUART
	numInterrupts
)

// InterruptController masks and unmasks interrupt sources.
type InterruptController interface {
	Enable(id InterruptID)
	Disable(id InterruptID)
	IsEnabled(id InterruptID) bool
}

// Frame is one stereo sample as exchanged with the codec. Full scale is
// the full int32 range; the codec uses the top 24 bits.
type Frame struct {
	L, R int32
}

// Port is one direction of the DMA ring. Frames returns the ring's backing
// store and Position the frame the DMA engine will touch next.
type Port interface {
	Frames() []Frame
	Position() ring.Cursor
}

// Timer is a one-shot timer counting in samples.
type Timer interface {
	// Arm schedules fire to run once after samples frames. Arming an armed
	// timer replaces the pending shot.
	Arm(samples int, fire func())
	Armed() bool
}

// Section masks a fixed set of interrupt sources around a critical
// region. It is not safe for concurrent use.
type Section struct {
	ic    InterruptController
	ids   []InterruptID
	saved []InterruptID
}

// NewSection returns a Section masking ids on ic.
func NewSection(ic InterruptController, ids ...InterruptID) *Section {
	return &Section{
		ic:    ic,
		ids:   append([]InterruptID(nil), ids...),
		saved: make([]InterruptID, 0, len(ids)),
	}
}

// IDs returns the sources the section masks.
func (s *Section) IDs() []InterruptID { return s.ids }

// Run calls fn with every source of the section masked. Afterwards it
// re-enables exactly the sources that were enabled on entry, even if fn
// panics.
func (s *Section) Run(fn func()) {
	s.saved = s.saved[:0]
	for _, id := range s.ids {
		if s.ic.IsEnabled(id) {
			s.saved = append(s.saved, id)
		}

		s.ic.Disable(id)
	}

	defer func() {
		for _, id := range s.saved {
			s.ic.Enable(id)
		}
	}()

	fn()
}
