package midiout

import "github.com/juju/loggo"

var logger = loggo.GetLogger("algosynth.midiout")

// Output groups the MIDI buffer and the gates that are flushed together
// by the engine's timer.
type Output struct {
	MIDI  *Buffer
	Gates *Gates

	flushes int
}

// NewOutput returns an Output. Either part may be nil.
func NewOutput(m *Buffer, g *Gates) *Output {
	return &Output{MIDI: m, Gates: g}
}

// MIDIPending reports whether MIDI messages are queued.
func (o *Output) MIDIPending() bool { return o.MIDI != nil && o.MIDI.Pending() }

// GatePending reports whether gate changes are queued.
func (o *Output) GatePending() bool { return o.Gates != nil && o.Gates.Pending() }

// Pending reports whether anything is queued.
func (o *Output) Pending() bool { return o.MIDIPending() || o.GatePending() }

// HoldOff returns the samples to wait before a flush may apply every
// queued gate switch-on.
func (o *Output) HoldOff(now uint32) int32 {
	if o.Gates == nil {
		return -1
	}

	return o.Gates.HoldOff(now)
}

// Flush sends queued MIDI and applies gate changes at sample time now.
// Send errors are logged; MIDI output is best effort.
func (o *Output) Flush(now uint32) {
	o.flushes++

	if o.MIDI != nil {
		if err := o.MIDI.Flush(); err != nil {
			logger.Warningf("midi flush: %v", err)
		}
	}

	if o.Gates != nil {
		o.Gates.Update(now)
	}
}

// Flushes returns the number of Flush calls.
func (o *Output) Flushes() int { return o.flushes }
