package midiout

import "fmt"

// GateWriter drives the analog gate outputs.
type GateWriter interface {
	SetGate(channel int, on bool)
}

type gate struct {
	on         bool
	pendingOn  bool
	pendingOff bool
	hasOff     bool
	offAt      uint32
}

// Gates holds pending gate changes. A gate that has just switched off must
// stay off for a minimum time before it may switch on again, so that
// retriggered notes are seen by the receiving module.
type Gates struct {
	out    GateWriter
	minOff uint32
	gates  []gate
}

// NewGates returns n gate channels with the given minimum off time in
// samples.
func NewGates(n int, minOff uint32, out GateWriter) (*Gates, error) {
	if n < 0 {
		return nil, fmt.Errorf("gate count must be >= 0: %d", n)
	}

	return &Gates{out: out, minOff: minOff, gates: make([]gate, n)}, nil
}

// Len returns the number of gate channels.
func (g *Gates) Len() int { return len(g.gates) }

// On reports whether a channel's gate is currently high.
func (g *Gates) On(ch int) bool { return g.valid(ch) && g.gates[ch].on }

// NoteOn queues a gate switching on. Retriggering a high gate queues a
// switch-off first.
func (g *Gates) NoteOn(ch int) {
	if !g.valid(ch) {
		return
	}

	gt := &g.gates[ch]
	if gt.on {
		gt.pendingOff = true
	}

	gt.pendingOn = true
}

// NoteOff queues a gate switching off. It cancels a note-on queued in the
// same window.
func (g *Gates) NoteOff(ch int) {
	if !g.valid(ch) {
		return
	}

	gt := &g.gates[ch]
	gt.pendingOn = false

	if gt.on {
		gt.pendingOff = true
	}
}

// Pending reports whether any change is queued.
func (g *Gates) Pending() bool {
	for i := range g.gates {
		if g.gates[i].pendingOn || g.gates[i].pendingOff {
			return true
		}
	}

	return false
}

// HoldOff returns how many samples from now must pass before every queued
// note-on on a low gate is allowed, or a value <= 0 if they may fire now.
func (g *Gates) HoldOff(now uint32) int32 {
	hold := int32(-1 << 30)

	for i := range g.gates {
		gt := &g.gates[i]
		if gt.pendingOn && !gt.pendingOff && !gt.on && gt.hasOff {
			hold = max(hold, int32(gt.offAt+g.minOff-now))
		}
	}

	return hold
}

// Update applies queued changes at sample time now. Switch-offs happen
// first; switch-ons still inside their minimum off time stay queued.
func (g *Gates) Update(now uint32) {
	for i := range g.gates {
		gt := &g.gates[i]
		if gt.pendingOff {
			gt.pendingOff = false
			gt.on = false
			gt.hasOff = true
			gt.offAt = now
			g.write(i, false)
		}

		if gt.pendingOn && (!gt.hasOff || now-gt.offAt >= g.minOff) {
			gt.pendingOn = false
			gt.on = true
			g.write(i, true)
		}
	}
}

func (g *Gates) write(ch int, on bool) {
	if g.out != nil {
		g.out.SetGate(ch, on)
	}
}

func (g *Gates) valid(ch int) bool { return ch >= 0 && ch < len(g.gates) }
