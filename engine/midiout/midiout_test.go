package midiout

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
)

type recordingSender struct {
	sent [][]byte
	fail map[int]bool
}

func (s *recordingSender) Send(data []byte) error {
	i := len(s.sent)
	s.sent = append(s.sent, append([]byte(nil), data...))
	if s.fail[i] {
		return errors.New("port closed")
	}
	return nil
}

type gateLog struct {
	changes []string
}

func (l *gateLog) SetGate(ch int, on bool) {
	s := "off"
	if on {
		s = "on"
	}
	l.changes = append(l.changes, string(rune('0'+ch))+s)
}

func TestBufferFlushesInOrder(t *testing.T) {
	c := qt.New(t)
	s := &recordingSender{}
	b := NewBuffer(s)
	c.Assert(b.Pending(), qt.IsFalse)

	b.Start()
	b.NoteOn(1, 60, 100)
	b.Clock()
	b.NoteOff(1, 60)
	b.Stop()
	b.Continue()
	c.Assert(b.Len(), qt.Equals, 6)

	c.Assert(b.Flush(), qt.IsNil)
	c.Assert(b.Pending(), qt.IsFalse)
	c.Assert(b.Sent(), qt.Equals, 6)
	c.Assert(s.sent, qt.HasLen, 6)
	c.Assert(s.sent[0], qt.DeepEquals, []byte{0xFA})
	c.Assert(s.sent[1], qt.DeepEquals, []byte{0x91, 60, 100})
	c.Assert(s.sent[2], qt.DeepEquals, []byte{0xF8})
	c.Assert(s.sent[3][0], qt.Equals, byte(0x81))
	c.Assert(s.sent[3][1], qt.Equals, byte(60))
	c.Assert(s.sent[4], qt.DeepEquals, []byte{0xFC})
	c.Assert(s.sent[5], qt.DeepEquals, []byte{0xFB})
}

func TestBufferFlushKeepsGoingAfterError(t *testing.T) {
	c := qt.New(t)
	s := &recordingSender{fail: map[int]bool{0: true}}
	b := NewBuffer(s)
	b.Clock()
	b.Clock()

	c.Assert(b.Flush(), qt.ErrorMatches, "cannot send .*: port closed")
	c.Assert(b.Sent(), qt.Equals, 1)
	c.Assert(b.Failed(), qt.Equals, 1)
	c.Assert(b.Pending(), qt.IsFalse)
}

func TestBufferWithoutSenderDiscards(t *testing.T) {
	c := qt.New(t)
	b := NewBuffer(nil)
	b.Clock()
	c.Assert(b.Flush(), qt.IsNil)
	c.Assert(b.Pending(), qt.IsFalse)
	c.Assert(b.Sent(), qt.Equals, 0)
}

func TestGatesSwitchOnAndOff(t *testing.T) {
	c := qt.New(t)
	log := &gateLog{}
	g, err := NewGates(2, 100, log)
	c.Assert(err, qt.IsNil)

	g.NoteOn(0)
	c.Assert(g.Pending(), qt.IsTrue)
	c.Assert(g.HoldOff(10), qt.Satisfies, func(v int32) bool { return v <= 0 })
	g.Update(10)
	c.Assert(g.On(0), qt.IsTrue)
	c.Assert(g.Pending(), qt.IsFalse)

	g.NoteOff(0)
	g.Update(50)
	c.Assert(g.On(0), qt.IsFalse)
	c.Assert(log.changes, qt.DeepEquals, []string{"0on", "0off"})
}

func TestGatesHonourMinimumOffTime(t *testing.T) {
	c := qt.New(t)
	log := &gateLog{}
	g, _ := NewGates(1, 100, log)

	g.NoteOn(0)
	g.Update(0)
	g.NoteOff(0)
	g.Update(1000)

	g.NoteOn(0)
	c.Assert(g.HoldOff(1040), qt.Equals, int32(60))
	g.Update(1040)
	c.Assert(g.On(0), qt.IsFalse)
	c.Assert(g.Pending(), qt.IsTrue)

	c.Assert(g.HoldOff(1100), qt.Equals, int32(0))
	g.Update(1100)
	c.Assert(g.On(0), qt.IsTrue)
	c.Assert(log.changes, qt.DeepEquals, []string{"0on", "0off", "0on"})
}

func TestGatesRetrigger(t *testing.T) {
	c := qt.New(t)
	log := &gateLog{}
	g, _ := NewGates(1, 10, log)

	g.NoteOn(0)
	g.Update(0)
	g.NoteOn(0)
	g.Update(500)
	c.Assert(g.On(0), qt.IsFalse)
	c.Assert(g.HoldOff(505), qt.Equals, int32(5))
	g.Update(510)
	c.Assert(g.On(0), qt.IsTrue)
	c.Assert(log.changes, qt.DeepEquals, []string{"0on", "0off", "0on"})
}

func TestGatesNoteOffCancelsPendingOn(t *testing.T) {
	c := qt.New(t)
	g, _ := NewGates(1, 10, nil)
	g.NoteOn(0)
	g.NoteOff(0)
	c.Assert(g.Pending(), qt.IsFalse)

	// Out of range channels are ignored.
	g.NoteOn(5)
	g.NoteOff(-1)
	c.Assert(g.Pending(), qt.IsFalse)
}

func TestOutputFlush(t *testing.T) {
	c := qt.New(t)
	s := &recordingSender{}
	g, _ := NewGates(1, 0, nil)
	o := NewOutput(NewBuffer(s), g)
	c.Assert(o.Pending(), qt.IsFalse)

	o.MIDI.Clock()
	c.Assert(o.MIDIPending(), qt.IsTrue)
	c.Assert(o.GatePending(), qt.IsFalse)
	o.Gates.NoteOn(0)
	c.Assert(o.GatePending(), qt.IsTrue)

	o.Flush(5)
	c.Assert(o.Pending(), qt.IsFalse)
	c.Assert(s.sent, qt.HasLen, 1)
	c.Assert(o.Gates.On(0), qt.IsTrue)
	c.Assert(o.Flushes(), qt.Equals, 1)

	empty := NewOutput(nil, nil)
	c.Assert(empty.Pending(), qt.IsFalse)
	c.Assert(empty.HoldOff(0), qt.Equals, int32(-1))
	empty.Flush(0)
}
