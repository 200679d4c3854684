package voice

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestEnvelopeRunsThroughStages(t *testing.T) {
	c := qt.New(t)
	shape := &Shape{Attack: 0.5, Hold: 2, Decay: 0.25, Sustain: 0.5, Release: 0.25}
	var e Envelope
	e.Start(0)

	now := uint32(0)
	step := func() float64 {
		now++
		return e.Step(shape, now)
	}
	c.Assert(step(), qt.Equals, 0.5)
	c.Assert(step(), qt.Equals, 1.0)
	c.Assert(e.Stage, qt.Equals, StageHold)
	step()
	step()
	c.Assert(e.Stage, qt.Equals, StageDecay)
	step()
	step()
	c.Assert(e.Stage, qt.Equals, StageSustain)
	c.Assert(e.Level, qt.Equals, 0.5)

	e.Release(now)
	c.Assert(e.Stage, qt.Equals, StageRelease)
	step()
	step()
	c.Assert(e.Stage, qt.Equals, StageOff)
	c.Assert(e.Level, qt.Equals, 0.0)
}

func TestEnvelopeInstantStages(t *testing.T) {
	c := qt.New(t)
	shape := &Shape{Sustain: 0.3}
	var e Envelope
	e.Start(0)
	e.Step(shape, 1)
	c.Assert(e.Level, qt.Equals, 1.0)
	e.Step(shape, 2)
	e.Step(shape, 3)
	c.Assert(e.Stage, qt.Equals, StageSustain)
	c.Assert(e.Level, qt.Equals, 0.3)
}

func TestFastReleaseNeedsARender(t *testing.T) {
	c := qt.New(t)
	v := &Voice{}
	v.NoteOn(60, 0, 1, 0)
	c.Assert(v.FastRelease(5, 0.1), qt.IsFalse)
	c.Assert(v.Env.Stage, qt.Equals, StageAttack)

	v.Rendered = true
	c.Assert(v.FastRelease(5, 0.1), qt.IsTrue)
	c.Assert(v.Env.Stage, qt.Equals, StageFastRelease)
	c.Assert(v.Env.EnteredAt, qt.Equals, uint32(5))

	// A second, faster request speeds the tail up without re-entering.
	v.FastRelease(9, 0.5)
	c.Assert(v.Env.FastReleaseStep, qt.Equals, 0.5)
	c.Assert(v.Env.EnteredAt, qt.Equals, uint32(5))
}

func TestRatingOrdering(t *testing.T) {
	c := qt.New(t)
	low := &fakeOwner{id: 1, priority: PriorityLow}
	high := &fakeOwner{id: 2, priority: PriorityHigh}

	mk := func(o Owner, stage Stage, entered uint32) *Voice {
		return &Voice{Owner: o, Env: Envelope{Stage: stage, EnteredAt: entered}}
	}
	const now = 10000

	sustainOld := mk(low, StageSustain, 100)
	sustainNew := mk(low, StageSustain, 9000)
	releasing := mk(low, StageRelease, 9900)
	highRelease := mk(high, StageRelease, 0)

	c.Assert(Rating(sustainOld, 2, now) > Rating(sustainNew, 2, now), qt.IsTrue)
	c.Assert(Rating(releasing, 2, now) > Rating(sustainOld, 2, now), qt.IsTrue)
	// Releasing beats sounding whatever the priority or voice count.
	c.Assert(Rating(highRelease, 1, now) > Rating(sustainOld, 7, now), qt.IsTrue)
	c.Assert(Rating(releasing, 1, now) > Rating(sustainNew, 7, now), qt.IsTrue)
	// Within a stage, lower priority goes first, then busier sounds.
	c.Assert(Rating(releasing, 2, now) > Rating(highRelease, 2, now), qt.IsTrue)
	c.Assert(Rating(sustainNew, 5, now) > Rating(sustainOld, 2, now), qt.IsTrue)
	// Voice counts above seven saturate.
	c.Assert(Rating(sustainNew, 7, now), qt.Equals, Rating(sustainNew, 30, now))
	// Time in stage saturates at 24 bits.
	ancient := mk(low, StageSustain, 0)
	c.Assert(Rating(ancient, 1, 1<<30)&0xFFFFFF, qt.Equals, uint32(0xFFFFFF))
}
