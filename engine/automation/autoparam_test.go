package automation

import (
	"math"
	"math/rand/v2"
	"testing"

	qt "github.com/frankban/quicktest"
)

const testLength = 2000

func rampParam() *AutoParam {
	p := &AutoParam{}
	p.SetNodes(
		Node{Pos: 0, Value: 0, Interpolated: true},
		Node{Pos: 1000, Value: 1000, Interpolated: true},
	)
	return p
}

func TestValueAtUnautomatedReturnsCurrent(t *testing.T) {
	c := qt.New(t)
	p := &AutoParam{CurrentValue: 42}
	c.Assert(p.ValueAt(123, testLength), qt.Equals, int32(42))
	c.Assert(p.IsAutomated(), qt.IsFalse)
}

func TestValueAtHoldAndInterpolate(t *testing.T) {
	c := qt.New(t)
	p := &AutoParam{}
	p.SetNodes(
		Node{Pos: 100, Value: 10},
		Node{Pos: 200, Value: 20},
		Node{Pos: 300, Value: 40, Interpolated: true},
	)
	tests := []struct {
		pos  int32
		want int32
	}{
		{100, 10},
		{150, 10},
		{199, 10},
		{200, 20},
		{250, 30},
		{300, 40},
		// Wrapped hold from the last node back to the first.
		{1999, 40},
		{50, 40},
		// Beyond the loop length wraps.
		{testLength + 250, 30},
	}
	for _, tt := range tests {
		c.Assert(p.ValueAt(tt.pos, testLength), qt.Equals, tt.want, qt.Commentf("pos %d", tt.pos))
	}
}

func TestValueAtInterpolatesAcrossLoopEnd(t *testing.T) {
	c := qt.New(t)
	p := &AutoParam{}
	p.SetNodes(
		Node{Pos: 100, Value: 100, Interpolated: true},
		Node{Pos: 1900, Value: 0},
	)
	// Segment 1900 -> 100 (wrapping) ramps from 0 to 100 over 200 ticks.
	c.Assert(p.ValueAt(0, testLength), qt.Equals, int32(50))
	c.Assert(p.ValueAt(1950, testLength), qt.Equals, int32(25))
	c.Assert(p.ValueAt(1000, testLength), qt.Equals, int32(100))
}

func TestSetNodesSortsAndDeduplicates(t *testing.T) {
	c := qt.New(t)
	p := &AutoParam{}
	p.SetNodes(Node{Pos: 30, Value: 3}, Node{Pos: 10, Value: 1}, Node{Pos: 30, Value: 4})
	c.Assert(p.Nodes(), qt.DeepEquals, []Node{{Pos: 10, Value: 1}, {Pos: 30, Value: 4}})
}

func TestExampleRampSpotWrite(t *testing.T) {
	c := qt.New(t)
	p := rampParam()
	c.Assert(p.ValueAt(500, testLength), qt.Equals, int32(500))

	p.SetValueForRegion(999, 500, 3, testLength)

	c.Assert(p.ValueAt(0, testLength), qt.Equals, int32(0))
	c.Assert(p.ValueAt(999, testLength), qt.Equals, int32(999))
	for pos := int32(500); pos <= 502; pos++ {
		c.Assert(p.ValueAt(pos, testLength), qt.Equals, int32(999), qt.Commentf("pos %d", pos))
	}
	c.Assert(p.ValueAt(499, testLength), qt.Equals, int32(499))
	c.Assert(p.ValueAt(503, testLength), qt.Equals, int32(503))
}

func TestSetValueForRegionZeroWidthIsNoOp(t *testing.T) {
	c := qt.New(t)
	p := rampParam()
	before := p.Nodes()
	p.SetValueForRegion(7, 300, 0, testLength)
	c.Assert(p.Nodes(), qt.DeepEquals, before)
}

func TestSetValueForRegionWholeLoopClearsAutomation(t *testing.T) {
	c := qt.New(t)
	p := rampParam()
	p.SetValueForRegion(77, 10, testLength, testLength)
	c.Assert(p.IsAutomated(), qt.IsFalse)
	c.Assert(p.CurrentValue, qt.Equals, int32(77))
	c.Assert(p.ValueAt(1234, testLength), qt.Equals, int32(77))
}

func TestSetValueForRegionOnUnautomatedParam(t *testing.T) {
	c := qt.New(t)
	p := &AutoParam{CurrentValue: 5}
	p.SetValueForRegion(9, 100, 50, testLength)
	c.Assert(p.Nodes(), qt.DeepEquals, []Node{{Pos: 100, Value: 9}, {Pos: 150, Value: 5}})
	c.Assert(p.ValueAt(99, testLength), qt.Equals, int32(5))
	c.Assert(p.ValueAt(120, testLength), qt.Equals, int32(9))
	c.Assert(p.ValueAt(150, testLength), qt.Equals, int32(5))
}

func TestSetValueForRegionWraps(t *testing.T) {
	c := qt.New(t)
	p := &AutoParam{CurrentValue: 1}
	p.SetValueForRegion(8, 1990, 20, testLength)
	for _, pos := range []int32{1990, 1999, 0, 9} {
		c.Assert(p.ValueAt(pos, testLength), qt.Equals, int32(8), qt.Commentf("pos %d", pos))
	}
	c.Assert(p.ValueAt(10, testLength), qt.Equals, int32(1))
	c.Assert(p.ValueAt(1989, testLength), qt.Equals, int32(1))
}

func TestSetValueForRegionNeverDuplicatesPositions(t *testing.T) {
	c := qt.New(t)
	rng := rand.New(rand.NewPCG(1, 2))
	p := rampParam()
	for range 200 {
		p.SetValueForRegion(rng.Int32N(1000), rng.Int32N(testLength), 1+rng.Int32N(100), testLength)
		nodes := p.Nodes()
		for i := 1; i < len(nodes); i++ {
			c.Assert(nodes[i].Pos > nodes[i-1].Pos, qt.IsTrue, qt.Commentf("nodes %v", nodes))
		}
	}
}

func TestLastWriteWinsForDisjointRegions(t *testing.T) {
	c := qt.New(t)
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := range 50 {
		p := rampParam()
		type region struct{ start, width, value int32 }
		var regions []region
		// Carve the loop into slots so regions never overlap.
		for slot := int32(0); slot < testLength; slot += 100 {
			if rng.IntN(2) == 0 {
				continue
			}
			r := region{start: slot + rng.Int32N(40), width: 1 + rng.Int32N(50), value: rng.Int32N(5000) - 2500}
			regions = append(regions, r)
		}
		rng.Shuffle(len(regions), func(i, j int) { regions[i], regions[j] = regions[j], regions[i] })
		for _, r := range regions {
			p.SetValueForRegion(r.value, r.start, r.width, testLength)
		}
		for _, r := range regions {
			for pos := r.start; pos < r.start+r.width; pos++ {
				c.Assert(p.ValueAt(pos, testLength), qt.Equals, r.value, qt.Commentf("trial %d pos %d", trial, pos))
			}
		}
	}
}

func TestSpotWriteDoesNotChangeNeighbours(t *testing.T) {
	c := qt.New(t)
	rng := rand.New(rand.NewPCG(3, 5))
	for trial := range 100 {
		p := &AutoParam{}
		p.SetNodes(
			Node{Pos: 0, Value: rng.Int32N(100000) - 50000, Interpolated: true},
			Node{Pos: 700, Value: rng.Int32N(100000) - 50000, Interpolated: true},
			Node{Pos: 1500, Value: rng.Int32N(100000) - 50000, Interpolated: true},
		)
		before := make([]int32, testLength)
		for pos := range before {
			before[pos] = p.ValueAt(int32(pos), testLength)
		}
		spot := 1 + rng.Int32N(testLength-2)
		p.SetValueForRegion(123456, spot, 1, testLength)
		for pos := range before {
			if int32(pos) == spot {
				c.Assert(p.ValueAt(spot, testLength), qt.Equals, int32(123456))
				continue
			}
			diff := p.ValueAt(int32(pos), testLength) - before[pos]
			if diff < 0 {
				diff = -diff
			}
			c.Assert(diff <= 1, qt.IsTrue, qt.Commentf("trial %d spot %d pos %d diff %d", trial, spot, pos, diff))
		}
	}
}

func TestProcessCurrentPosSetsIncrementAndReturnsTicks(t *testing.T) {
	c := qt.New(t)
	p := rampParam()
	ticks, changed := p.ProcessCurrentPos(0, testLength)
	c.Assert(ticks, qt.Equals, int32(1000))
	c.Assert(changed, qt.IsFalse)
	c.Assert(p.Increment, qt.Equals, int32(1))

	c.Assert(p.TickTicks(250), qt.IsTrue)
	c.Assert(p.CurrentValue, qt.Equals, int32(250))

	// From 1000 the next node is 0, reached by wrapping, and it ramps down.
	ticks, changed = p.ProcessCurrentPos(1000, testLength)
	c.Assert(ticks, qt.Equals, int32(1000))
	c.Assert(changed, qt.IsTrue)
	c.Assert(p.CurrentValue, qt.Equals, int32(1000))
	c.Assert(p.Increment, qt.Equals, int32(-1))
}

func TestProcessCurrentPosWithoutNodes(t *testing.T) {
	c := qt.New(t)
	p := &AutoParam{CurrentValue: 3}
	ticks, changed := p.ProcessCurrentPos(10, testLength)
	c.Assert(ticks, qt.Equals, int32(NoEvent))
	c.Assert(changed, qt.IsFalse)
}

func TestTickSaturates(t *testing.T) {
	c := qt.New(t)
	p := &AutoParam{CurrentValue: math.MaxInt32 - 5, Increment: 10}
	c.Assert(p.TickSamples(3), qt.IsTrue)
	c.Assert(p.CurrentValue, qt.Equals, int32(math.MaxInt32))
	c.Assert(p.TickSamples(3), qt.IsFalse)

	p = &AutoParam{CurrentValue: math.MinInt32 + 1, Increment: -4}
	p.TickTicks(1)
	c.Assert(p.CurrentValue, qt.Equals, int32(math.MinInt32))
}

func TestSetCurrentValueStopsRamp(t *testing.T) {
	c := qt.New(t)
	p := &AutoParam{Increment: 5}
	p.SetCurrentValue(9)
	c.Assert(p.IsInterpolating(), qt.IsFalse)
	c.Assert(p.TickSamples(100), qt.IsFalse)
	c.Assert(p.CurrentValue, qt.Equals, int32(9))
}

func TestGrabValueFromPos(t *testing.T) {
	c := qt.New(t)
	p := rampParam()
	p.Increment = 3
	c.Assert(p.GrabValueFromPos(400, testLength), qt.IsTrue)
	c.Assert(p.CurrentValue, qt.Equals, int32(400))
	c.Assert(p.Increment, qt.Equals, int32(0))
}
