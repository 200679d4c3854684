package automation

import (
	"cmp"
	"math"
	"slices"
)

// NoEvent is returned by ProcessCurrentPos when no node lies ahead.
const NoEvent = math.MaxInt32

// Node is one point on an automation curve. Interpolated describes the
// segment that ends at this node: when false the value of the previous
// node is held up to Pos, when true the curve ramps linearly into Value.
type Node struct {
	Pos          int32
	Value        int32
	Interpolated bool
}

// AutoParam is one parameter's value over loop time.
//
// The zero value is an unautomated parameter with value 0.
type AutoParam struct {
	// CurrentValue is the value rendering reads right now.
	CurrentValue int32
	// Increment is added per tick (or per sample) while a ramp plays.
	Increment int32

	nodes []Node
}

// IsAutomated reports whether the parameter has any node.
func (p *AutoParam) IsAutomated() bool { return len(p.nodes) > 0 }

// IsInterpolating reports whether ticking would move the current value.
func (p *AutoParam) IsInterpolating() bool { return p.Increment != 0 }

// NumNodes returns the number of nodes on the curve.
func (p *AutoParam) NumNodes() int { return len(p.nodes) }

// Nodes returns a copy of the curve.
func (p *AutoParam) Nodes() []Node { return slices.Clone(p.nodes) }

// SetNodes replaces the curve. Nodes are sorted by position; when two
// share a position the later one wins.
func (p *AutoParam) SetNodes(nodes ...Node) {
	sorted := slices.Clone(nodes)
	slices.SortStableFunc(sorted, func(a, b Node) int { return cmp.Compare(a.Pos, b.Pos) })
	out := sorted[:0]
	for i, n := range sorted {
		if i+1 < len(sorted) && sorted[i+1].Pos == n.Pos {
			continue
		}

		out = append(out, n)
	}

	p.nodes = out
}

// DeleteAutomation removes every node and stops any ramp.
func (p *AutoParam) DeleteAutomation() {
	p.nodes = nil
	p.Increment = 0
}

// SetCurrentValue sets the value directly, as a knob or incoming MIDI CC
// would, and cancels any ramp in progress.
func (p *AutoParam) SetCurrentValue(v int32) {
	p.CurrentValue = v
	p.Increment = 0
}

// ValueAt returns the curve's value at pos. Positions wrap at length;
// a non-positive length disables wrapping.
func (p *AutoParam) ValueAt(pos, length int32) int32 {
	if len(p.nodes) == 0 {
		return p.CurrentValue
	}

	length = effectiveLength(length)
	pos = wrap(pos, length)

	rightI := p.rightOf(pos)
	leftI := rightI - 1
	if leftI < 0 {
		leftI = len(p.nodes) - 1
	}

	left, right := p.nodes[leftI], p.nodes[rightI]
	if !right.Interpolated {
		return left.Value
	}

	leftPos, rightPos := int64(left.Pos), int64(right.Pos)
	if leftPos > int64(pos) {
		leftPos -= int64(length)
	}

	if rightPos <= int64(pos) {
		rightPos += int64(length)
	}

	span := rightPos - leftPos
	if span <= 0 {
		return left.Value
	}

	delta := int64(right.Value) - int64(left.Value)
	return int32(int64(left.Value) + delta*(int64(pos)-leftPos)/span)
}

// SetValueForRegion makes the curve hold value across [start, start+width),
// wrapping at length. Values outside the region are left as they were:
// the node closing the region keeps the value the curve had there, and a
// region starting inside a ramp first pins the ramp at start-1.
//
// A zero width is a no-op. A width covering the whole loop drops the
// automation and sets the current value instead.
func (p *AutoParam) SetValueForRegion(value, start, width, length int32) {
	if width <= 0 {
		return
	}

	if length <= 0 || width >= length {
		p.DeleteAutomation()
		p.CurrentValue = value

		return
	}

	start = wrap(start, length)
	endPos := wrap(start+width, length)
	endValue := p.ValueAt(endPos, length)

	if len(p.nodes) > 0 {
		guardPos := wrap(start-1, length)
		if guardPos != endPos && !p.hasNodeAt(guardPos) && p.nodes[p.rightOf(guardPos)].Interpolated {
			p.put(Node{Pos: guardPos, Value: p.ValueAt(guardPos, length), Interpolated: true})
		}
	}

	p.nodes = slices.DeleteFunc(p.nodes, func(n Node) bool {
		return wrap(n.Pos-start, length) < width
	})
	p.put(Node{Pos: start, Value: value})
	p.put(Node{Pos: endPos, Value: endValue})
}

// ProcessCurrentPos is called when playback reaches pos. It snaps the
// current value onto the curve, aims Increment at the next node if that
// node ramps, and returns the number of ticks until the next node.
func (p *AutoParam) ProcessCurrentPos(pos, length int32) (ticksTilNext int32, changed bool) {
	if len(p.nodes) == 0 {
		return NoEvent, false
	}

	length = effectiveLength(length)
	pos = wrap(pos, length)

	v := p.ValueAt(pos, length)
	changed = v != p.CurrentValue
	p.CurrentValue = v

	right := p.nodes[p.rightOf(pos)]
	ticksTilNext = right.Pos - pos
	if ticksTilNext <= 0 {
		ticksTilNext += length
	}

	if right.Interpolated {
		p.Increment = int32((int64(right.Value) - int64(v)) / int64(ticksTilNext))
	} else {
		p.Increment = 0
	}

	return ticksTilNext, changed
}

// GrabValueFromPos sets the current value from the curve at pos without
// starting a ramp. Used when playback jumps.
func (p *AutoParam) GrabValueFromPos(pos, length int32) bool {
	if len(p.nodes) == 0 {
		return false
	}

	v := p.ValueAt(pos, length)
	changed := v != p.CurrentValue
	p.CurrentValue = v
	p.Increment = 0

	return changed
}

// TickTicks advances the value by n ticks of Increment.
func (p *AutoParam) TickTicks(n int32) bool {
	return p.advance(int64(p.Increment) * int64(n))
}

// TickSamples advances the value by n samples of Increment.
func (p *AutoParam) TickSamples(n int32) bool {
	return p.advance(int64(p.Increment) * int64(n))
}

func (p *AutoParam) advance(delta int64) bool {
	if delta == 0 {
		return false
	}

	v := min(max(int64(p.CurrentValue)+delta, math.MinInt32), math.MaxInt32)
	changed := int32(v) != p.CurrentValue
	p.CurrentValue = int32(v)

	return changed
}

// rightOf returns the index of the node governing the segment that
// contains pos: the first node strictly after pos, wrapping to 0.
func (p *AutoParam) rightOf(pos int32) int {
	i := p.search(pos + 1)
	if i == len(p.nodes) {
		return 0
	}

	return i
}

// search returns the index of the first node at or after pos.
func (p *AutoParam) search(pos int32) int {
	i, _ := slices.BinarySearchFunc(p.nodes, pos, func(n Node, target int32) int {
		return cmp.Compare(n.Pos, target)
	})

	return i
}

func (p *AutoParam) hasNodeAt(pos int32) bool {
	_, found := slices.BinarySearchFunc(p.nodes, pos, func(n Node, target int32) int {
		return cmp.Compare(n.Pos, target)
	})

	return found
}

// put inserts n, replacing any node already at n.Pos.
func (p *AutoParam) put(n Node) {
	i, found := slices.BinarySearchFunc(p.nodes, n.Pos, func(e Node, target int32) int {
		return cmp.Compare(e.Pos, target)
	})
	if found {
		p.nodes[i] = n
		return
	}

	p.nodes = slices.Insert(p.nodes, i, n)
}

func effectiveLength(length int32) int32 {
	if length <= 0 {
		return math.MaxInt32
	}

	return length
}

func wrap(pos, length int32) int32 {
	pos %= length
	if pos < 0 {
		pos += length
	}

	return pos
}
