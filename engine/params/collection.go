package params

import "github.com/cwbudde/algo-synth/engine/automation"

// Listener is told about changes a collection makes to its parameters.
// The owner uses it to recompute anything derived from parameter values.
type Listener interface {
	// ParamValueChanged reports that parameter i now renders a new value.
	ParamValueChanged(i int)
	// AutomationStateChanged reports that parameter i gained its first
	// node or lost its last one.
	AutomationStateChanged(i int, automated bool)
}

// Collection is the tick/advance protocol the render path drives once
// per window. Implementations visit only the parameters flagged for the
// sweep in question.
type Collection interface {
	ProcessCurrentPos(pos, length int32) int32
	TickSamples(n int32)
	TickTicks(n int32)
	SetPlayPos(pos, length int32)
	PlaybackHasEnded()
}

// collection holds the AutoParams and the two bitsets shared by ParamSet
// and PatchCableSet.
type collection struct {
	params        []automation.AutoParam
	automated     FlagSet
	interpolating FlagSet
	listener      Listener
	visited       int
}

func newCollection(n int, l Listener) collection {
	return collection{
		params:        make([]automation.AutoParam, n),
		automated:     NewFlagSet(n),
		interpolating: NewFlagSet(n),
		listener:      l,
	}
}

// Param returns parameter i for reading. Callers that mutate it directly
// must call NotifyParamModified afterwards.
func (c *collection) Param(i int) *automation.AutoParam { return &c.params[i] }

// Value returns the current value of parameter i.
func (c *collection) Value(i int) int32 { return c.params[i].CurrentValue }

// IsAutomated reports whether parameter i has automation.
func (c *collection) IsAutomated(i int) bool { return c.automated.Has(i) }

// IsInterpolating reports whether parameter i is mid-ramp.
func (c *collection) IsInterpolating(i int) bool { return c.interpolating.Has(i) }

// NumAutomated returns how many parameters carry automation.
func (c *collection) NumAutomated() int { return c.automated.Count() }

// Visited returns how many parameters the most recent sweep touched.
func (c *collection) Visited() int { return c.visited }

// SetValue sets parameter i as live input would.
func (c *collection) SetValue(i int, v int32) {
	p := &c.params[i]
	changed := p.CurrentValue != v
	p.SetCurrentValue(v)
	c.NotifyParamModified(i)
	if changed {
		c.valueChanged(i)
	}
}

// SetNodes replaces the automation of parameter i.
func (c *collection) SetNodes(i int, nodes ...automation.Node) {
	c.params[i].SetNodes(nodes...)
	c.NotifyParamModified(i)
}

// SetValueForRegion writes value over a region of parameter i's curve.
func (c *collection) SetValueForRegion(i int, value, start, width, length int32) {
	c.params[i].SetValueForRegion(value, start, width, length)
	c.NotifyParamModified(i)
}

// NotifyParamModified resynchronises both flags of parameter i with its
// state and tells the listener if the automated flag flipped.
func (c *collection) NotifyParamModified(i int) {
	p := &c.params[i]
	c.interpolating.SetTo(i, p.IsInterpolating())
	automated := p.IsAutomated()
	if automated == c.automated.Has(i) {
		return
	}

	c.automated.SetTo(i, automated)
	if c.listener != nil {
		c.listener.AutomationStateChanged(i, automated)
	}
}

// ProcessCurrentPos snaps every automated parameter to the curve at pos
// and returns the fewest ticks until any of them reaches its next node.
func (c *collection) ProcessCurrentPos(pos, length int32) int32 {
	c.visited = 0
	next := int32(automation.NoEvent)
	for i := range c.automated.All() {
		c.visited++
		p := &c.params[i]
		ticks, changed := p.ProcessCurrentPos(pos, length)
		c.interpolating.SetTo(i, p.IsInterpolating())
		if changed {
			c.valueChanged(i)
		}

		next = min(next, ticks)
	}

	return next
}

// TickSamples advances every interpolating parameter by n samples.
func (c *collection) TickSamples(n int32) {
	c.visited = 0
	for i := range c.interpolating.All() {
		c.visited++
		if c.params[i].TickSamples(n) {
			c.valueChanged(i)
		}
	}
}

// TickTicks advances every interpolating parameter by n ticks.
func (c *collection) TickTicks(n int32) {
	c.visited = 0
	for i := range c.interpolating.All() {
		c.visited++
		if c.params[i].TickTicks(n) {
			c.valueChanged(i)
		}
	}
}

// SetPlayPos grabs every automated parameter's value at pos after a jump.
func (c *collection) SetPlayPos(pos, length int32) {
	c.visited = 0
	for i := range c.automated.All() {
		c.visited++
		if c.params[i].GrabValueFromPos(pos, length) {
			c.valueChanged(i)
		}

		c.interpolating.Clear(i)
	}
}

// PlaybackHasEnded stops every ramp in progress.
func (c *collection) PlaybackHasEnded() {
	c.visited = 0
	for i := range c.interpolating.All() {
		c.visited++
		c.params[i].Increment = 0
		c.interpolating.Clear(i)
	}
}

func (c *collection) valueChanged(i int) {
	if c.listener != nil {
		c.listener.ParamValueChanged(i)
	}
}
