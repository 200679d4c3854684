package params

import "github.com/cwbudde/algo-synth/engine/automation"

// Source identifies a modulation source a patch cable reads from.
type Source uint8

// Modulation sources.
const (
	SourceVelocity Source = iota
	SourceNote
	SourceEnvelope
	SourceLFO
	SourceAftertouch
	SourceRandom
	NumSources
)

// Cable routes a source into a destination parameter. Its depth is the
// cable's own AutoParam in the PatchCableSet.
type Cable struct {
	Source      Source
	Destination int
}

// RoutingListener is an optional extension of Listener for owners that
// rebuild their modulation routing when cables appear or disappear.
type RoutingListener interface {
	RoutingChanged()
}

// PatchCableSet is a fixed-capacity table of patch cables whose depths
// are automatable.
type PatchCableSet struct {
	collection
	cables []Cable
}

// NewPatchCableSet returns an empty set with room for capacity cables.
func NewPatchCableSet(capacity int, l Listener) *PatchCableSet {
	return &PatchCableSet{
		collection: newCollection(capacity, l),
		cables:     make([]Cable, 0, capacity),
	}
}

// Len returns the number of cables in use.
func (s *PatchCableSet) Len() int { return len(s.cables) }

// Cable returns cable i.
func (s *PatchCableSet) Cable(i int) Cable { return s.cables[i] }

// Depth returns the current depth of cable i.
func (s *PatchCableSet) Depth(i int) int32 { return s.params[i].CurrentValue }

// Find returns the index of the cable from src to dst, or -1.
func (s *PatchCableSet) Find(src Source, dst int) int {
	for i, c := range s.cables {
		if c.Source == src && c.Destination == dst {
			return i
		}
	}

	return -1
}

// AddCable routes src into dst at depth, or updates the depth of an
// existing route. It returns false when the table is full.
func (s *PatchCableSet) AddCable(src Source, dst int, depth int32) (int, bool) {
	if i := s.Find(src, dst); i >= 0 {
		s.SetValue(i, depth)
		return i, true
	}

	if len(s.cables) == cap(s.cables) {
		return -1, false
	}

	i := len(s.cables)
	s.cables = append(s.cables, Cable{Source: src, Destination: dst})
	s.params[i] = automation.AutoParam{CurrentValue: depth}
	s.NotifyParamModified(i)
	s.routingChanged()

	return i, true
}

// SetValue sets the depth of cable i. A cable left at zero depth with no
// automation is removed.
func (s *PatchCableSet) SetValue(i int, depth int32) {
	wasZero := s.params[i].CurrentValue == 0
	s.collection.SetValue(i, depth)
	if wasZero != (depth == 0) {
		s.routingChanged()
	}

	s.DeleteCableIfUnused(i)
}

// DeleteCableIfUnused removes cable i if its depth is zero and it carries
// no automation. The last cable moves into slot i, flags included.
func (s *PatchCableSet) DeleteCableIfUnused(i int) bool {
	p := &s.params[i]
	if p.CurrentValue != 0 || p.IsAutomated() {
		return false
	}

	last := len(s.cables) - 1
	if i != last {
		s.cables[i] = s.cables[last]
		s.params[i] = s.params[last]
		s.automated.SetTo(i, s.automated.Has(last))
		s.interpolating.SetTo(i, s.interpolating.Has(last))
	}

	s.params[last] = automation.AutoParam{}
	s.automated.Clear(last)
	s.interpolating.Clear(last)
	s.cables = s.cables[:last]
	s.routingChanged()

	return true
}

func (s *PatchCableSet) routingChanged() {
	if rl, ok := s.listener.(RoutingListener); ok {
		rl.RoutingChanged()
	}
}

var _ Collection = (*PatchCableSet)(nil)
