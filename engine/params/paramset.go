package params

// ParamSet is a fixed collection of parameters addressed by index, such as
// the patched or unpatched parameters of a sound.
type ParamSet struct {
	collection
}

// NewParamSet returns a ParamSet of n unautomated parameters. l may be nil.
func NewParamSet(n int, l Listener) *ParamSet {
	return &ParamSet{collection: newCollection(n, l)}
}

// Len returns the number of parameters.
func (s *ParamSet) Len() int { return len(s.params) }

var _ Collection = (*ParamSet)(nil)
