package voice

import (
	"cmp"
	"fmt"
	"iter"
	"math"
	"slices"
)

// Decision is the outcome of the allocate-or-cull policy.
type Decision uint8

// Allocation decisions.
const (
	DecisionUseFree Decision = iota
	DecisionAllocate
	DecisionCull
	DecisionFail
)

func (d Decision) String() string {
	switch d {
	case DecisionUseFree:
		return "use-free"
	case DecisionAllocate:
		return "allocate"
	case DecisionCull:
		return "cull"
	default:
		return "fail"
	}
}

// AllocState is what the policy sees when a voice is requested.
type AllocState struct {
	Free              int
	OverflowAvailable int
	Active            int
	// PreferCulling is set when the engine is already behind, so taking an
	// existing voice is cheaper than growing the pool.
	PreferCulling bool
}

// Decide picks where the next voice comes from.
func Decide(s AllocState) Decision {
	switch {
	case s.PreferCulling && s.Active > 0:
		return DecisionCull
	case s.Free > 0:
		return DecisionUseFree
	case s.OverflowAvailable > 0:
		return DecisionAllocate
	case s.Active > 0:
		return DecisionCull
	default:
		return DecisionFail
	}
}

// Culler frees a voice when the pool has none to give.
type Culler interface {
	// PreferCulling reports whether to steal a voice before trying the
	// free list.
	PreferCulling() bool
	// CullVoice unassigns the most cullable voice. With save set the voice
	// is returned instead of disposed.
	CullVoice(save, justFastRelease bool) *Voice
}

// IndexError is the panic value raised when the active index disagrees
// with a voice that claims to be in it.
type IndexError struct {
	Sound uint32
	Voice uint32
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("voice: active index has no entry for sound %d voice %d", e.Sound, e.Voice)
}

type key struct {
	sound uint32
	voice uint32
}

func compareKeys(a, b key) int {
	if c := cmp.Compare(a.sound, b.sound); c != 0 {
		return c
	}

	return cmp.Compare(a.voice, b.voice)
}

type entry struct {
	key key
	v   *Voice
}

// PoolOption configures a Pool.
type PoolOption func(*poolConfig) error

type poolConfig struct {
	overflow      int
	indexCapacity int
}

// WithOverflow allows n voices beyond the static arena.
func WithOverflow(n int) PoolOption {
	return func(cfg *poolConfig) error {
		if n < 0 {
			return fmt.Errorf("voice overflow must be >= 0: %d", n)
		}

		cfg.overflow = n
		return nil
	}
}

// WithIndexCapacity bounds the active index. It defaults to the static
// arena plus the overflow budget.
func WithIndexCapacity(n int) PoolOption {
	return func(cfg *poolConfig) error {
		if n <= 0 {
			return fmt.Errorf("voice index capacity must be > 0: %d", n)
		}

		cfg.indexCapacity = n
		return nil
	}
}

// Pool hands out voices and tracks the active ones.
type Pool struct {
	static       []Voice
	free         []*Voice
	overflowCap  int
	overflowUsed int

	index    []entry
	indexCap int

	nextID            uint32
	startedThisRender int
	startBudget       int
	throttled         int
}

// NewPool returns a pool with a static arena of n voices.
func NewPool(n int, opts ...PoolOption) (*Pool, error) {
	if n <= 0 {
		return nil, fmt.Errorf("voice pool size must be > 0: %d", n)
	}

	var cfg poolConfig
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.indexCapacity == 0 {
		cfg.indexCapacity = n + cfg.overflow
	}

	p := &Pool{
		static:      make([]Voice, n),
		free:        make([]*Voice, n),
		overflowCap: cfg.overflow,
		index:       make([]entry, 0, cfg.indexCapacity),
		indexCap:    cfg.indexCapacity,
	}

	// Hand out low slots first.
	for i := range p.static {
		p.free[n-1-i] = &p.static[i]
	}

	return p, nil
}

// Len returns the number of active voices.
func (p *Pool) Len() int { return len(p.index) }

// Free returns the number of static voices on the free list.
func (p *Pool) Free() int { return len(p.free) }

// OverflowInUse returns the number of voices allocated beyond the arena.
func (p *Pool) OverflowInUse() int { return p.overflowUsed }

// StartedThisRender returns how many voices were solicited since the last
// ResetRenderCounters, plus the head start it was given.
func (p *Pool) StartedThisRender() int { return p.startedThisRender }

// ResetRenderCounters is called at the start of each render pass. A
// positive headStart counts as voices already started, leaving fewer of
// the start budget for the pass.
func (p *Pool) ResetRenderCounters(headStart int) { p.startedThisRender = max(headStart, 0) }

// SetStartBudget caps how many voices Solicit hands out per render pass.
// 0 removes the cap.
func (p *Pool) SetStartBudget(n int) { p.startBudget = max(n, 0) }

// Throttled returns how many solicitations the start budget refused.
func (p *Pool) Throttled() int { return p.throttled }

// State returns the allocation state the policy would see.
func (p *Pool) State(preferCulling bool) AllocState {
	return AllocState{
		Free:              len(p.free),
		OverflowAvailable: p.overflowCap - p.overflowUsed,
		Active:            len(p.index),
		PreferCulling:     preferCulling,
	}
}

// Solicit returns a voice assigned to owner, or nil if none could be
// found. culler may be nil, in which case no voice is ever stolen.
func (p *Pool) Solicit(owner Owner, now uint32, culler Culler) *Voice {
	if p.startBudget > 0 && p.startedThisRender >= p.startBudget {
		p.throttled++
		return nil
	}

	prefer := culler != nil && culler.PreferCulling()
	var v *Voice
	switch Decide(p.State(prefer)) {
	case DecisionCull:
		if culler != nil {
			v = culler.CullVoice(true, false)
		}

		if v == nil {
			v = p.takeWithoutCulling()
		}
	case DecisionUseFree, DecisionAllocate:
		v = p.takeWithoutCulling()
	case DecisionFail:
	}

	if v == nil {
		return nil
	}

	p.nextID++
	v.reset(p.nextID, owner, now)
	if !p.insert(v) {
		v.assigned = false
		p.dispose(v)

		return nil
	}

	p.startedThisRender++
	return v
}

func (p *Pool) takeWithoutCulling() *Voice {
	if n := len(p.free); n > 0 {
		v := p.free[n-1]
		p.free = p.free[:n-1]

		return v
	}

	if p.overflowUsed < p.overflowCap {
		p.overflowUsed++
		return &Voice{overflow: true}
	}

	return nil
}

// Unassign takes v out of service. removeFromIndex drops its index entry
// and shouldDispose returns its memory to the pool. A voice that should be
// indexed but is not means the voice bookkeeping is corrupt, and Unassign
// panics with an *IndexError.
func (p *Pool) Unassign(v *Voice, removeFromIndex, shouldDispose bool) {
	owner := v.Owner
	if removeFromIndex && !p.remove(v) {
		panic(p.indexError(v))
	}

	v.assigned = false
	if owner != nil {
		owner.VoiceUnassigned(v)
	}

	if shouldDispose {
		p.dispose(v)
	}
}

// MustContain panics with an *IndexError if v is not in the active index.
func (p *Pool) MustContain(v *Voice) {
	if _, ok := p.find(keyOf(v)); !ok {
		panic(p.indexError(v))
	}
}

// Contains reports whether v is in the active index.
func (p *Pool) Contains(v *Voice) bool {
	_, ok := p.find(keyOf(v))
	return ok
}

// CountOf returns how many active voices the sound has.
func (p *Pool) CountOf(soundID uint32) int {
	lo, hi := p.rangeOf(soundID)
	return hi - lo
}

// AppendVoicesOf appends the sound's active voices to dst in voice ID order.
func (p *Pool) AppendVoicesOf(dst []*Voice, soundID uint32) []*Voice {
	lo, hi := p.rangeOf(soundID)
	for _, e := range p.index[lo:hi] {
		dst = append(dst, e.v)
	}

	return dst
}

// All yields every active voice in index order. The index must not be
// modified while iterating.
func (p *Pool) All() iter.Seq[*Voice] {
	return func(yield func(*Voice) bool) {
		for _, e := range p.index {
			if !yield(e.v) {
				return
			}
		}
	}
}

func (p *Pool) dispose(v *Voice) {
	v.Owner = nil
	if v.overflow {
		p.overflowUsed--
		return
	}

	p.free = append(p.free, v)
}

func (p *Pool) insert(v *Voice) bool {
	if len(p.index) >= p.indexCap {
		return false
	}

	k := keyOf(v)
	i, found := p.find(k)
	if found {
		return false
	}

	p.index = slices.Insert(p.index, i, entry{key: k, v: v})
	return true
}

func (p *Pool) remove(v *Voice) bool {
	i, ok := p.find(keyOf(v))
	if !ok || p.index[i].v != v {
		return false
	}

	p.index = slices.Delete(p.index, i, i+1)
	return true
}

func (p *Pool) find(k key) (int, bool) {
	return slices.BinarySearchFunc(p.index, k, func(e entry, target key) int {
		return compareKeys(e.key, target)
	})
}

func (p *Pool) rangeOf(soundID uint32) (int, int) {
	lo, _ := p.find(key{sound: soundID})
	if soundID == math.MaxUint32 {
		return lo, len(p.index)
	}

	hi, _ := p.find(key{sound: soundID + 1})
	return lo, hi
}

func (p *Pool) indexError(v *Voice) *IndexError {
	k := keyOf(v)
	return &IndexError{Sound: k.sound, Voice: k.voice}
}

func keyOf(v *Voice) key {
	var sound uint32
	if v.Owner != nil {
		sound = v.Owner.ID()
	}

	return key{sound: sound, voice: v.ID}
}
