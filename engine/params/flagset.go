package params

import (
	"iter"
	"math/bits"
)

// FlagSet is a fixed-size bitset.
type FlagSet struct {
	words []uint64
	n     int
}

// NewFlagSet returns a FlagSet with room for n flags, all clear.
func NewFlagSet(n int) FlagSet {
	return FlagSet{words: make([]uint64, (n+63)/64), n: n}
}

// Len returns the number of flags.
func (f *FlagSet) Len() int { return f.n }

// Set raises flag i.
func (f *FlagSet) Set(i int) { f.words[i>>6] |= 1 << uint(i&63) }

// Clear lowers flag i.
func (f *FlagSet) Clear(i int) { f.words[i>>6] &^= 1 << uint(i&63) }

// SetTo raises or lowers flag i.
func (f *FlagSet) SetTo(i int, on bool) {
	if on {
		f.Set(i)
	} else {
		f.Clear(i)
	}
}

// Has reports whether flag i is raised.
func (f *FlagSet) Has(i int) bool { return f.words[i>>6]&(1<<uint(i&63)) != 0 }

// Any reports whether any flag is raised.
func (f *FlagSet) Any() bool {
	for _, w := range f.words {
		if w != 0 {
			return true
		}
	}

	return false
}

// Count returns the number of raised flags.
func (f *FlagSet) Count() int {
	n := 0
	for _, w := range f.words {
		n += bits.OnesCount64(w)
	}

	return n
}

// Reset lowers every flag.
func (f *FlagSet) Reset() { clear(f.words) }

// All yields the index of every raised flag in ascending order. Work is
// proportional to the number of raised flags plus the number of words.
// Flags may be cleared while iterating; flags raised during iteration in a
// word already visited are not yielded.
func (f *FlagSet) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		for wi := range f.words {
			w := f.words[wi]
			for w != 0 {
				b := bits.TrailingZeros64(w)
				w &= w - 1
				if !yield(wi<<6 | b) {
					return
				}
			}
		}
	}
}
