package ring

import "fmt"

// Cursor is a frame position inside a ring, always in [0, Size).
type Cursor int

// Ring describes the geometry of a circular buffer whose size is a power of two.
type Ring struct {
	size int
	mask int
}

// New returns a Ring of size frames. size must be a positive power of two.
func New(size int) (Ring, error) {
	if size <= 0 || size&(size-1) != 0 {
		return Ring{}, fmt.Errorf("ring size must be a positive power of two: %d", size)
	}

	return Ring{size: size, mask: size - 1}, nil
}

// MustNew is like New but panics on an invalid size.
func MustNew(size int) Ring {
	r, err := New(size)
	if err != nil {
		panic(err)
	}

	return r
}

// Size returns the number of frames in the ring.
func (r Ring) Size() int { return r.size }

// Wrap folds any integer, including negative ones, into [0, Size).
func (r Ring) Wrap(i int) int { return i & r.mask }

// Cursor returns the cursor for an arbitrary frame index.
func (r Ring) Cursor(i int) Cursor { return Cursor(i & r.mask) }

// Advance moves c forward by n frames (n may be negative).
func (r Ring) Advance(c Cursor, n int) Cursor { return Cursor((int(c) + n) & r.mask) }

// Distance returns how many frames lie between from and to going forward.
// Equal cursors are zero frames apart.
func (r Ring) Distance(from, to Cursor) int { return (int(to) - int(from)) & r.mask }

// Contiguous returns how many frames can be read or written starting at c
// before the ring wraps, capped at n.
func (r Ring) Contiguous(c Cursor, n int) int {
	return min(n, r.size-int(c))
}
