// Package voice owns the polyphonic voice objects: their envelope state,
// the priority rating culling sorts them by, and the Pool they are
// allocated from. The Pool is a fixed arena with a free list plus a
// bounded overflow budget, indexed by (sound ID, voice ID) for ordered
// lookup and removal. Running out of voices is decided by an explicit
// policy function, Decide, rather than by whatever the allocator does.
package voice
