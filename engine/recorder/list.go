package recorder

import (
	"sync"

	"gopkg.in/errgo.v1"

	"github.com/cwbudde/algo-synth/engine/hw"
)

// List holds the live recorders.
type List struct {
	mu       sync.Mutex
	recs     []*Recorder
	capacity int
}

// NewList returns a list holding at most capacity recorders.
func NewList(capacity int) *List {
	return &List{capacity: capacity}
}

// Add attaches r. It returns false when the list is full.
func (l *List) Add(r *Recorder) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recs) >= l.capacity {
		return false
	}

	l.recs = append(l.recs, r)
	return true
}

// Len returns the number of attached recorders.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.recs)
}

// WantsInput reports whether any recorder is capturing the codec input.
func (l *List) WantsInput() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.recs {
		if r.source.IsInput() && r.Status() < StatusFinishedCapturingButStillWriting {
			return true
		}
	}

	return false
}

// FeedOutput hands output frames to every output recorder.
func (l *List) FeedOutput(frames []hw.Frame) { l.feed(frames, false) }

// FeedInput hands input frames to every input recorder.
func (l *List) FeedInput(frames []hw.Frame) { l.feed(frames, true) }

func (l *List) feed(frames []hw.Frame, input bool) {
	if len(frames) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.recs {
		if r.source.IsInput() == input {
			r.FeedAudio(frames)
		}
	}
}

// Stop ends capture early on every recorder still capturing.
func (l *List) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.recs {
		r.Stop()
	}
}

// CardRoutine runs every recorder's CardRoutine and returns the first
// error. A failing recorder does not stop the others.
func (l *List) CardRoutine() error {
	l.mu.Lock()
	recs := append([]*Recorder(nil), l.recs...)
	l.mu.Unlock()

	var first error
	for _, r := range recs {
		if err := r.CardRoutine(); err != nil && first == nil {
			first = errgo.Mask(err)
		}
	}

	return first
}

// Prune detaches and returns the recorders awaiting deletion.
func (l *List) Prune() []*Recorder {
	l.mu.Lock()
	defer l.mu.Unlock()
	var gone []*Recorder
	kept := l.recs[:0]
	for _, r := range l.recs {
		if r.Status() == StatusAwaitingDeletion {
			gone = append(gone, r)
			continue
		}

		kept = append(kept, r)
	}

	clear(l.recs[len(kept):])
	l.recs = kept

	return gone
}
