package recorder

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/juju/loggo"
	wav "github.com/youpy/go-wav"
	"gopkg.in/errgo.v1"

	"github.com/cwbudde/algo-synth/engine/hw"
)

var logger = loggo.GetLogger("algosynth.recorder")

// Status is where a recorder is in its life. The order matters: anything
// below StatusFinishedCapturingButStillWriting still wants audio.
type Status uint8

// Recorder states.
const (
	StatusCapturing Status = iota
	StatusFinishedCapturingButStillWriting
	StatusComplete
	StatusAborted
	StatusAwaitingDeletion
)

var statusNames = [...]string{"capturing", "finished-capturing", "complete", "aborted", "awaiting-deletion"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}

	return fmt.Sprintf("status(%d)", uint8(s))
}

// Source selects what a recorder captures.
type Source uint8

// Capture sources.
const (
	SourceOutput Source = iota
	SourceInputLeft
	SourceInputRight
	SourceInputStereo
)

// IsInput reports whether the source reads the codec input.
func (s Source) IsInput() bool { return s != SourceOutput }

// Channels returns the number of channels written to the file.
func (s Source) Channels() int {
	if s == SourceInputLeft || s == SourceInputRight {
		return 1
	}

	return 2
}

// BitsPerSample is the WAV sample width. Frames keep their top 24 bits.
const BitsPerSample = 24

// Byte offsets of the RIFF and data chunk sizes in the WAV header.
const (
	riffSizeOffset = 4
	dataSizeOffset = 40
	riffOverhead   = 36
)

// Recorder captures a fixed number of frames.
type Recorder struct {
	source     Source
	dst        io.Writer
	total      int
	sampleRate uint32

	mu       sync.Mutex
	status   Status
	captured int
	queue    []wav.Sample

	w        *wav.Writer
	sink     *stickyWriter
	written  int
	declared int // frames promised by the header
}

// stickyWriter remembers the first write error.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}

	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
	}

	return n, err
}

// New returns a recorder writing frames frames at sampleRate from src
// to dst. dst is written only from CardRoutine.
func New(dst io.Writer, src Source, frames int, sampleRate uint32) (*Recorder, error) {
	if dst == nil {
		return nil, fmt.Errorf("recorder destination must not be nil")
	}

	if src > SourceInputStereo {
		return nil, fmt.Errorf("unknown recorder source: %d", src)
	}

	if frames <= 0 {
		return nil, fmt.Errorf("recorder length must be > 0: %d", frames)
	}

	if sampleRate == 0 {
		return nil, fmt.Errorf("recorder sample rate must be > 0")
	}

	return &Recorder{source: src, dst: dst, total: frames, sampleRate: sampleRate}, nil
}

// Source returns what the recorder captures.
func (r *Recorder) Source() Source { return r.source }

// Status returns the current state.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// Captured returns the number of frames accepted so far.
func (r *Recorder) Captured() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.captured
}

// FeedAudio hands the recorder a slice of frames. Frames past the
// recorder's length, or arriving after capture has finished, are ignored.
func (r *Recorder) FeedAudio(frames []hw.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status >= StatusFinishedCapturingButStillWriting {
		return
	}

	n := min(len(frames), r.total-r.captured)
	for _, f := range frames[:n] {
		r.queue = append(r.queue, r.sample(f))
	}

	r.captured += n
	if r.captured == r.total {
		r.status = StatusFinishedCapturingButStillWriting
	}
}

func (r *Recorder) sample(f hw.Frame) wav.Sample {
	l, rr := int(f.L>>8), int(f.R>>8)
	switch r.source {
	case SourceInputLeft:
		return wav.Sample{Values: [2]int{l}}
	case SourceInputRight:
		return wav.Sample{Values: [2]int{rr}}
	}

	return wav.Sample{Values: [2]int{l, rr}}
}

// Abort stops capturing. Frames already queued are dropped.
func (r *Recorder) Abort() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status < StatusComplete {
		r.status = StatusAborted
		r.queue = nil
	}
}

// Stop ends capture early with the frames captured so far. A header
// already written for the full length is corrected once the last frame
// is on disk, which needs a destination that can seek; otherwise the
// recording is aborted then.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status >= StatusFinishedCapturingButStillWriting {
		return
	}

	r.total = r.captured
	r.status = StatusFinishedCapturingButStillWriting
}

// MarkForDeletion retires a complete or aborted recorder so that
// List.Prune drops it.
func (r *Recorder) MarkForDeletion() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusComplete && r.status != StatusAborted {
		return false
	}

	r.status = StatusAwaitingDeletion
	return true
}

// CardRoutine writes whatever has been queued. Once every captured frame
// has been written the recorder becomes complete. A write error aborts it.
func (r *Recorder) CardRoutine() error {
	r.mu.Lock()
	batch := r.queue
	r.queue = nil
	status := r.status
	total := r.total
	r.mu.Unlock()

	if status >= StatusComplete {
		return nil
	}

	if r.w == nil {
		r.sink = &stickyWriter{w: r.dst}
		r.w = wav.NewWriter(r.sink, uint32(total), uint16(r.source.Channels()), r.sampleRate, BitsPerSample)
		r.declared = total
	}

	if len(batch) > 0 {
		err := r.w.WriteSamples(batch)
		if err == nil {
			err = r.sink.err
		}

		if err != nil {
			r.Abort()
			logger.Warningf("recording aborted after %d frames: %v", r.written, err)

			return errgo.Notef(err, "cannot write %d frames", len(batch))
		}

		r.written += len(batch)
	}

	r.mu.Lock()
	done := r.status == StatusFinishedCapturingButStillWriting && len(r.queue) == 0 && r.written == r.captured
	r.mu.Unlock()

	if !done {
		return nil
	}

	if r.written != r.declared {
		if err := r.patchHeader(); err != nil {
			r.Abort()
			logger.Warningf("recording aborted: header promises %d frames, %d written", r.declared, r.written)

			return errgo.Notef(err, "cannot finish a recording stopped early")
		}
	}

	r.mu.Lock()
	if r.status == StatusFinishedCapturingButStillWriting {
		r.status = StatusComplete
	}

	r.mu.Unlock()

	logger.Debugf("recording complete: %d frames", r.written)

	return nil
}

// patchHeader rewrites the RIFF and data chunk sizes for the frames
// actually written and returns to the end of the file.
func (r *Recorder) patchHeader() error {
	ws, ok := r.dst.(io.WriteSeeker)
	if !ok {
		return errgo.New("destination cannot seek")
	}

	data := uint32(r.written * r.source.Channels() * BitsPerSample / 8)

	var b [4]byte

	for _, field := range [...]struct {
		off int64
		v   uint32
	}{{riffSizeOffset, riffOverhead + data}, {dataSizeOffset, data}} {
		if _, err := ws.Seek(field.off, io.SeekStart); err != nil {
			return errgo.Mask(err)
		}

		binary.LittleEndian.PutUint32(b[:], field.v)

		if _, err := ws.Write(b[:]); err != nil {
			return errgo.Mask(err)
		}
	}

	_, err := ws.Seek(0, io.SeekEnd)

	return errgo.Mask(err)
}
