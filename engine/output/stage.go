package output

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-synth/engine/hw"
	"github.com/cwbudde/algo-synth/engine/recorder"
	"github.com/cwbudde/algo-synth/engine/ring"
)

// Stage writes rendered windows into the transmit ring.
type Stage struct {
	tx, rx hw.Port
	ring   ring.Ring

	quant        *Quantizer
	monitoring   Monitoring
	monitorShift uint
	feedLimit    int
	recorders    *recorder.List

	gainL, gainR float64

	pendL, pendR []float64
	pendPos      int

	txPos  ring.Cursor
	rxFed  ring.Cursor
	frames []hw.Frame
}

// New returns a Stage writing to tx and reading monitored input from rx.
// Both ports must share the same ring size.
func New(tx, rx hw.Port, opts ...Option) (*Stage, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		err := opt(&cfg)
		if err != nil {
			return nil, err
		}
	}

	r, err := ring.New(len(tx.Frames()))
	if err != nil {
		return nil, fmt.Errorf("output: tx %w", err)
	}

	if len(rx.Frames()) != r.Size() {
		return nil, fmt.Errorf("output: rx ring has %d frames, tx has %d", len(rx.Frames()), r.Size())
	}

	q, err := NewQuantizer(cfg.bitDepth, cfg.ditherAmplitude, cfg.rng)
	if err != nil {
		return nil, err
	}

	return &Stage{
		tx:           tx,
		rx:           rx,
		ring:         r,
		quant:        q,
		monitoring:   cfg.monitoring,
		monitorShift: cfg.monitorShift,
		feedLimit:    cfg.inputFeedLimit,
		recorders:    cfg.recorders,
		gainL:        1,
		gainR:        1,
		txPos:        tx.Position(),
		rxFed:        rx.Position(),
		frames:       make([]hw.Frame, 0, r.Size()),
	}, nil
}

// Ring returns the transmit ring geometry.
func (s *Stage) Ring() ring.Ring { return s.ring }

// TXPos returns the next frame the stage will write.
func (s *Stage) TXPos() ring.Cursor { return s.txPos }

// Room returns the number of frames between the write cursor and the DMA
// read position.
func (s *Stage) Room() int { return s.ring.Distance(s.txPos, s.tx.Position()) }

// SetGain sets the per-channel output gain.
func (s *Stage) SetGain(l, r float64) {
	s.gainL, s.gainR = l, r
}

// SetMonitoring changes the monitoring mode. Unknown modes are ignored.
func (s *Stage) SetMonitoring(m Monitoring) {
	if m.Valid() {
		s.monitoring = m
	}
}

// Monitoring returns the monitoring mode.
func (s *Stage) Monitoring() Monitoring { return s.monitoring }

// Load hands the stage a rendered window. The slices must stay untouched
// until Pending reports zero.
func (s *Stage) Load(l, r []float64) {
	s.pendL, s.pendR = l, r[:len(l)]
	s.pendPos = 0
}

// Pending returns the number of loaded frames not yet written.
func (s *Stage) Pending() int { return len(s.pendL) - s.pendPos }

// Output writes pending frames until the window is drained or the ring is
// full. It reports whether the window was drained.
func (s *Stage) Output() bool {
	tx := s.tx.Frames()
	rx := s.rx.Frames()
	s.frames = s.frames[:0]

	for s.pendPos < len(s.pendL) {
		if s.txPos == s.tx.Position() {
			break
		}

		f := hw.Frame{
			L: s.quant.Process(s.gainL * s.pendL[s.pendPos]),
			R: s.quant.Process(s.gainR * s.pendR[s.pendPos]),
		}

		if s.monitoring != MonitorNone {
			f = s.monitor(f, rx[s.txPos])
		}

		tx[s.txPos] = f
		s.frames = append(s.frames, f)
		s.txPos = s.ring.Advance(s.txPos, 1)
		s.pendPos++
	}

	if s.recorders != nil {
		s.recorders.FeedOutput(s.frames)
		s.feedInput(rx)
	}

	return s.pendPos == len(s.pendL)
}

func (s *Stage) monitor(f, in hw.Frame) hw.Frame {
	g := s.monitorShift

	switch s.monitoring {
	case MonitorStereo:
		f.L = sat(int64(f.L) + int64(in.L>>g))
		f.R = sat(int64(f.R) + int64(in.R>>g))
	case MonitorSubtractRight:
		d := int64(in.L>>(g+1)) - int64(in.R>>(g+1))
		f.L = sat(int64(f.L) + d)
		f.R = sat(int64(f.R) + d)
	case MonitorRemoveRight:
		d := int64(in.L >> g)
		f.L = sat(int64(f.L) + d)
		f.R = sat(int64(f.R) + d)
	}

	return f
}

// feedInput hands captured input up to the receive DMA position to the
// input recorders, one contiguous run at a time.
func (s *Stage) feedInput(rx []hw.Frame) {
	avail := s.ring.Distance(s.rxFed, s.rx.Position())
	if avail == 0 {
		return
	}

	n := s.ring.Contiguous(s.rxFed, min(avail, s.feedLimit))
	if s.recorders.WantsInput() {
		s.recorders.FeedInput(rx[s.rxFed : int(s.rxFed)+n])
	}

	s.rxFed = s.ring.Advance(s.rxFed, n)
}

func sat(v int64) int32 {
	return int32(max(min(v, math.MaxInt32), math.MinInt32))
}
