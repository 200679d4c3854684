package playback

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-synth/engine/midiout"
)

// Sequencer receives the clock's ticks. tick counts timer ticks since
// Start; now is the sample time the tick is actioned at.
type Sequencer interface {
	Tick(tick int64, now uint32)
}

// SequencerFunc adapts a function to Sequencer.
type SequencerFunc func(tick int64, now uint32)

// Tick calls f.
func (f SequencerFunc) Tick(tick int64, now uint32) { f(tick, now) }

type swungTick struct {
	tick int64
	at   uint32
}

// Clock schedules timer, swung and clock-out ticks on the sample
// timeline. It is driven by the render scheduler and is not safe for
// concurrent use.
type Clock struct {
	cfg        config
	sampleRate float64
	seq        Sequencer
	out        *midiout.Output

	// OnBeat is called on every quarter-note timer tick. accent is set on
	// the first beat of each 4/4 bar.
	OnBeat func(accent bool)

	running bool

	tick         int64
	tickInterval uint64
	nextTick     uint64
	swung        []swungTick

	trigInterval uint64
	nextTrig     uint64
	trigHigh     bool

	midiInterval uint64
	nextMIDI     uint64
}

// New returns a stopped clock. seq may be nil; out may be nil unless
// trigger clock out or MIDI clock out is enabled.
func New(sampleRate float64, seq Sequencer, out *midiout.Output, opts ...Option) (*Clock, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("playback sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.triggerPPQN > 0 && (out == nil || out.Gates == nil || cfg.triggerGate >= out.Gates.Len()) {
		return nil, fmt.Errorf("playback trigger clock gate %d has no output", cfg.triggerGate)
	}

	if cfg.midiClock && (out == nil || out.MIDI == nil) {
		return nil, fmt.Errorf("playback MIDI clock out needs a MIDI buffer")
	}

	c := &Clock{
		cfg:        cfg,
		sampleRate: sampleRate,
		seq:        seq,
		out:        out,
		swung:      make([]swungTick, 0, cfg.ppqn/4),
	}

	c.updateIntervals()

	return c, nil
}

// Start begins playback with tick 0 due at sample time now.
func (c *Clock) Start(now uint32) {
	c.running = true
	c.tick = 0
	c.swung = c.swung[:0]
	c.trigHigh = false

	start := uint64(now) << 32
	c.nextTick = start
	c.nextTrig = start
	c.nextMIDI = start

	if c.cfg.midiClock {
		c.out.MIDI.Start()
	}
}

// Stop ends playback. Swung ticks still queued are dropped.
func (c *Clock) Stop() {
	if !c.running {
		return
	}

	c.running = false
	c.swung = c.swung[:0]

	if c.cfg.midiClock {
		c.out.MIDI.Stop()
	}

	if c.trigHigh {
		c.trigHigh = false
		c.out.Gates.NoteOff(c.cfg.triggerGate)
	}
}

// Running reports whether the clock is playing.
func (c *Clock) Running() bool { return c.running }

// Tick returns the index of the next timer tick.
func (c *Clock) Tick() int64 { return c.tick }

// PPQN returns the timer tick resolution.
func (c *Clock) PPQN() int { return c.cfg.ppqn }

// Tempo returns the tempo in beats per minute.
func (c *Clock) Tempo() float64 { return c.cfg.tempo }

// Swing returns the swing amount.
func (c *Clock) Swing() float64 { return c.cfg.swing }

// SetTempo changes the tempo. Ticks already scheduled keep their time.
func (c *Clock) SetTempo(bpm float64) error {
	if err := validateTempo(bpm); err != nil {
		return err
	}

	c.cfg.tempo = bpm
	c.updateIntervals()

	return nil
}

// SetSwing sets how late the off-beat sixteenth of each eighth note is
// delivered, as a fraction of a sixteenth note in [0, 0.5]. The delay
// shrinks linearly across the sixteenth so swung ticks stay in order.
func (c *Clock) SetSwing(amount float64) error {
	if err := validateSwing(amount); err != nil {
		return err
	}

	c.cfg.swing = amount

	return nil
}

// SamplesPerTick returns the timer tick interval in samples.
func (c *Clock) SamplesPerTick() float64 {
	return float64(c.tickInterval) / (1 << 32)
}

// NextTimerTick returns the sample time of the next timer tick.
func (c *Clock) NextTimerTick() uint32 { return uint32(c.nextTick >> 32) }

// NextSwungTick returns the sample time of the oldest swung tick still
// waiting to be delivered.
func (c *Clock) NextSwungTick() (uint32, bool) {
	if len(c.swung) == 0 {
		return 0, false
	}

	return c.swung[0].at, true
}

// ActionTimerTick actions the next timer tick. Ticks in a swung sixteenth
// are queued for ActionSwungTick instead of reaching the sequencer.
func (c *Clock) ActionTimerTick(now uint32) {
	if !c.running {
		return
	}

	idx := c.tick
	at := c.nextTick
	c.tick++
	c.nextTick += c.tickInterval

	ppqn := int64(c.cfg.ppqn)
	if c.OnBeat != nil && idx%ppqn == 0 {
		c.OnBeat(idx%(4*ppqn) == 0)
	}

	if d, ok := c.swingDelay(idx); ok {
		c.swung = append(c.swung, swungTick{tick: idx, at: uint32((at + d) >> 32)})
		return
	}

	c.deliver(idx, now)
}

// ActionSwungTick delivers the oldest queued swung tick.
func (c *Clock) ActionSwungTick(now uint32) {
	if len(c.swung) == 0 {
		return
	}

	t := c.swung[0]
	c.swung = c.swung[:copy(c.swung, c.swung[1:])]
	c.deliver(t.tick, now)
}

// NextTriggerClockOut returns the sample time of the next trigger clock
// edge.
func (c *Clock) NextTriggerClockOut() (uint32, bool) {
	return uint32(c.nextTrig >> 32), c.running && c.cfg.triggerPPQN > 0
}

// DoTriggerClockOut toggles the trigger clock gate and schedules the next
// edge half a pulse later.
func (c *Clock) DoTriggerClockOut(uint32) {
	c.trigHigh = !c.trigHigh
	if c.trigHigh {
		c.out.Gates.NoteOn(c.cfg.triggerGate)
	} else {
		c.out.Gates.NoteOff(c.cfg.triggerGate)
	}

	c.nextTrig += c.trigInterval
}

// NextMIDIClockOut returns the sample time of the next MIDI timing clock.
func (c *Clock) NextMIDIClockOut() (uint32, bool) {
	return uint32(c.nextMIDI >> 32), c.running && c.cfg.midiClock
}

// DoMIDIClockOut queues a MIDI timing clock and schedules the next one.
func (c *Clock) DoMIDIClockOut(uint32) {
	c.out.MIDI.Clock()
	c.nextMIDI += c.midiInterval
}

func (c *Clock) deliver(tick int64, now uint32) {
	if c.seq != nil {
		c.seq.Tick(tick, now)
	}
}

func (c *Clock) swingDelay(idx int64) (uint64, bool) {
	if c.cfg.swing == 0 {
		return 0, false
	}

	s := int64(c.cfg.ppqn / 4)
	if (idx/s)%2 == 0 {
		return 0, false
	}

	full := uint64(c.cfg.swing * float64(c.tickInterval*uint64(s)))

	return full * uint64(s-idx%s) / uint64(s), true
}

func (c *Clock) updateIntervals() {
	quarter := c.sampleRate * 60 / c.cfg.tempo
	c.tickInterval = toFixed(quarter / float64(c.cfg.ppqn))
	c.midiInterval = toFixed(quarter / MIDIClockPPQN)

	if c.cfg.triggerPPQN > 0 {
		c.trigInterval = toFixed(quarter / float64(c.cfg.triggerPPQN) / 2)
	}
}

func toFixed(samples float64) uint64 {
	return uint64(samples*(1<<32) + 0.5)
}
