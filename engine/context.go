package engine

import (
	"fmt"

	"github.com/juju/loggo"

	"github.com/cwbudde/algo-synth/engine/cull"
	"github.com/cwbudde/algo-synth/engine/hw"
	"github.com/cwbudde/algo-synth/engine/master"
	"github.com/cwbudde/algo-synth/engine/output"
	"github.com/cwbudde/algo-synth/engine/ring"
	"github.com/cwbudde/algo-synth/engine/voice"
)

var logger = loggo.GetLogger("algosynth.engine")

// Song renders one window. l, r and reverb are zeroed and have the
// window's length; the song must fill all three.
type Song interface {
	RenderAudio(l, r, reverb []float64, sideChainHit float64, now uint32)
}

// MasterSettingsSource is implemented by songs that drive the master bus.
// It is called once per window with the settings in effect.
type MasterSettingsSource interface {
	MasterSettings(current master.Settings) master.Settings
}

// CullerSetter is implemented by songs that solicit voices and need the
// context's culler.
type CullerSetter interface {
	SetCuller(c voice.Culler)
}

// Clock is the playback timing the scheduler places windows around.
// Times are on the context's sample timer.
type Clock interface {
	Running() bool
	NextTimerTick() uint32
	NextSwungTick() (uint32, bool)
	ActionTimerTick(now uint32)
	ActionSwungTick(now uint32)
	NextTriggerClockOut() (uint32, bool)
	DoTriggerClockOut(now uint32)
	NextMIDIClockOut() (uint32, bool)
	DoMIDIClockOut(now uint32)
}

// Outputs is the MIDI and gate output flushed at sample-accurate times.
type Outputs interface {
	Pending() bool
	// HoldOff returns how many samples from now a flush must wait for
	// queued gate switch-ons to be allowed, or a non-positive value.
	HoldOff(now uint32) int32
	Flush(now uint32)
}

// Hardware is the DMA ring, interrupt controller and timer the context
// drives.
type Hardware struct {
	Interrupts hw.InterruptController
	TX, RX     hw.Port
	Timer      hw.Timer
}

// Stats counts scheduler activity.
type Stats struct {
	Windows       int
	Samples       uint64
	LastWindow    int
	LockedSkips   int
	Backpressure  int
	Ticks         int
	ClockOuts     int
	TimerArms     int
	TimerFires    int
	ReverbWindows int
	Tiers         [cull.TierHard + 1]int
}

// Context is the audio engine state. It is constructed once and driven
// from a single goroutine.
type Context struct {
	cfg  Config
	hw   Hardware
	ring ring.Ring

	song    Song
	pool    *voice.Pool
	culler  *cull.Engine
	clock   Clock
	outputs Outputs
	stage   *output.Stage
	master  *master.Chain
	section *hw.Section

	locked        bool
	timer         uint32
	smoothed      int
	bypassCulling bool
	sideChainHit  float64

	reverbSeen bool
	lastReverb uint32
	reverbIdle uint32

	maxWindow int
	bufL      []float64
	bufR      []float64
	bufRev    []float64
	fire      func()

	stats Stats
}

// New returns a context rendering song with voices from pool.
func New(h Hardware, song Song, pool *voice.Pool, sampleRate float64, opts ...Option) (*Context, error) {
	if h.Interrupts == nil || h.TX == nil || h.RX == nil || h.Timer == nil {
		return nil, fmt.Errorf("engine hardware is incomplete")
	}

	if song == nil || pool == nil {
		return nil, fmt.Errorf("engine needs a song and a voice pool")
	}

	cfg := DefaultConfig(sampleRate)

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stage, err := output.New(h.TX, h.RX, cfg.stageOptions...)
	if err != nil {
		return nil, err
	}

	r := stage.Ring()

	chain, err := master.NewChain(sampleRate, r.Size())
	if err != nil {
		return nil, err
	}

	clips, _ := song.(cull.ClipCuller)

	culler, err := cull.New(pool, clips, cfg.Cull)
	if err != nil {
		return nil, err
	}

	if cs, ok := song.(CullerSetter); ok {
		cs.SetCuller(culler)
	}

	pool.SetStartBudget(cfg.VoiceStartBudget)

	c := &Context{
		cfg:        cfg,
		hw:         h,
		ring:       r,
		song:       song,
		pool:       pool,
		culler:     culler,
		clock:      cfg.clock,
		outputs:    cfg.outputs,
		stage:      stage,
		master:     chain,
		section:    hw.NewSection(h.Interrupts, cfg.RenderInterrupts...),
		reverbIdle: uint32(cfg.ReverbIdle.Seconds() * sampleRate),
		maxWindow:  max(r.Size()*cfg.MaxWindowNum/cfg.MaxWindowDen, 1),
		bufL:       make([]float64, r.Size()),
		bufR:       make([]float64, r.Size()),
		bufRev:     make([]float64, r.Size()),
	}

	c.fire = c.fireTimer

	return c, nil
}

// Config returns the context's configuration.
func (c *Context) Config() Config { return c.cfg }

// Timer returns the sample timer: the sample time of the start of the
// next window.
func (c *Context) Timer() uint32 { return c.timer }

// Pool returns the voice pool.
func (c *Context) Pool() *voice.Pool { return c.pool }

// Culler returns the cull engine.
func (c *Context) Culler() *cull.Engine { return c.culler }

// Master returns the master bus.
func (c *Context) Master() *master.Chain { return c.master }

// Stage returns the output stage.
func (c *Context) Stage() *output.Stage { return c.stage }

// Stats returns the scheduler counters.
func (c *Context) Stats() Stats { return c.stats }

// SmoothedSamples returns the smoothed window length direness is
// computed from.
func (c *Context) SmoothedSamples() int { return c.smoothed }

// RegisterSideChainHit records a sidechain trigger for the next window.
// Stronger hits win within a window.
func (c *Context) RegisterSideChainHit(strength float64) {
	c.sideChainHit = max(c.sideChainHit, strength)
}

// BypassCulling skips culling for the next window only.
func (c *Context) BypassCulling() { c.bypassCulling = true }

// ReverbActive reports whether the reverb is still being rendered.
func (c *Context) ReverbActive() bool {
	return c.reverbSeen && c.timer-c.lastReverb < c.reverbIdle
}

func (c *Context) fireTimer() {
	c.stats.TimerFires++
	if c.outputs != nil {
		c.outputs.Flush(c.timer)
	}
}
