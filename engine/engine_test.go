package engine

import (
	"math/rand/v2"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/cwbudde/algo-synth/engine/cull"
	"github.com/cwbudde/algo-synth/engine/hw"
	"github.com/cwbudde/algo-synth/engine/master"
	"github.com/cwbudde/algo-synth/engine/midiout"
	"github.com/cwbudde/algo-synth/engine/output"
	"github.com/cwbudde/algo-synth/engine/playback"
	"github.com/cwbudde/algo-synth/engine/voice"
	"github.com/cwbudde/algo-synth/internal/testutil"
)

const testRate = 48000

type fakeSong struct {
	level  float64
	reverb float64

	lens []int
	nows []uint32
	hits []float64

	// during runs inside every RenderAudio call.
	during func()
}

func (s *fakeSong) RenderAudio(l, r, reverb []float64, hit float64, now uint32) {
	s.lens = append(s.lens, len(l))
	s.nows = append(s.nows, now)
	s.hits = append(s.hits, hit)

	for i := range l {
		l[i] += s.level
		r[i] += s.level
		reverb[i] += s.reverb
	}

	if s.during != nil {
		s.during()
	}
}

type mastered struct {
	fakeSong
	volume float64
}

func (s *mastered) MasterSettings(cur master.Settings) master.Settings {
	cur.Volume = s.volume
	return cur
}

type countingSender struct{ n int }

func (s *countingSender) Send([]byte) error {
	s.n++
	return nil
}

type tick struct {
	Tick int64
	Now  uint32
}

type tickLog struct{ got []tick }

func (l *tickLog) Tick(t int64, now uint32) { l.got = append(l.got, tick{t, now}) }

func newTestContext(c *qt.C, size int, song Song, opts ...Option) (*Context, *hw.Sim) {
	sim, err := hw.NewSim(size)
	c.Assert(err, qt.IsNil)

	pool, err := voice.NewPool(8)
	c.Assert(err, qt.IsNil)

	ctx, err := New(Hardware{
		Interrupts: sim.Interrupts,
		TX:         sim.TX(),
		RX:         sim.RX(),
		Timer:      sim.Timer(),
	}, song, pool, testRate, opts...)
	c.Assert(err, qt.IsNil)

	return ctx, sim
}

func TestNewValidates(t *testing.T) {
	c := qt.New(t)
	sim, err := hw.NewSim(64)
	c.Assert(err, qt.IsNil)
	pool, err := voice.NewPool(4)
	c.Assert(err, qt.IsNil)
	h := Hardware{Interrupts: sim.Interrupts, TX: sim.TX(), RX: sim.RX(), Timer: sim.Timer()}

	_, err = New(Hardware{TX: sim.TX()}, &fakeSong{}, pool, testRate)
	c.Assert(err, qt.ErrorMatches, "engine hardware is incomplete")

	_, err = New(h, nil, pool, testRate)
	c.Assert(err, qt.ErrorMatches, "engine needs a song and a voice pool")

	_, err = New(h, &fakeSong{}, pool, testRate, WithRecursionLimit(0))
	c.Assert(err, qt.ErrorMatches, "engine recursion limit must be >= 1: 0")

	_, err = New(h, &fakeSong{}, pool, testRate, WithMaxWindow(3, 2))
	c.Assert(err, qt.ErrorMatches, "engine max window must be a fraction in \\(0, 1\\]: 3/2")

	_, err = New(h, &fakeSong{}, pool, testRate, WithNumSamplesLimit(10))
	c.Assert(err, qt.ErrorMatches, "cull direness offset must be in .*")

	ctx, err := New(h, &fakeSong{}, pool, testRate, nil, WithDoublingThreshold(8))
	c.Assert(err, qt.IsNil)
	c.Assert(ctx.Config().DoublingThreshold, qt.Equals, 8)
}

func TestGrowRoundsToMultiplesOfFour(t *testing.T) {
	c := qt.New(t)
	ctx, _ := newTestContext(c, 256, &fakeSong{})
	c.Assert(ctx.maxWindow, qt.Equals, 170)

	tests := []struct {
		in, want int
	}{
		{1, 1},
		{2, 2},
		{3, 4},
		{5, 4},
		{6, 8},
		{10, 16},
		{87, 168},
		{100, 168},
		{169, 168},
		{200, 200},
		{255, 256},
	}
	for _, test := range tests {
		c.Check(ctx.grow(test.in), qt.Equals, test.want, qt.Commentf("grow(%d)", test.in))
	}
}

func TestSmoothRisesHalfwayAndFallsAtOnce(t *testing.T) {
	c := qt.New(t)
	ctx, _ := newTestContext(c, 64, &fakeSong{})

	ctx.smooth(40)
	c.Assert(ctx.SmoothedSamples(), qt.Equals, 20)
	ctx.smooth(40)
	c.Assert(ctx.SmoothedSamples(), qt.Equals, 30)
	ctx.smooth(10)
	c.Assert(ctx.SmoothedSamples(), qt.Equals, 10)
}

func TestRoutineIdlesWithoutRoom(t *testing.T) {
	c := qt.New(t)
	song := &fakeSong{}
	ctx, sim := newTestContext(c, 256, song)

	ctx.Routine()
	c.Assert(song.lens, qt.HasLen, 0)
	c.Assert(ctx.Stats().Windows, qt.Equals, 0)

	sim.Advance(32)
	ctx.Routine()
	c.Assert(song.lens, qt.DeepEquals, []int{60})
	c.Assert(ctx.Timer(), qt.Equals, uint32(60))
	c.Assert(ctx.Stage().Pending(), qt.Equals, 28)

	before := ctx.Stats()
	for range 3 {
		ctx.Routine()
	}

	after := ctx.Stats()
	c.Assert(song.lens, qt.HasLen, 1)
	c.Assert(ctx.Timer(), qt.Equals, uint32(60))
	c.Assert(after.Windows, qt.Equals, before.Windows)
	c.Assert(after.Samples, qt.Equals, before.Samples)
	c.Assert(after.Backpressure, qt.Equals, before.Backpressure+3)

	sim.Advance(28)
	ctx.Routine()
	c.Assert(ctx.Stage().Pending(), qt.Equals, 0)
	c.Assert(song.lens, qt.HasLen, 1)
}

func TestRoutineHonoursRecursionLimit(t *testing.T) {
	c := qt.New(t)
	song := &fakeSong{}
	ctx, sim := newTestContext(c, 256, song)
	song.during = func() {
		sim.Advance(16)
		ctx.Routine()
	}

	sim.Advance(200)
	ctx.Routine()

	st := ctx.Stats()
	c.Assert(st.Windows, qt.Equals, 5)
	c.Assert(song.lens, qt.DeepEquals, []int{200, 28, 4, 28, 4})
	c.Assert(song.nows, qt.DeepEquals, []uint32{0, 200, 228, 232, 260})
	c.Assert(st.LockedSkips, qt.Equals, 5)
	c.Assert(ctx.Timer(), qt.Equals, uint32(264))
}

func TestRenderMasksInterruptsSymmetrically(t *testing.T) {
	c := qt.New(t)
	song := &fakeSong{}
	ctx, sim := newTestContext(c, 128, song)

	type mask struct {
		DMA, UART, MIDIGate bool
	}

	var inside []mask

	song.during = func() {
		inside = append(inside, mask{
			sim.Interrupts.IsEnabled(hw.InterruptAudioDMA),
			sim.Interrupts.IsEnabled(hw.InterruptUART),
			sim.Interrupts.IsEnabled(hw.InterruptMIDIGate),
		})
	}

	for range 6 {
		sim.Advance(40)
		ctx.Routine()
	}

	renders := len(song.lens)
	c.Assert(renders > 0, qt.IsTrue)
	c.Assert(inside, qt.HasLen, renders)

	for _, m := range inside {
		c.Assert(m, qt.Equals, mask{DMA: false, UART: false, MIDIGate: true})
	}

	c.Assert(sim.Interrupts.Log, qt.HasLen, 4*renders)
	c.Assert(sim.Interrupts.Log[:4], qt.DeepEquals, []hw.MaskChange{
		{ID: hw.InterruptAudioDMA, Enabled: false},
		{ID: hw.InterruptUART, Enabled: false},
		{ID: hw.InterruptAudioDMA, Enabled: true},
		{ID: hw.InterruptUART, Enabled: true},
	})
	c.Assert(sim.Interrupts.IsEnabled(hw.InterruptAudioDMA), qt.IsTrue)
	c.Assert(sim.Interrupts.IsEnabled(hw.InterruptUART), qt.IsTrue)

	sim.Interrupts.Disable(hw.InterruptUART)
	sim.Advance(40)
	ctx.Routine()
	c.Assert(sim.Interrupts.IsEnabled(hw.InterruptUART), qt.IsFalse)
	c.Assert(sim.Interrupts.IsEnabled(hw.InterruptAudioDMA), qt.IsTrue)
}

func TestTicksLandOnTheirSample(t *testing.T) {
	tests := []struct {
		name  string
		swing float64
		want  func(idx int64) uint32
	}{{
		name: "straight",
		want: func(idx int64) uint32 { return uint32(idx * 250) },
	}, {
		name:  "swung",
		swing: 0.5,
		want: func(idx int64) uint32 {
			if (idx/24)%2 == 1 {
				return uint32(idx*250 + 125*(24-idx%24))
			}

			return uint32(idx * 250)
		},
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			log := &tickLog{}
			clk, err := playback.New(testRate, log, nil, playback.WithSwing(test.swing))
			c.Assert(err, qt.IsNil)

			song := &fakeSong{}
			ctx, sim := newTestContext(c, 256, song, WithClock(clk))
			clk.Start(0)

			rng := rand.New(rand.NewPCG(1, 2))
			for i := 0; len(log.got) < 150 && i < 10000; i++ {
				sim.Advance(1 + rng.IntN(64))
				ctx.Routine()
			}

			c.Assert(len(log.got) >= 150, qt.IsTrue)

			for i, got := range log.got {
				c.Assert(got, qt.Equals, tick{int64(i), test.want(int64(i))})
			}

			// Windows follow each other on the sample timer.
			var at uint32
			for i, n := range song.lens {
				c.Assert(song.nows[i], qt.Equals, at)
				at += uint32(n)
			}
		})
	}
}

func TestTimerFlushesWhenTheWindowIsHeard(t *testing.T) {
	c := qt.New(t)
	sender := &countingSender{}
	buf := midiout.NewBuffer(sender)
	out := midiout.NewOutput(buf, nil)
	clk, err := playback.New(testRate, nil, out, playback.WithMIDIClockOut(true))
	c.Assert(err, qt.IsNil)

	ctx, sim := newTestContext(c, 256, &fakeSong{}, WithClock(clk), WithOutputs(out))
	clk.Start(0)
	c.Assert(buf.Len(), qt.Equals, 1)

	sim.Advance(32)
	ctx.Routine()

	// The start message went out at once; the first timing clock waits for
	// the window's first frame to reach the codec.
	c.Assert(sender.n, qt.Equals, 1)
	c.Assert(buf.Len(), qt.Equals, 1)
	c.Assert(sim.Timer().Armed(), qt.IsTrue)
	c.Assert(ctx.Stats().TimerArms, qt.Equals, 1)
	c.Assert(ctx.Stats().ClockOuts, qt.Equals, 1)

	sim.Advance(223)
	c.Assert(sender.n, qt.Equals, 1)

	sim.Advance(1)
	c.Assert(sim.Elapsed(), qt.Equals, uint64(256))
	c.Assert(sender.n, qt.Equals, 2)
	c.Assert(ctx.Stats().TimerFires, qt.Equals, 1)
	c.Assert(out.Flushes(), qt.Equals, 2)
}

func TestReverbStopsAfterIdleTime(t *testing.T) {
	c := qt.New(t)
	song := &fakeSong{level: 0.1, reverb: 0.1}
	ctx, sim := newTestContext(c, 256, song, WithReverbIdle(time.Millisecond))
	c.Assert(ctx.ReverbActive(), qt.IsFalse)

	sim.Advance(32)
	ctx.Routine()
	c.Assert(ctx.Stats().ReverbWindows, qt.Equals, 1)

	song.reverb = 0
	sim.Advance(128)
	ctx.Routine()
	c.Assert(ctx.Stats().Windows, qt.Equals, 2)
	c.Assert(ctx.Stats().ReverbWindows, qt.Equals, 1)
	c.Assert(ctx.ReverbActive(), qt.IsFalse)
}

func TestReverbKeepsRunningWithinIdleTime(t *testing.T) {
	c := qt.New(t)
	song := &fakeSong{reverb: 0.1}
	ctx, sim := newTestContext(c, 256, song)

	sim.Advance(32)
	ctx.Routine()

	song.reverb = 0
	sim.Advance(128)
	ctx.Routine()
	c.Assert(ctx.Stats().ReverbWindows, qt.Equals, 2)
	c.Assert(ctx.ReverbActive(), qt.IsTrue)
}

func TestSideChainHitReachesOneWindow(t *testing.T) {
	c := qt.New(t)
	song := &fakeSong{}
	ctx, sim := newTestContext(c, 256, song)

	ctx.RegisterSideChainHit(0.5)
	ctx.RegisterSideChainHit(0.25)
	sim.Advance(32)
	ctx.Routine()
	c.Assert(ctx.Master().Sidechain.Envelope() > 0, qt.IsTrue)

	sim.Advance(128)
	ctx.Routine()
	c.Assert(song.hits, qt.DeepEquals, []float64{0.5, 0})
}

type owner struct{}

func (owner) ID() uint32                    { return 1 }
func (owner) VoicePriority() voice.Priority { return voice.PriorityMedium }
func (owner) VoiceUnassigned(*voice.Voice)  {}

func TestVoiceStartsThrottledByDireness(t *testing.T) {
	c := qt.New(t)
	song := &fakeSong{}
	ctx, sim := newTestContext(c, 256, song)

	var started []int
	song.during = func() {
		n := 0
		for range 6 {
			if ctx.Pool().Solicit(owner{}, ctx.Timer(), ctx.Culler()) != nil {
				n++
			}
		}
		started = append(started, n)
	}

	sim.Advance(200)
	ctx.Routine()
	c.Assert(ctx.Culler().Direness(), qt.Equals, 14)

	// Direness 14 is two over the throttle, leaving two of four starts.
	sim.Advance(200)
	ctx.Routine()
	c.Assert(started, qt.DeepEquals, []int{4, 2})
	c.Assert(ctx.Pool().Throttled(), qt.Equals, 6)
}

func TestVoiceStartsUncapped(t *testing.T) {
	c := qt.New(t)
	song := &fakeSong{}
	ctx, sim := newTestContext(c, 256, song, WithVoiceStarts(0, 0))

	n := 0
	song.during = func() {
		for range 6 {
			if ctx.Pool().Solicit(owner{}, ctx.Timer(), nil) != nil {
				n++
			}
		}
	}

	sim.Advance(32)
	ctx.Routine()
	c.Assert(n, qt.Equals, 6)
	c.Assert(ctx.Pool().Throttled(), qt.Equals, 0)
}

func TestBypassCullingLastsOneWindow(t *testing.T) {
	c := qt.New(t)
	ctx, sim := newTestContext(c, 256, &fakeSong{})

	ctx.BypassCulling()
	sim.Advance(200)
	ctx.Routine()
	c.Assert(ctx.SmoothedSamples(), qt.Equals, 100)
	c.Assert(ctx.Stats().Tiers[cull.TierNone], qt.Equals, 1)

	sim.Advance(200)
	ctx.Routine()
	c.Assert(ctx.SmoothedSamples(), qt.Equals, 150)
	c.Assert(ctx.Stats().Tiers[cull.TierSoft], qt.Equals, 1)
}

func TestMasterSettingsScaleOutput(t *testing.T) {
	c := qt.New(t)
	song := &mastered{fakeSong: fakeSong{level: 0.5}, volume: 0.5}
	ctx, sim := newTestContext(c, 64, song, WithStageOptions(output.WithDitherAmplitude(0)))

	sim.Advance(16)
	ctx.Routine()
	c.Assert(ctx.Master().Settings().Volume, qt.Equals, 0.5)

	// 0.25 full scale as a 24-bit word in the top of 32 bits.
	c.Assert(sim.TX().Frames()[0], qt.Equals, hw.Frame{L: 1 << 29, R: 1 << 29})

	l, r := testutil.Levels(sim.TX().Frames()[:16])
	testutil.RequireSliceNearlyEqual(c, l, testutil.DC(0.25, 16), 0)
	testutil.RequireSliceNearlyEqual(c, r, testutil.DC(0.25, 16), 0)
}
