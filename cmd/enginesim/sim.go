package main

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/errgo.v1"

	"github.com/cwbudde/algo-synth/engine"
	"github.com/cwbudde/algo-synth/engine/automation"
	"github.com/cwbudde/algo-synth/engine/hw"
	"github.com/cwbudde/algo-synth/engine/midiout"
	"github.com/cwbudde/algo-synth/engine/output"
	"github.com/cwbudde/algo-synth/engine/playback"
	"github.com/cwbudde/algo-synth/engine/recorder"
	"github.com/cwbudde/algo-synth/engine/synth"
	"github.com/cwbudde/algo-synth/engine/voice"
)

// cardInterval is how often recorders get to write to their files.
const cardInterval = 20 * time.Millisecond

// sink receives the frames the simulated codec plays.
type sink interface {
	Play(frames []hw.Frame) error
	Close() error
}

type midiLog struct{}

func (midiLog) Send(data []byte) error {
	logger.Tracef("midi % x", data)
	return nil
}

type gateLog struct{}

func (gateLog) SetGate(ch int, on bool) {
	logger.Tracef("gate %d on=%v", ch, on)
}

type simulation struct {
	cfg   config
	hw    *hw.Sim
	eng   *engine.Context
	song  *synth.Song
	clock *playback.Clock
	out   *midiout.Output
	recs  *recorder.List
}

// newSimulation builds the engine, song and clock described by cfg. rec,
// if not nil, receives a WAV file of the first recordFrames frames.
func newSimulation(cfg config, rec io.Writer, recordFrames int) (*simulation, error) {
	sim, err := hw.NewSim(cfg.RingSize)
	if err != nil {
		return nil, errgo.Mask(err)
	}

	pool, err := voice.NewPool(cfg.Voices)
	if err != nil {
		return nil, errgo.Mask(err)
	}

	song, err := buildSong(cfg, pool)
	if err != nil {
		return nil, errgo.Mask(err)
	}

	gates, err := midiout.NewGates(1, uint32(cfg.SampleRate/1000), gateLog{})
	if err != nil {
		return nil, errgo.Mask(err)
	}

	out := midiout.NewOutput(midiout.NewBuffer(midiLog{}), gates)

	clockOpts := []playback.Option{
		playback.WithTempo(cfg.Tempo),
		playback.WithSwing(cfg.Swing),
		playback.WithMIDIClockOut(cfg.MIDIClock),
	}

	if cfg.TriggerPPQN > 0 {
		clockOpts = append(clockOpts, playback.WithTriggerClock(0, cfg.TriggerPPQN))
	}

	clock, err := playback.New(cfg.SampleRate, song, out, clockOpts...)
	if err != nil {
		return nil, errgo.Mask(err)
	}

	recs := recorder.NewList(1)
	if rec != nil {
		r, err := recorder.New(rec, recorder.SourceOutput, recordFrames, uint32(cfg.SampleRate))
		if err != nil {
			return nil, errgo.Mask(err)
		}

		recs.Add(r)
	}

	opts := []engine.Option{
		engine.WithClock(clock),
		engine.WithOutputs(out),
		engine.WithStageOptions(output.WithRecorders(recs)),
	}

	if cfg.Limit > 0 {
		opts = append(opts, engine.WithNumSamplesLimit(cfg.Limit))
	}

	eng, err := engine.New(engine.Hardware{
		Interrupts: sim.Interrupts,
		TX:         sim.TX(),
		RX:         sim.RX(),
		Timer:      sim.Timer(),
	}, song, pool, cfg.SampleRate, opts...)
	if err != nil {
		return nil, errgo.Mask(err)
	}

	ms := eng.Master().Settings()
	ms.MetronomeVolume = cfg.Metronome
	if err := eng.Master().Apply(ms); err != nil {
		return nil, errgo.Mask(err)
	}

	song.OnSideChainHit = eng.RegisterSideChainHit
	clock.OnBeat = eng.Master().Metronome.Trigger

	return &simulation{
		cfg:   cfg,
		hw:    sim,
		eng:   eng,
		song:  song,
		clock: clock,
		out:   out,
		recs:  recs,
	}, nil
}

func buildSong(cfg config, pool *voice.Pool) (*synth.Song, error) {
	song, err := synth.NewSong(cfg.SampleRate, pool, cfg.Loop)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(cfg.Sounds))
	for i, sc := range cfg.Sounds {
		wave, _ := synth.ParseWave(sc.Wave)
		opts := []synth.SoundOption{
			synth.WithName(sc.Name),
			synth.WithWave(wave),
			synth.WithPriority(priorityNames[sc.Priority]),
		}

		if sc.MaxVoices > 0 {
			opts = append(opts, synth.WithMaxVoices(sc.MaxVoices))
		}

		if sc.Ducking > 0 {
			opts = append(opts, synth.WithDucking(sc.Ducking))
		}

		snd, err := song.AddSound(opts...)
		if err != nil {
			return nil, errgo.Notef(err, "sound %q", sc.Name)
		}

		for name, v := range sc.Params {
			p := paramNames[name]
			snd.Patched().SetValue(p, encodeParam(p, v))
		}

		index[sc.Name] = i
	}

	for _, st := range cfg.Steps {
		err := song.AddStep(synth.Step{
			Pos:       st.Pos,
			Sound:     index[st.Sound],
			Note:      st.Note,
			Velocity:  st.Velocity,
			Length:    st.Length,
			SideChain: st.SideChain,
		})
		if err != nil {
			return nil, err
		}
	}

	if len(cfg.Volume) > 0 {
		nodes := make([]automation.Node, len(cfg.Volume))
		for i, n := range cfg.Volume {
			nodes[i] = automation.Node{Pos: n.Pos, Value: synth.Unipolar(n.Value), Interpolated: n.Interp}
		}

		song.Global().SetNodes(synth.GlobalVolume, nodes...)
	}

	return song, nil
}

// run plays the song for the configured length. The render loop and the
// recorders' file writing run side by side, as they would on the device.
// When rendering ends, early or not, recordings keep what was captured
// and are finished before run returns.
func (s *simulation) run(ctx context.Context, dst sink) error {
	total := int(s.cfg.Seconds * s.cfg.SampleRate)

	s.song.SetPlayPos(0)
	s.clock.Start(s.eng.Timer())

	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		defer s.recs.Stop()

		return s.render(ctx, dst, total)
	})

	g.Go(func() error {
		tick := time.NewTicker(cardInterval)
		defer tick.Stop()

		for {
			select {
			case <-done:
				if err := s.recs.CardRoutine(); err != nil {
					return errgo.Notef(err, "cannot finish recording")
				}

				return nil
			case <-tick.C:
				if err := s.recs.CardRoutine(); err != nil {
					return errgo.Notef(err, "cannot write recording")
				}
			}
		}
	})

	return g.Wait()
}

func (s *simulation) render(ctx context.Context, dst sink, total int) error {
	s.eng.Routine()

	for played := 0; played < total; {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := min(s.cfg.Block, total-played)
		if err := dst.Play(s.hw.Advance(n)); err != nil {
			return errgo.Notef(err, "cannot play")
		}

		played += n
		s.eng.Routine()
	}

	s.clock.Stop()
	s.song.Stop(s.eng.Timer())
	s.eng.Routine()

	st := s.eng.Stats()
	logger.Infof("rendered %d samples in %d windows, %d ticks, %d timer flushes",
		st.Samples, st.Windows, st.Ticks, st.TimerFires)
	logger.Infof("cull tiers %v, culled %+v, direness %d",
		st.Tiers, s.eng.Culler().Stats(), s.eng.Culler().Direness())

	for _, snd := range s.song.Sounds() {
		logger.Infof("sound %s: %+v", snd.Name(), snd.Stats())
	}

	return nil
}
