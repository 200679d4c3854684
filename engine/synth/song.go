package synth

import (
	"fmt"
	"math"

	"github.com/juju/loggo"

	"github.com/cwbudde/algo-synth/engine/master"
	"github.com/cwbudde/algo-synth/engine/params"
	"github.com/cwbudde/algo-synth/engine/voice"
)

var logger = loggo.GetLogger("algosynth.synth")

// DefaultLoopLength is one 4/4 bar at 96 ticks per quarter note.
const DefaultLoopLength = 384

// Step is one note of the song's pattern.
type Step struct {
	// Pos is the tick within the loop the note starts on.
	Pos   int32
	Sound int
	Note  int
	// Velocity is in [0, 1].
	Velocity float64
	// Length is the note length in ticks.
	Length int32
	// SideChain is the strength of the sidechain hit the step sends,
	// 0 for none.
	SideChain float64
}

type pendingOff struct {
	at    int64
	sound *Sound
	note  int
}

// Song owns the sounds, clips and pattern the scheduler renders. It
// implements playback.Sequencer and cull.ClipCuller.
type Song struct {
	sampleRate float64
	pool       *voice.Pool
	culler     voice.Culler

	sounds []*Sound
	clips  []*Clip
	steps  []Step
	offs   []pendingOff

	global   *params.ParamSet
	colls    []params.Collection
	length   int32
	ticksTil int32

	// OnSideChainHit is called when a step sends a sidechain hit.
	OnSideChainHit func(strength float64)
}

// NewSong returns an empty song looping every length ticks.
func NewSong(sampleRate float64, pool *voice.Pool, length int32) (*Song, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("synth sample rate must be > 0 and finite: %f", sampleRate)
	}

	if pool == nil {
		return nil, fmt.Errorf("synth song needs a voice pool")
	}

	if length <= 0 {
		return nil, fmt.Errorf("synth loop length must be > 0: %d", length)
	}

	s := &Song{
		sampleRate: sampleRate,
		pool:       pool,
		global:     params.NewParamSet(NumGlobals, nil),
		length:     length,
	}

	s.colls = []params.Collection{s.global}
	s.global.SetValue(GlobalVolume, Unipolar(1))
	s.global.SetValue(GlobalLPF, Unipolar(1))
	s.global.SetValue(GlobalReverb, Unipolar(1))
	s.global.SetValue(GlobalSidechain, Unipolar(0.5))

	return s, nil
}

// AddSound creates a sound in the song.
func (s *Song) AddSound(opts ...SoundOption) (*Sound, error) {
	snd, err := NewSound(uint32(len(s.sounds)+1), s.sampleRate, s.pool, opts...)
	if err != nil {
		return nil, err
	}

	snd.SetCuller(s.culler)
	s.sounds = append(s.sounds, snd)
	s.colls = append(s.colls, snd.patched, snd.cables)

	return snd, nil
}

// Sounds returns the song's sounds in creation order.
func (s *Song) Sounds() []*Sound { return s.sounds }

// AddClip adds a looping clip. It starts stopped.
func (s *Song) AddClip(samples []float64, gain, pan float64) *Clip {
	c := &Clip{samples: samples, gain: gain, pan: pan}
	s.clips = append(s.clips, c)

	return c
}

// Clips returns the song's clips.
func (s *Song) Clips() []*Clip { return s.clips }

// AddStep adds a note to the pattern.
func (s *Song) AddStep(st Step) error {
	if st.Pos < 0 || st.Pos >= s.length {
		return fmt.Errorf("synth step position out of loop: %d", st.Pos)
	}

	if st.Sound < 0 || st.Sound >= len(s.sounds) {
		return fmt.Errorf("synth step sound out of range: %d", st.Sound)
	}

	if st.Length <= 0 {
		return fmt.Errorf("synth step length must be > 0: %d", st.Length)
	}

	s.steps = append(s.steps, st)

	return nil
}

// Global returns the song's global parameters.
func (s *Song) Global() *params.ParamSet { return s.global }

// LoopLength returns the loop length in ticks.
func (s *Song) LoopLength() int32 { return s.length }

// SetCuller sets the culler every sound solicits voices with.
func (s *Song) SetCuller(c voice.Culler) {
	s.culler = c
	for _, snd := range s.sounds {
		snd.SetCuller(c)
	}
}

// Tick advances automation by one tick and plays the pattern at tick.
func (s *Song) Tick(tick int64, now uint32) {
	pos := int32(tick % int64(s.length))
	if s.ticksTil <= 0 || pos == 0 {
		s.ticksTil = s.processCurrentPos(pos)
	} else {
		s.tickTicks()
	}

	s.ticksTil--

	kept := s.offs[:0]
	for _, o := range s.offs {
		if o.at <= tick {
			o.sound.NoteOff(o.note, -1, now)
		} else {
			kept = append(kept, o)
		}
	}

	s.offs = kept

	for _, st := range s.steps {
		if st.Pos != pos {
			continue
		}

		snd := s.sounds[st.Sound]
		if snd.NoteOn(st.Note, 0, st.Velocity, now) {
			s.offs = append(s.offs, pendingOff{at: tick + int64(st.Length), sound: snd, note: st.Note})
		}

		if st.SideChain > 0 && s.OnSideChainHit != nil {
			s.OnSideChainHit(st.SideChain)
		}
	}
}

// SetPlayPos moves playback to tick, grabbing automated values there.
func (s *Song) SetPlayPos(tick int64) {
	pos := int32(tick % int64(s.length))
	for _, c := range s.colls {
		c.SetPlayPos(pos, s.length)
	}

	s.ticksTil = 0
}

// Stop releases every note, ends automation ramps and stops the clips.
func (s *Song) Stop(now uint32) {
	for _, snd := range s.sounds {
		snd.AllNotesOff(now)
	}

	for _, c := range s.colls {
		c.PlaybackHasEnded()
	}

	for _, c := range s.clips {
		c.Stop()
	}

	s.offs = s.offs[:0]
	s.ticksTil = 0
}

// RenderAudio renders every sound and clip into l, r and reverb, which
// the caller has zeroed.
func (s *Song) RenderAudio(l, r, reverb []float64, sideChainHit float64, now uint32) {
	for _, snd := range s.sounds {
		snd.Render(l, r, reverb, sideChainHit, now)
	}

	for _, c := range s.clips {
		c.render(l, r)
	}
}

// CullAudioClipVoice stops the clip that has played longest. It
// implements cull.ClipCuller.
func (s *Song) CullAudioClipVoice() bool {
	var oldest *Clip

	for _, c := range s.clips {
		if c.playing && (oldest == nil || int32(c.started-oldest.started) < 0) {
			oldest = c
		}
	}

	if oldest == nil {
		return false
	}

	oldest.Stop()
	logger.Debugf("stopped an audio clip to free a voice")

	return true
}

// MasterSettings returns base with the song's global parameters applied.
func (s *Song) MasterSettings(base master.Settings) master.Settings {
	base.Volume = unipolar(s.global.Value(GlobalVolume))
	base.Pan = bipolar(s.global.Value(GlobalPan))

	base.LPFFreq = 0
	if v := s.global.Value(GlobalLPF); v < Unipolar(1) {
		base.LPFFreq = cutoff(v)
	}

	base.HPFFreq = 0
	if v := s.global.Value(GlobalHPF); v > 0 {
		base.HPFFreq = cutoff(v)
	}

	base.ReverbVolume = unipolar(s.global.Value(GlobalReverb))
	base.SidechainDepth = unipolar(s.global.Value(GlobalSidechain))

	return base
}

func (s *Song) processCurrentPos(pos int32) int32 {
	next := int32(math.MaxInt32)
	for _, c := range s.colls {
		next = min(next, c.ProcessCurrentPos(pos, s.length))
	}

	return next
}

func (s *Song) tickTicks() {
	for _, c := range s.colls {
		c.TickTicks(1)
	}
}
