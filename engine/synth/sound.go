package synth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-synth/engine/master"
	"github.com/cwbudde/algo-synth/engine/params"
	"github.com/cwbudde/algo-synth/engine/voice"
)

const (
	defaultMaxVoices       = 16
	defaultCableCapacity   = 8
	defaultFastReleaseStep = 1.0 / 256
)

type soundConfig struct {
	name        string
	wave        Wave
	priority    voice.Priority
	maxVoices   int
	cables      int
	duckDepth   float64
	releaseStep float64
}

// SoundOption configures a Sound.
type SoundOption func(*soundConfig) error

// WithName names the sound for logs.
func WithName(name string) SoundOption {
	return func(c *soundConfig) error {
		c.name = name
		return nil
	}
}

// WithWave sets the oscillator waveform.
func WithWave(w Wave) SoundOption {
	return func(c *soundConfig) error {
		if int(w) >= len(waveNames) {
			return fmt.Errorf("synth wave out of range: %d", w)
		}

		c.wave = w

		return nil
	}
}

// WithPriority sets the voice priority the culler sees.
func WithPriority(p voice.Priority) SoundOption {
	return func(c *soundConfig) error {
		if p > voice.PriorityHigh {
			return fmt.Errorf("synth voice priority out of range: %d", p)
		}

		c.priority = p

		return nil
	}
}

// WithMaxVoices caps the sound's polyphony. Past the cap the oldest voice
// is fast-released to make room.
func WithMaxVoices(n int) SoundOption {
	return func(c *soundConfig) error {
		if n < 1 {
			return fmt.Errorf("synth max voices must be >= 1: %d", n)
		}

		c.maxVoices = n

		return nil
	}
}

// WithCableCapacity sets how many patch cables the sound can hold.
func WithCableCapacity(n int) SoundOption {
	return func(c *soundConfig) error {
		if n < 0 {
			return fmt.Errorf("synth cable capacity must be >= 0: %d", n)
		}

		c.cables = n

		return nil
	}
}

// WithDucking makes the sound duck under sidechain hits by depth in
// [0, 1].
func WithDucking(depth float64) SoundOption {
	return func(c *soundConfig) error {
		if depth < 0 || depth > 1 || math.IsNaN(depth) {
			return fmt.Errorf("synth ducking depth must be in [0, 1]: %f", depth)
		}

		c.duckDepth = depth

		return nil
	}
}

// SoundStats counts a sound's voice traffic.
type SoundStats struct {
	NotesOn      int
	NotesDropped int
	Stolen       int
	Unassigned   int
}

// Sound is a synth patch that plays voices from a shared pool. It
// implements voice.Owner, and listens to its own parameter collections.
type Sound struct {
	id         uint32
	cfg        soundConfig
	sampleRate float64
	pool       *voice.Pool
	culler     voice.Culler

	patched *params.ParamSet
	cables  *params.PatchCableSet
	expr    *params.ParamSet

	exprTarget    [NumExpressions]int32
	exprRemaining [NumExpressions]int32

	dirty  bool
	volume float64
	pan    float64
	pitch  float64
	send   float64
	shape  voice.Shape
	lfoInc float64

	lfoPhase float64
	duck     *master.Sidechain

	voices []*voice.Voice
	done   []*voice.Voice
	buf    []float64
	tmp    []float64

	stats SoundStats
}

// NewSound returns a sound with the given voice owner ID. culler may be
// nil and set later with SetCuller.
func NewSound(id uint32, sampleRate float64, pool *voice.Pool, opts ...SoundOption) (*Sound, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("synth sample rate must be > 0 and finite: %f", sampleRate)
	}

	if pool == nil {
		return nil, fmt.Errorf("synth sound needs a voice pool")
	}

	cfg := soundConfig{
		maxVoices:   defaultMaxVoices,
		cables:      defaultCableCapacity,
		priority:    voice.PriorityMedium,
		releaseStep: defaultFastReleaseStep,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.name == "" {
		cfg.name = fmt.Sprintf("sound %d", id)
	}

	s := &Sound{
		id:         id,
		cfg:        cfg,
		sampleRate: sampleRate,
		pool:       pool,
		dirty:      true,
	}

	s.patched = params.NewParamSet(NumParams, s)
	s.cables = params.NewPatchCableSet(cfg.cables, s)
	s.expr = params.NewParamSet(NumExpressions, nil)

	s.patched.SetValue(ParamVolume, Unipolar(0.8))
	s.patched.SetValue(ParamAttack, Unipolar(0.02))
	s.patched.SetValue(ParamDecay, Unipolar(0.2))
	s.patched.SetValue(ParamSustain, Unipolar(0.7))
	s.patched.SetValue(ParamRelease, Unipolar(0.1))
	s.patched.SetValue(ParamLFORate, Unipolar(0.1))

	if cfg.duckDepth > 0 {
		duck, err := master.NewSidechain(sampleRate, 1, 150, cfg.duckDepth)
		if err != nil {
			return nil, err
		}

		s.duck = duck
	}

	return s, nil
}

// ID implements voice.Owner.
func (s *Sound) ID() uint32 { return s.id }

// Name returns the sound's name.
func (s *Sound) Name() string { return s.cfg.name }

// VoicePriority implements voice.Owner.
func (s *Sound) VoicePriority() voice.Priority { return s.cfg.priority }

// VoiceUnassigned implements voice.Owner.
func (s *Sound) VoiceUnassigned(*voice.Voice) { s.stats.Unassigned++ }

// SetCuller sets who is asked to free a voice when the pool is exhausted.
func (s *Sound) SetCuller(c voice.Culler) { s.culler = c }

// Patched returns the sound's patched parameters.
func (s *Sound) Patched() *params.ParamSet { return s.patched }

// Cables returns the sound's patch cables.
func (s *Sound) Cables() *params.PatchCableSet { return s.cables }

// Expression returns the per-sample smoothed expression parameters.
func (s *Sound) Expression() *params.ParamSet { return s.expr }

// Stats returns the sound's voice counters.
func (s *Sound) Stats() SoundStats { return s.stats }

// Voices returns the number of voices the sound is playing.
func (s *Sound) Voices() int { return s.pool.CountOf(s.id) }

// ParamValueChanged implements params.Listener.
func (s *Sound) ParamValueChanged(int) { s.dirty = true }

// AutomationStateChanged implements params.Listener.
func (s *Sound) AutomationStateChanged(int, bool) { s.dirty = true }

// RoutingChanged implements params.RoutingListener.
func (s *Sound) RoutingChanged() { s.dirty = true }

// SetExpression glides expression parameter i to v over samples samples.
// A glide of zero samples jumps.
func (s *Sound) SetExpression(i int, v int32, samples int32) {
	if samples <= 0 {
		s.exprRemaining[i] = 0
		s.expr.Param(i).Increment = 0
		s.expr.SetValue(i, v)

		return
	}

	p := s.expr.Param(i)
	s.exprTarget[i] = v
	s.exprRemaining[i] = samples
	p.Increment = int32((int64(v) - int64(p.CurrentValue)) / int64(samples))

	if p.Increment == 0 {
		s.exprRemaining[i] = 0
		p.CurrentValue = v
	}

	s.expr.NotifyParamModified(i)
}

// NoteOn starts a voice. It returns false if no voice could be found, in
// which case the note is dropped.
func (s *Sound) NoteOn(note, channel int, velocity float64, now uint32) bool {
	if s.pool.CountOf(s.id) >= s.cfg.maxVoices {
		s.stealOldest(now)
	}

	v := s.pool.Solicit(s, now, s.culler)
	if v == nil {
		s.stats.NotesDropped++
		logger.Debugf("%s: no voice for note %d", s.cfg.name, note)

		return false
	}

	v.NoteOn(note, channel, clamp(velocity, 0, 1), now)
	s.stats.NotesOn++

	return true
}

// NoteOff releases every voice playing note on channel. A negative
// channel matches any channel.
func (s *Sound) NoteOff(note, channel int, now uint32) {
	s.voices = s.pool.AppendVoicesOf(s.voices[:0], s.id)
	for _, v := range s.voices {
		if v.MatchesMPE(note, channel) {
			v.NoteOff(now)
		}
	}
}

// AllNotesOff releases every voice of the sound.
func (s *Sound) AllNotesOff(now uint32) {
	s.voices = s.pool.AppendVoicesOf(s.voices[:0], s.id)
	for _, v := range s.voices {
		v.NoteOff(now)
	}
}

// Render adds the sound's voices to l and r and its reverb send to
// reverb. All three must have the same length. Finished voices are
// returned to the pool.
func (s *Sound) Render(l, r, reverb []float64, sideChainHit float64, now uint32) {
	n := len(l)
	s.grow(n)
	s.tickExpression(int32(n))

	if s.dirty {
		s.derive()
	}

	duck := 1.0
	if s.duck != nil {
		duck = s.duck.Render(n, sideChainHit)
	}

	lfo := math.Sin(2 * math.Pi * s.lfoPhase)
	s.lfoPhase += s.lfoInc * float64(n)
	s.lfoPhase -= math.Floor(s.lfoPhase)

	bend := 2 * bipolar(s.expr.Value(ExprPitchBend))
	buf, tmp := s.buf[:n], s.tmp[:n]

	s.voices = s.pool.AppendVoicesOf(s.voices[:0], s.id)
	s.done = s.done[:0]

	for _, v := range s.voices {
		vol, pan, pitch, send := s.modulate(v, lfo)

		inc := 440 * math.Exp2((float64(v.Note)-69+pitch+bend)/12) / s.sampleRate
		for i := range buf {
			buf[i] = s.cfg.wave.sample(v.Phase) * v.Env.Step(&s.shape, now+uint32(i))

			v.Phase += inc
			if v.Phase >= 1 {
				v.Phase -= math.Floor(v.Phase)
			}
		}

		v.Rendered = true

		gain := vol * v.Velocity * duck
		gl, gr := master.PanGains(pan)

		vecmath.ScaleBlock(tmp, buf, gain*gl)
		vecmath.AddBlockInPlace(l, tmp)
		vecmath.ScaleBlock(tmp, buf, gain*gr)
		vecmath.AddBlockInPlace(r, tmp)

		if send > 0 {
			vecmath.ScaleBlock(tmp, buf, gain*send)
			vecmath.AddBlockInPlace(reverb, tmp)
		}

		if v.Done() {
			s.done = append(s.done, v)
		}
	}

	for _, v := range s.done {
		s.pool.Unassign(v, true, true)
	}
}

// stealOldest fast-releases the sound's oldest voice that is not already
// on its way out.
func (s *Sound) stealOldest(now uint32) {
	s.voices = s.pool.AppendVoicesOf(s.voices[:0], s.id)

	var oldest *voice.Voice

	for _, v := range s.voices {
		if v.Env.Stage >= voice.StageFastRelease {
			continue
		}

		if oldest == nil || int32(v.AssignedAt-oldest.AssignedAt) < 0 {
			oldest = v
		}
	}

	if oldest == nil {
		return
	}

	s.stats.Stolen++
	if !oldest.FastRelease(now, s.cfg.releaseStep) {
		s.pool.Unassign(oldest, true, true)
	}
}

func (s *Sound) tickExpression(n int32) {
	s.expr.TickSamples(n)

	for i := range s.exprRemaining {
		if s.exprRemaining[i] == 0 {
			continue
		}

		s.exprRemaining[i] -= min(n, s.exprRemaining[i])
		if s.exprRemaining[i] == 0 {
			p := s.expr.Param(i)
			p.CurrentValue = s.exprTarget[i]
			p.Increment = 0
			s.expr.NotifyParamModified(i)
		}
	}
}

func (s *Sound) derive() {
	s.dirty = false
	s.volume = unipolar(s.patched.Value(ParamVolume))
	s.pan = bipolar(s.patched.Value(ParamPan))
	s.pitch = semitones(s.patched.Value(ParamPitch))
	s.send = unipolar(s.patched.Value(ParamReverbSend))
	s.shape = voice.Shape{
		Attack:  s.rate(envTime(s.patched.Value(ParamAttack))),
		Decay:   s.rate(envTime(s.patched.Value(ParamDecay))),
		Sustain: unipolar(s.patched.Value(ParamSustain)),
		Release: s.rate(envTime(s.patched.Value(ParamRelease))),
	}

	s.lfoInc = (0.05 + 20*unipolar(s.patched.Value(ParamLFORate))) / s.sampleRate
}

// rate turns a stage time into a per-sample step; zero time is instant.
func (s *Sound) rate(seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}

	return 1 / (seconds * s.sampleRate)
}

// modulate applies the patch cables to the sound's base values for v.
func (s *Sound) modulate(v *voice.Voice, lfo float64) (vol, pan, pitch, send float64) {
	vol, pan, pitch, send = s.volume, s.pan, s.pitch, s.send

	for i := range s.cables.Len() {
		cable := s.cables.Cable(i)
		amount := bipolar(s.cables.Depth(i)) * s.source(cable.Source, v, lfo)

		switch cable.Destination {
		case ParamVolume:
			vol += amount
		case ParamPan:
			pan += amount
		case ParamPitch:
			pitch += 12 * amount
		case ParamReverbSend:
			send += amount
		}
	}

	return clamp(vol, 0, 1), clamp(pan, -1, 1), pitch, clamp(send, 0, 1)
}

func (s *Sound) source(src params.Source, v *voice.Voice, lfo float64) float64 {
	switch src {
	case params.SourceVelocity:
		return v.Velocity
	case params.SourceNote:
		return float64(v.Note-60) / 64
	case params.SourceEnvelope:
		return v.Env.Level
	case params.SourceLFO:
		return lfo
	case params.SourceAftertouch:
		return unipolar(s.expr.Value(ExprAftertouch))
	case params.SourceRandom:
		h := v.ID * 2654435761

		return float64(h>>16)/float64(0xFFFF)*2 - 1
	default:
		return 0
	}
}

func (s *Sound) grow(n int) {
	if cap(s.buf) < n {
		s.buf = make([]float64, n)
		s.tmp = make([]float64, n)
	}
}

var (
	_ voice.Owner            = (*Sound)(nil)
	_ params.Listener        = (*Sound)(nil)
	_ params.RoutingListener = (*Sound)(nil)
)
