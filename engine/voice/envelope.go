package voice

// Stage is an envelope stage. The order matters: later stages are more
// cullable, and anything at or past StageFastRelease is already on its way out.
type Stage uint8

// Envelope stages.
const (
	StageAttack Stage = iota
	StageHold
	StageDecay
	StageSustain
	StageRelease
	StageFastRelease
	StageOff
)

var stageNames = [...]string{"attack", "hold", "decay", "sustain", "release", "fast-release", "off"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}

	return "unknown"
}

// Shape holds per-sample envelope rates. A non-positive rate makes the
// corresponding stage instantaneous.
type Shape struct {
	Attack  float64
	Hold    uint32
	Decay   float64
	Sustain float64
	Release float64
}

// Envelope is a linear ADSR with an extra hold stage and a fast release
// used by culling.
type Envelope struct {
	Stage     Stage
	Level     float64
	EnteredAt uint32

	// FastReleaseStep is the per-sample decrement while in StageFastRelease.
	FastReleaseStep float64
}

func (e *Envelope) enter(s Stage, now uint32) {
	e.Stage = s
	e.EnteredAt = now
}

// Start restarts the envelope from silence.
func (e *Envelope) Start(now uint32) {
	e.Level = 0
	e.FastReleaseStep = 0
	e.enter(StageAttack, now)
}

// Release moves a sounding envelope into its release stage.
func (e *Envelope) Release(now uint32) {
	if e.Stage < StageRelease {
		e.enter(StageRelease, now)
	}
}

// FastRelease moves the envelope into a short release tail, or speeds up
// one already in progress.
func (e *Envelope) FastRelease(now uint32, step float64) {
	if e.Stage < StageFastRelease {
		e.enter(StageFastRelease, now)
		e.FastReleaseStep = step

		return
	}

	if e.Stage == StageFastRelease {
		e.FastReleaseStep = max(e.FastReleaseStep, step)
	}
}

// Step advances one sample and returns the new level.
func (e *Envelope) Step(s *Shape, now uint32) float64 {
	switch e.Stage {
	case StageAttack:
		e.Level += rateOrInstant(s.Attack)
		if e.Level >= 1 {
			e.Level = 1
			e.enter(StageHold, now)
		}
	case StageHold:
		if now-e.EnteredAt >= s.Hold {
			e.enter(StageDecay, now)
		}
	case StageDecay:
		e.Level -= rateOrInstant(s.Decay)
		if e.Level <= s.Sustain {
			e.Level = s.Sustain
			e.enter(StageSustain, now)
		}
	case StageSustain:
		e.Level = s.Sustain
	case StageRelease:
		e.Level -= rateOrInstant(s.Release)
		if e.Level <= 0 {
			e.Level = 0
			e.enter(StageOff, now)
		}
	case StageFastRelease:
		e.Level -= rateOrInstant(e.FastReleaseStep)
		if e.Level <= 0 {
			e.Level = 0
			e.enter(StageOff, now)
		}
	case StageOff:
		e.Level = 0
	}

	return e.Level
}

func rateOrInstant(rate float64) float64 {
	if rate <= 0 {
		return 2
	}

	return rate
}
