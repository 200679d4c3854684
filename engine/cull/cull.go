package cull

import (
	"github.com/juju/loggo"

	"github.com/cwbudde/algo-synth/engine/voice"
)

var logger = loggo.GetLogger("algosynth.cull")

// ClipCuller stops an audio clip voice when no synth voice is left to cull.
type ClipCuller interface {
	CullAudioClipVoice() bool
}

// Tier is the severity a window was judged at.
type Tier uint8

// Severity tiers, mildest first.
const (
	TierNone Tier = iota
	TierMarginal
	TierSoft
	TierHard
)

var tierNames = [...]string{"none", "marginal", "soft", "hard"}

func (t Tier) String() string { return tierNames[t] }

// Stats counts what the engine has culled.
type Stats struct {
	HardCulls int
	SoftCulls int
	ClipCulls int
}

// Engine picks and culls voices from a pool.
type Engine struct {
	cfg      Config
	pool     *voice.Pool
	clips    ClipCuller
	direness Direness

	now            uint32
	lastNumSamples int
	stats          Stats
}

// New returns an Engine culling from pool. clips may be nil.
func New(pool *voice.Pool, clips ClipCuller, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Engine{cfg: cfg, pool: pool, clips: clips}, nil
}

// Config returns the thresholds in use.
func (e *Engine) Config() Config { return e.cfg }

// Direness returns the current direness level.
func (e *Engine) Direness() int { return e.direness.Level() }

// Stats returns the cull counters.
func (e *Engine) Stats() Stats { return e.stats }

// SetNow sets the sample time used to age voices and stamp releases.
func (e *Engine) SetNow(now uint32) { e.now = now }

// PreferCulling reports whether the last window was so large that a new
// note should steal a voice rather than grow the voice count. Each yes
// lowers the remembered window size, so a burst of note-ons steals only a
// few voices.
func (e *Engine) PreferCulling() bool {
	if e.lastNumSamples < e.cfg.CullFirstSamples || e.pool.Len() == 0 {
		return false
	}

	e.lastNumSamples -= 10
	return true
}

// Assess updates direness for a window of numSamples frames and culls
// according to the severity tiers. bypass skips culling but still tracks
// direness. It returns the tier applied.
func (e *Engine) Assess(numSamples int, now uint32, bypass bool) Tier {
	e.now = now
	growing := numSamples > e.lastNumSamples
	e.lastNumSamples = numSamples
	e.direness.Update(&e.cfg, numSamples, now)

	if numSamples < e.cfg.Threshold() {
		return TierNone
	}

	over := numSamples - e.cfg.Limit
	if bypass {
		if over >= 0 {
			logger.Debugf("not culling, but window is %d samples", numSamples)
		}

		return TierNone
	}

	active := e.pool.Len()
	if active <= e.cfg.MinVoices {
		if over >= e.cfg.ForceOverage {
			e.CullVoice(false, true)
			logger.Debugf("under %d voices but culling anyway, window %d", e.cfg.MinVoices, numSamples)

			return TierSoft
		}

		return TierNone
	}

	switch {
	case over >= e.cfg.HardOverage:
		n := min(over>>3, active-e.cfg.MinVoices)
		for i := range n {
			e.CullVoice(false, i > 0)
		}

		logger.Infof("hard cull: %d voices, window %d, voices left %d", n, numSamples, e.pool.Len())
		return TierHard
	case over >= 0:
		e.CullVoice(false, true)
		logger.Debugf("soft cull, window %d, voices left %d", numSamples, e.pool.Len())

		return TierSoft
	case over >= e.cfg.MarginalOverage && growing:
		e.CullVoice(false, true)
		logger.Debugf("marginal cull, window %d growing", numSamples)

		return TierMarginal
	}

	return TierNone
}

// CullVoice stops the most cullable voice: the one with the highest
// voice.Rating. With justFastRelease the voice gets a short release tail
// instead of being cut, and nothing is returned. Otherwise the voice is
// unassigned and, if save is set, returned for reuse. With no voice to
// cull, an audio clip voice is stopped instead unless only a fast release
// was asked for.
func (e *Engine) CullVoice(save, justFastRelease bool) *voice.Voice {
	best := e.pick(justFastRelease)
	if best == nil {
		if !justFastRelease && e.clips != nil && e.clips.CullAudioClipVoice() {
			e.stats.ClipCulls++
			logger.Debugf("culled an audio clip voice")
		}

		return nil
	}

	e.pool.MustContain(best)

	if justFastRelease {
		if !best.FastRelease(e.now, e.cfg.FastReleaseStep) {
			e.pool.Unassign(best, true, true)
		}

		e.stats.SoftCulls++
		logger.Debugf("soft-culled 1 voice, voices now %d", e.pool.Len())

		return nil
	}

	e.pool.Unassign(best, true, !save)
	e.stats.HardCulls++
	if !save {
		return nil
	}

	return best
}

func (e *Engine) pick(justFastRelease bool) *voice.Voice {
	var (
		best       *voice.Voice
		bestRating uint32
	)
	for v := range e.pool.All() {
		if justFastRelease && v.Env.Stage >= voice.StageFastRelease && v.Env.FastReleaseStep >= e.cfg.FastReleaseStep {
			continue
		}

		var count int
		if v.Owner != nil {
			count = e.pool.CountOf(v.Owner.ID())
		}

		r := voice.Rating(v, count, e.now)
		if best == nil || r > bestRating {
			best, bestRating = v, r
		}
	}

	return best
}

var _ voice.Culler = (*Engine)(nil)
