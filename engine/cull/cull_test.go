package cull

import (
	"math/rand/v2"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/cwbudde/algo-synth/engine/voice"
)

type sound struct {
	id       uint32
	priority voice.Priority
}

func (s *sound) ID() uint32                     { return s.id }
func (s *sound) VoicePriority() voice.Priority  { return s.priority }
func (s *sound) VoiceUnassigned(v *voice.Voice) {}

type clips struct{ culled int }

func (c *clips) CullAudioClipVoice() bool {
	c.culled++
	return true
}

func newEngine(c *qt.C, voices int) (*Engine, *voice.Pool, *clips) {
	pool, err := voice.NewPool(voices)
	c.Assert(err, qt.IsNil)
	cl := &clips{}
	e, err := New(pool, cl, DefaultConfig(44100))
	c.Assert(err, qt.IsNil)
	return e, pool, cl
}

// fill starts n rendered, sustaining voices spread over a few sounds.
func fill(c *qt.C, e *Engine, pool *voice.Pool, n int) {
	sounds := []*sound{{id: 1}, {id: 2, priority: voice.PriorityHigh}, {id: 3, priority: voice.PriorityMedium}}
	for i := range n {
		v := pool.Solicit(sounds[i%len(sounds)], uint32(i), e)
		c.Assert(v, qt.Not(qt.IsNil))
		v.NoteOn(60+i, 0, 1, uint32(i))
		v.Rendered = true
		v.Env.Stage = voice.StageSustain
	}
}

func TestConfigValidate(t *testing.T) {
	c := qt.New(t)
	cfg := DefaultConfig(44100)
	c.Assert(cfg.Validate(), qt.IsNil)
	c.Assert(cfg.Threshold(), qt.Equals, 23)

	bad := cfg
	bad.Limit = 0
	c.Assert(bad.Validate(), qt.ErrorMatches, "cull limit must be > 0: 0")
	bad = cfg
	bad.MarginalOverage = 3
	c.Assert(bad.Validate(), qt.ErrorMatches, "cull marginal overage must be <= 0: 3")
	bad = cfg
	bad.FastReleaseStep = 0
	c.Assert(bad.Validate(), qt.ErrorMatches, "cull fast release step must be > 0: 0")
}

func TestDirenessRisesImmediately(t *testing.T) {
	c := qt.New(t)
	cfg := DefaultConfig(44100)
	var d Direness

	d.Update(&cfg, 22, 0)
	c.Assert(d.Level(), qt.Equals, 0)
	d.Update(&cfg, 23, 10)
	c.Assert(d.Level(), qt.Equals, 1)
	d.Update(&cfg, 30, 20)
	c.Assert(d.Level(), qt.Equals, 8)
	d.Update(&cfg, 200, 30)
	c.Assert(d.Level(), qt.Equals, cfg.MaxDireness)
	// A smaller overload does not lower it.
	d.Update(&cfg, 25, 40)
	c.Assert(d.Level(), qt.Equals, cfg.MaxDireness)
}

func TestDirenessDecaysSlowly(t *testing.T) {
	c := qt.New(t)
	cfg := DefaultConfig(44100)
	var d Direness
	d.Update(&cfg, 25, 1000)
	c.Assert(d.Level(), qt.Equals, 3)

	// Inside the hysteresis band nothing changes however long it lasts.
	d.Update(&cfg, 20, 1000+10*cfg.DecayInterval)
	c.Assert(d.Level(), qt.Equals, 3)

	// Well below the threshold, one step per interval.
	now := uint32(1000)
	d.Update(&cfg, 5, now+cfg.DecayInterval-1)
	c.Assert(d.Level(), qt.Equals, 3)
	d.Update(&cfg, 5, now+cfg.DecayInterval)
	c.Assert(d.Level(), qt.Equals, 2)
	d.Update(&cfg, 5, now+cfg.DecayInterval+1)
	c.Assert(d.Level(), qt.Equals, 2)
	d.Update(&cfg, 5, now+2*cfg.DecayInterval)
	c.Assert(d.Level(), qt.Equals, 1)
	d.Update(&cfg, 5, now+3*cfg.DecayInterval)
	d.Update(&cfg, 5, now+4*cfg.DecayInterval)
	c.Assert(d.Level(), qt.Equals, 0)
}

func TestCullVoicePicksHighestRating(t *testing.T) {
	c := qt.New(t)
	rng := rand.New(rand.NewPCG(3, 5))
	for trial := range 50 {
		e, pool, _ := newEngine(c, 16)
		n := 1 + rng.IntN(16)
		fill(c, e, pool, n)
		now := uint32(100000)
		for v := range pool.All() {
			v.Env.Stage = voice.Stage(rng.IntN(int(voice.StageOff)))
			v.Env.EnteredAt = uint32(rng.IntN(50000))
		}
		e.SetNow(now)

		var want *voice.Voice
		var wantRating uint32
		for v := range pool.All() {
			r := voice.Rating(v, pool.CountOf(v.Owner.ID()), now)
			if want == nil || r > wantRating {
				want, wantRating = v, r
			}
		}
		got := e.CullVoice(true, false)
		c.Assert(got, qt.Equals, want, qt.Commentf("trial %d", trial))
		c.Assert(pool.Contains(got), qt.IsFalse)
		c.Assert(pool.Len(), qt.Equals, n-1)
	}
}

func TestCullVoicePrefersReleasingOverBusySound(t *testing.T) {
	c := qt.New(t)
	e, pool, _ := newEngine(c, 8)
	busy := &sound{id: 1, priority: voice.PriorityMedium}
	quiet := &sound{id: 2, priority: voice.PriorityMedium}

	for i := range 3 {
		v := pool.Solicit(busy, 0, e)
		c.Assert(v, qt.Not(qt.IsNil))
		v.NoteOn(60+i, 0, 1, 0)
		v.Rendered = true
		v.Env.Stage = voice.StageSustain
	}

	rel := pool.Solicit(quiet, 900, e)
	c.Assert(rel, qt.Not(qt.IsNil))
	rel.NoteOn(48, 0, 1, 900)
	rel.Rendered = true
	rel.Env.Stage = voice.StageRelease
	rel.Env.EnteredAt = 900

	e.SetNow(1000)
	c.Assert(e.CullVoice(true, false), qt.Equals, rel)
}

func TestCullVoiceFastReleaseKeepsVoice(t *testing.T) {
	c := qt.New(t)
	e, pool, cl := newEngine(c, 4)
	fill(c, e, pool, 2)

	c.Assert(e.CullVoice(false, true), qt.IsNil)
	c.Assert(pool.Len(), qt.Equals, 2)
	var releasing int
	for v := range pool.All() {
		if v.Env.Stage == voice.StageFastRelease {
			releasing++
		}
	}
	c.Assert(releasing, qt.Equals, 1)

	// The second call moves on to the other voice.
	e.CullVoice(false, true)
	for v := range pool.All() {
		c.Assert(v.Env.Stage, qt.Equals, voice.StageFastRelease)
	}
	// Nothing left to fast-release, and clips are left alone.
	e.CullVoice(false, true)
	c.Assert(cl.culled, qt.Equals, 0)
	c.Assert(e.Stats().SoftCulls, qt.Equals, 2)
}

func TestCullVoiceUnrenderedIsCutOutright(t *testing.T) {
	c := qt.New(t)
	e, pool, _ := newEngine(c, 4)
	v := pool.Solicit(&sound{id: 1}, 0, e)
	v.NoteOn(60, 0, 1, 0)

	e.CullVoice(false, true)
	c.Assert(pool.Len(), qt.Equals, 0)
	c.Assert(pool.Free(), qt.Equals, 4)
}

func TestCullVoiceFallsBackToClips(t *testing.T) {
	c := qt.New(t)
	e, _, cl := newEngine(c, 4)
	c.Assert(e.CullVoice(false, false), qt.IsNil)
	c.Assert(cl.culled, qt.Equals, 1)
	c.Assert(e.Stats().ClipCulls, qt.Equals, 1)
}

func TestAssessTiers(t *testing.T) {
	cfg := DefaultConfig(44100)
	tests := []struct {
		name       string
		voices     int
		prev, n    int
		wantTier   Tier
		wantActive int
		wantFast   int
	}{
		{"below threshold", 12, 0, 20, TierNone, 12, 0},
		{"marginal shrinking", 12, 40, 36, TierNone, 12, 0},
		{"marginal growing", 12, 30, 36, TierMarginal, 12, 1},
		{"soft", 12, 0, cfg.Limit, TierSoft, 12, 1},
		{"hard", 12, 0, cfg.Limit + 24, TierHard, 11, 2},
		{"hard capped at min voices", 8, 0, cfg.Limit + 100, TierHard, 7, 0},
		{"min voices", 7, 0, cfg.Limit + 30, TierNone, 7, 0},
		{"forced", 7, 0, cfg.Limit + cfg.ForceOverage, TierSoft, 7, 1},
	}
	for _, tt := range tests {
		qt.New(t).Run(tt.name, func(c *qt.C) {
			e, pool, _ := newEngine(c, 16)
			fill(c, e, pool, tt.voices)
			e.lastNumSamples = tt.prev

			c.Assert(e.Assess(tt.n, 1000, false), qt.Equals, tt.wantTier)
			c.Assert(pool.Len(), qt.Equals, tt.wantActive)
			var fast int
			for v := range pool.All() {
				if v.Env.Stage == voice.StageFastRelease {
					fast++
				}
			}
			c.Assert(fast, qt.Equals, tt.wantFast)
		})
	}
}

func TestAssessBypassStillTracksDireness(t *testing.T) {
	c := qt.New(t)
	e, pool, _ := newEngine(c, 16)
	fill(c, e, pool, 12)
	c.Assert(e.Assess(100, 0, true), qt.Equals, TierNone)
	c.Assert(pool.Len(), qt.Equals, 12)
	c.Assert(e.Direness(), qt.Equals, e.Config().MaxDireness)
}

func TestPreferCulling(t *testing.T) {
	c := qt.New(t)
	e, pool, _ := newEngine(c, 16)
	c.Assert(e.PreferCulling(), qt.IsFalse)

	e.Assess(105, 0, true)
	c.Assert(e.PreferCulling(), qt.IsFalse)

	fill(c, e, pool, 1)
	c.Assert(e.PreferCulling(), qt.IsTrue)
	c.Assert(e.PreferCulling(), qt.IsFalse)
}
