package engine

import "github.com/cwbudde/algo-synth/engine/ring"

// Routine renders as much audio as the transmit ring has room for. It
// returns at once if it is already running further up the stack or if
// the previous window has not been fully written yet.
func (c *Context) Routine() {
	if c.locked {
		c.stats.LockedSkips++
		return
	}

	c.locked = true
	defer func() { c.locked = false }()

	c.pool.ResetRenderCounters(c.culler.Direness() - c.cfg.StartThrottle)

	for range c.cfg.RecursionLimit {
		if !c.renderWindow() {
			return
		}
	}
}

// renderWindow renders one window. It reports whether it did, so the
// caller can try again while the DMA keeps freeing room.
func (c *Context) renderWindow() bool {
	if !c.stage.Output() {
		c.stats.Backpressure++
		return false
	}

	dmaStart := c.hw.TX.Position()

	numSamples := c.ring.Distance(c.stage.TXPos(), dmaStart)
	if numSamples == 0 {
		return false
	}

	unadjusted := numSamples

	if c.outputs != nil && c.outputs.Pending() && !c.hw.Timer.Armed() {
		c.outputs.Flush(c.timer)
	}

	c.smooth(numSamples)
	tier := c.culler.Assess(c.smoothed, c.timer, c.bypassCulling)
	c.bypassCulling = false
	c.stats.Tiers[tier]++

	numSamples = c.grow(numSamples)
	numSamples, timeWithin := c.tickClock(numSamples)

	l, r, rev := c.bufL[:numSamples], c.bufR[:numSamples], c.bufRev[:numSamples]
	clear(l)
	clear(r)
	clear(rev)

	hit := c.sideChainHit
	now := c.timer
	c.section.Run(func() { c.song.RenderAudio(l, r, rev, hit, now) })

	c.renderMaster(l, r, rev, hit)

	gl, gr := c.master.Gains()
	c.stage.SetGain(gl, gr)
	c.stage.Load(l, r)
	c.stage.Output()

	c.armTimer(timeWithin, dmaStart, unadjusted)

	c.sideChainHit = 0
	c.timer += uint32(numSamples)
	c.stats.Windows++
	c.stats.Samples += uint64(numSamples)
	c.stats.LastWindow = numSamples

	return true
}

// smooth follows rises in the window length halfway per call and falls
// at once.
func (c *Context) smooth(n int) {
	if n > c.smoothed {
		c.smoothed += (n - c.smoothed + 1) / 2
	} else {
		c.smoothed = n
	}
}

// grow lengthens short windows to amortise the per-window overhead, then
// rounds to the nearest multiple of 4. A lengthened window never rounds
// past maxWindow.
func (c *Context) grow(n int) int {
	grown := false
	if n < c.maxWindow {
		if over := n - c.cfg.DoublingThreshold; over > 0 {
			n = min(c.cfg.DoublingThreshold+2*over, c.maxWindow)
			grown = true
		}
	}

	if n >= 3 {
		n = (n + 2) &^ 3
	}

	if grown && n > c.maxWindow {
		n = c.maxWindow &^ 3
	}

	return min(n, c.ring.Size())
}

// tickClock actions every tick due at the start of the window and cuts
// the window short at the next one. It returns the window length and the
// offset within it of the first MIDI or gate event, or -1.
func (c *Context) tickClock(n int) (int, int) {
	timeWithin := -1
	if c.clock == nil {
		return n, timeWithin
	}

	for c.clock.Running() {
		next := c.clock.NextTimerTick()

		swung := false
		if at, ok := c.clock.NextSwungTick(); ok && int32(at-next) <= 0 {
			next, swung = at, true
		}

		until := int(int32(next - c.timer))
		if until > 0 {
			n = min(n, until)
			break
		}

		if swung {
			c.clock.ActionSwungTick(c.timer)
		} else {
			c.clock.ActionTimerTick(c.timer)
		}

		c.stats.Ticks++

		if c.outputs != nil && c.outputs.Pending() {
			timeWithin = 0
		}
	}

	if at, ok := c.clock.NextTriggerClockOut(); ok {
		if d := int(int32(at - c.timer)); d < n {
			c.clock.DoTriggerClockOut(at)
			c.stats.ClockOuts++

			if timeWithin < 0 {
				timeWithin = max(d, 0)
			}
		}
	}

	if at, ok := c.clock.NextMIDIClockOut(); ok {
		if d := int(int32(at - c.timer)); d < n {
			c.clock.DoMIDIClockOut(at)
			c.stats.ClockOuts++

			if timeWithin < 0 {
				timeWithin = max(d, 0)
			}
		}
	}

	return n, timeWithin
}

func (c *Context) renderMaster(l, r, rev []float64, hit float64) {
	if ms, ok := c.song.(MasterSettingsSource); ok {
		if err := c.master.Apply(ms.MasterSettings(c.master.Settings())); err != nil {
			logger.Warningf("master settings: %v", err)
		}
	}

	for _, x := range rev {
		if x != 0 {
			c.reverbSeen = true
			c.lastReverb = c.timer

			break
		}
	}

	duck := c.master.Sidechain.Render(len(l), hit)
	if c.ReverbActive() {
		c.master.Reverb.Process(rev, l, r, c.master.Settings().ReverbVolume*duck)
		c.stats.ReverbWindows++
	}

	c.master.Process(l, r)
	c.master.Metronome.Render(l, r)
	c.master.Meter.Process(l, r)
	c.master.Spectrum.Process(l, r)
}

// armTimer schedules the MIDI and gate flush for the moment the DMA plays
// the frame timeWithin of the window just rendered.
func (c *Context) armTimer(timeWithin int, dmaStart ring.Cursor, unadjusted int) {
	if c.outputs == nil || !c.outputs.Pending() || c.hw.Timer.Armed() {
		return
	}

	timeWithin = max(timeWithin, 0)
	moved := c.ring.Distance(dmaStart, c.hw.TX.Position())

	until := c.ring.Wrap(timeWithin - moved - unadjusted)
	if until == 0 {
		until = c.ring.Size()
	}

	if hold := c.outputs.HoldOff(c.timer); hold > 0 {
		until = max(until, int(hold)-moved)
	}

	c.hw.Timer.Arm(until, c.fire)
	c.stats.TimerArms++
}
