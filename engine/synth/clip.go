package synth

import "github.com/cwbudde/algo-synth/engine/master"

// Clip is a looping mono audio clip. Each playing clip counts as one
// voice the culler may stop when the synth voices are exhausted.
type Clip struct {
	samples []float64
	gain    float64
	pan     float64
	pos     int
	playing bool
	started uint32
}

// Play starts the clip from the top at sample time now.
func (c *Clip) Play(now uint32) {
	c.pos = 0
	c.playing = len(c.samples) > 0
	c.started = now
}

// Stop silences the clip.
func (c *Clip) Stop() { c.playing = false }

// Playing reports whether the clip is sounding.
func (c *Clip) Playing() bool { return c.playing }

func (c *Clip) render(l, r []float64) {
	if !c.playing {
		return
	}

	gl, gr := master.PanGains(c.pan)
	for i := range l {
		x := c.samples[c.pos] * c.gain
		l[i] += x * gl
		r[i] += x * gr

		c.pos++
		if c.pos == len(c.samples) {
			c.pos = 0
		}
	}
}
