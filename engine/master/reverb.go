package master

import "math"

const (
	defaultReverbRoomSize = 0.5
	defaultReverbDamp     = 0.5
	defaultReverbWidth    = 1.0

	// The send enters the tank at this level so a full-scale send stays
	// clear of clipping after eight combs sum.
	reverbInputGain = 0.015

	// Right tank delays are this many samples longer than the left.
	tankSpread = 23

	maxRoomSize = 0.98
)

// Tank delays in samples at 44.1 kHz.
var (
	combLengths    = [8]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassLengths = [4]int{556, 441, 341, 225}
)

// delayLine is a fixed-length circular delay. tap reads the sample that
// entered len(buf) steps ago; put overwrites it and moves on.
type delayLine struct {
	buf []float64
	pos int
}

func (d *delayLine) tap() float64 { return d.buf[d.pos] }

func (d *delayLine) put(v float64) {
	d.buf[d.pos] = v
	if d.pos++; d.pos == len(d.buf) {
		d.pos = 0
	}
}

// comb is a feedback comb with a one-pole lowpass in the loop.
type comb struct {
	delayLine
	lp float64
}

func (c *comb) step(in, feedback, damp float64) float64 {
	out := c.tap()

	c.lp = out*(1-damp) + c.lp*damp
	if math.Abs(c.lp) < 1e-23 {
		c.lp = 0
	}

	c.put(in + c.lp*feedback)

	return out
}

// reverbTank is one channel of the reverb: parallel combs into series
// allpasses.
type reverbTank struct {
	combs     [len(combLengths)]comb
	allpasses [len(allpassLengths)]delayLine
}

func newReverbTank(length func(int) int, extra int) reverbTank {
	var t reverbTank
	for i, n := range combLengths {
		t.combs[i].buf = make([]float64, length(n+extra))
	}

	for i, n := range allpassLengths {
		t.allpasses[i].buf = make([]float64, length(n+extra))
	}

	return t
}

func (t *reverbTank) step(in, feedback, damp float64) float64 {
	var acc float64
	for i := range t.combs {
		acc += t.combs[i].step(in, feedback, damp)
	}

	for i := range t.allpasses {
		d := &t.allpasses[i]
		delayed := d.tap()
		d.put(acc + delayed*0.5)
		acc = delayed - acc
	}

	return acc
}

func (t *reverbTank) clear() {
	for i := range t.combs {
		clear(t.combs[i].buf)
		t.combs[i].pos, t.combs[i].lp = 0, 0
	}

	for i := range t.allpasses {
		clear(t.allpasses[i].buf)
		t.allpasses[i].pos = 0
	}
}

// Reverb is the song's shared stereo reverb. Sounds feed it a mono send,
// high-passed on the way in so low end never builds up in the tail.
type Reverb struct {
	roomSize, damp, width float64

	// direct and cross mix each tank into its own and the opposite side.
	direct, cross float64

	sendDC float64
	tanks  [2]reverbTank
}

// NewReverb returns a reverb with its delays scaled to sampleRate.
func NewReverb(sampleRate float64) *Reverb {
	scale := sampleRate / 44100
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}

	length := func(n int) int { return max(1, int(float64(n)*scale)) }

	r := &Reverb{
		tanks: [2]reverbTank{newReverbTank(length, 0), newReverbTank(length, tankSpread)},
	}

	r.SetRoomSize(defaultReverbRoomSize)
	r.SetDamp(defaultReverbDamp)
	r.SetWidth(defaultReverbWidth)

	return r
}

// SetRoomSize sets the comb feedback, clamped to [0, 0.98].
func (r *Reverb) SetRoomSize(v float64) { r.roomSize = min(max(v, 0), maxRoomSize) }

// SetDamp sets how much the tail loses its highs, in [0, 1].
func (r *Reverb) SetDamp(v float64) { r.damp = min(max(v, 0), 1) }

// SetWidth sets the stereo width in [0, 1]; 0 is mono.
func (r *Reverb) SetWidth(v float64) {
	r.width = min(max(v, 0), 1)
	r.direct = (1 + r.width) / 2
	r.cross = (1 - r.width) / 2
}

func (r *Reverb) RoomSize() float64 { return r.roomSize }

func (r *Reverb) Damp() float64 { return r.damp }

func (r *Reverb) Width() float64 { return r.width }

// Reset empties the tanks.
func (r *Reverb) Reset() {
	r.tanks[0].clear()
	r.tanks[1].clear()
	r.sendDC = 0
}

// Process runs send through the reverb and adds the return, scaled by
// volume, to l and right.
func (r *Reverb) Process(send, l, right []float64, volume float64) {
	n := min(len(send), len(l), len(right))
	for i := range n {
		x := send[i] - r.sendDC
		r.sendDC += x * (1.0 / 2048)
		x *= reverbInputGain

		wl := r.tanks[0].step(x, r.roomSize, r.damp)
		wr := r.tanks[1].step(x, r.roomSize, r.damp)

		l[i] += volume * (wl*r.direct + wr*r.cross)
		right[i] += volume * (wr*r.direct + wl*r.cross)
	}
}
