package master

import (
	"fmt"
	"math"
)

const (
	// octavesPerDB converts decibels to octaves of amplitude.
	octavesPerDB = 0.16609640474436813

	compressorKneeDB    = 6.0
	compressorAttackMs  = 10.0
	compressorReleaseMs = 100.0
)

// Compressor is the master bus compressor. Both channels share one
// detector following the louder side, and levels are handled in octaves
// relative to full scale. Makeup gain tracks the threshold and ratio so
// that a full-scale signal comes out at full scale. A ratio of 1 bypasses
// it.
type Compressor struct {
	sampleRate float64

	thresholdDB, ratio     float64
	attackMs, releaseMs    float64
	threshold, knee, slope float64 // octaves, octaves, 1 - 1/ratio
	makeup                 float64
	attack, release        float64 // detector coefficients per sample

	env  float64
	gain float64
}

// NewCompressor returns a bypassed compressor.
func NewCompressor(sampleRate float64) (*Compressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("compressor sample rate must be > 0 and finite: %f", sampleRate)
	}

	c := &Compressor{
		sampleRate: sampleRate,
		ratio:      1,
		attackMs:   compressorAttackMs,
		releaseMs:  compressorReleaseMs,
		knee:       compressorKneeDB * octavesPerDB,
		gain:       1,
	}

	c.recalc()

	return c, nil
}

// Set changes threshold (dB, <= 0) and ratio (>= 1).
func (c *Compressor) Set(thresholdDB, ratio float64) error {
	switch {
	case thresholdDB > 0 || math.IsNaN(thresholdDB) || math.IsInf(thresholdDB, 0):
		return fmt.Errorf("compressor threshold must be <= 0 dB and finite: %f", thresholdDB)
	case ratio < 1 || math.IsNaN(ratio) || math.IsInf(ratio, 0):
		return fmt.Errorf("compressor ratio must be >= 1 and finite: %f", ratio)
	}

	c.thresholdDB, c.ratio = thresholdDB, ratio
	c.recalc()

	return nil
}

// SetTimes changes attack and release in milliseconds. Both are half-life
// times of the detector.
func (c *Compressor) SetTimes(attackMs, releaseMs float64) error {
	for _, v := range []float64{attackMs, releaseMs} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("compressor times must be > 0 and finite: %f, %f", attackMs, releaseMs)
		}
	}

	c.attackMs, c.releaseMs = attackMs, releaseMs
	c.recalc()

	return nil
}

// Active reports whether the compressor changes the signal.
func (c *Compressor) Active() bool { return c.ratio > 1 }

// GainReduction returns the gain applied to the last frame before makeup,
// 1 meaning none.
func (c *Compressor) GainReduction() float64 { return c.gain }

// Process compresses l and r in place.
func (c *Compressor) Process(l, r []float64) {
	if !c.Active() {
		return
	}

	for i := range l {
		level := max(math.Abs(l[i]), math.Abs(r[i]))
		if level > c.env {
			c.env += (level - c.env) * c.attack
		} else {
			c.env = level + (c.env-level)*c.release
		}

		c.gain = c.reduction(c.env)
		g := c.gain * c.makeup
		l[i] *= g
		r[i] *= g
	}
}

// Reset clears the detector.
func (c *Compressor) Reset() {
	c.env = 0
	c.gain = 1
}

func (c *Compressor) recalc() {
	c.threshold = c.thresholdDB * octavesPerDB
	c.slope = 1 - 1/c.ratio
	c.makeup = octaveGain(-c.threshold * c.slope)

	halfLife := func(ms float64) float64 { return math.Exp(-math.Ln2 / (ms * 0.001 * c.sampleRate)) }
	c.attack = 1 - halfLife(c.attackMs)
	c.release = halfLife(c.releaseMs)
}

// reduction is the static gain curve: unity below the knee, a quadratic
// blend through it, then slope octaves off per octave over threshold.
func (c *Compressor) reduction(env float64) float64 {
	if env <= 0 {
		return 1
	}

	over := levelOctaves(env) - c.threshold
	half := c.knee / 2

	switch {
	case over <= -half:
		return 1
	case over < half:
		over = (over + half) * (over + half) / (2 * c.knee)
	}

	return octaveGain(-over * c.slope)
}
