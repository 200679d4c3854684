package output

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Quantizer converts float samples in [-1, +1] to left-aligned integer
// codec words with TPDF dither.
type Quantizer struct {
	bitDepth        int
	ditherAmplitude float64
	rng             *rand.Rand

	bitMul  float64
	shift   uint
	limitLo int64
	limitHi int64
}

// NewQuantizer returns a quantizer for bitDepth-bit codec words carried in
// 32 bits. rng may be nil.
func NewQuantizer(bitDepth int, ditherAmplitude float64, rng *rand.Rand) (*Quantizer, error) {
	if bitDepth < minBitDepth || bitDepth > maxBitDepth {
		return nil, fmt.Errorf("output: bit depth must be in [%d, %d]: %d", minBitDepth, maxBitDepth, bitDepth)
	}

	if ditherAmplitude < 0 || math.IsNaN(ditherAmplitude) || math.IsInf(ditherAmplitude, 0) {
		return nil, fmt.Errorf("output: dither amplitude must be >= 0 and finite: %f", ditherAmplitude)
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	q := &Quantizer{
		bitDepth:        bitDepth,
		ditherAmplitude: ditherAmplitude,
		rng:             rng,
		bitMul:          math.Exp2(float64(bitDepth - 1)),
		shift:           uint(32 - bitDepth),
	}

	q.limitHi = int64(q.bitMul) - 1
	q.limitLo = -int64(q.bitMul)

	return q, nil
}

// BitDepth returns the codec word width.
func (q *Quantizer) BitDepth() int { return q.bitDepth }

// Process quantizes one sample. The floor keeps the truncation bias of a
// plain right shift.
func (q *Quantizer) Process(x float64) int32 {
	scaled := q.bitMul * x
	if q.ditherAmplitude > 0 {
		scaled += q.ditherAmplitude * (q.rng.Float64() - q.rng.Float64())
	}

	var v int64
	switch {
	case math.IsNaN(scaled):
		v = 0
	case scaled >= float64(q.limitHi):
		v = q.limitHi
	case scaled <= float64(q.limitLo):
		v = q.limitLo
	default:
		v = int64(math.Floor(scaled))
	}

	return int32(v << q.shift)
}
