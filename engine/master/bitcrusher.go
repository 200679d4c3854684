package master

import (
	"fmt"
	"math"
)

const (
	minBitCrusherBitDepth   = 1.0
	maxBitCrusherBitDepth   = 32.0
	maxBitCrusherDownsample = 256
)

// BitCrusher reduces amplitude resolution and holds samples to lower the
// effective sample rate. Both channels share the hold counter. With a bit
// depth of 32 and no downsampling it is bypassed.
type BitCrusher struct {
	bitDepth    float64
	downsample  int
	quantLevels float64

	holdCounter int
	holdL       float64
	holdR       float64
}

// NewBitCrusher returns a bypassed bit crusher.
func NewBitCrusher() *BitCrusher {
	bc := &BitCrusher{bitDepth: maxBitCrusherBitDepth, downsample: 1}
	bc.quantLevels = math.Exp2(bc.bitDepth - 1)

	return bc
}

// Set changes the bit depth in [1, 32] and the downsample factor in [1, 256].
func (bc *BitCrusher) Set(bitDepth float64, downsample int) error {
	if bitDepth < minBitCrusherBitDepth || bitDepth > maxBitCrusherBitDepth ||
		math.IsNaN(bitDepth) || math.IsInf(bitDepth, 0) {
		return fmt.Errorf("bit crusher bit depth must be in [%g, %g]: %f",
			minBitCrusherBitDepth, maxBitCrusherBitDepth, bitDepth)
	}

	if downsample < 1 || downsample > maxBitCrusherDownsample {
		return fmt.Errorf("bit crusher downsample factor must be in [1, %d]: %d",
			maxBitCrusherDownsample, downsample)
	}

	bc.bitDepth = bitDepth
	bc.downsample = downsample
	bc.quantLevels = math.Exp2(bitDepth - 1)

	return nil
}

// Active reports whether the crusher changes the signal.
func (bc *BitCrusher) Active() bool {
	return bc.bitDepth < maxBitCrusherBitDepth || bc.downsample > 1
}

// Process crushes l and r in place.
func (bc *BitCrusher) Process(l, r []float64) {
	if !bc.Active() {
		return
	}

	for i := range l {
		bc.holdCounter++
		if bc.holdCounter >= bc.downsample {
			bc.holdCounter = 0
			bc.holdL = bc.quantize(l[i])
			bc.holdR = bc.quantize(r[i])
		}

		l[i], r[i] = bc.holdL, bc.holdR
	}
}

func (bc *BitCrusher) quantize(sample float64) float64 {
	return math.Round(sample*bc.quantLevels) / bc.quantLevels
}
