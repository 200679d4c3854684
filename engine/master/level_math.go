//go:build !fastmath

package master

import "math"

// levelOctaves returns a linear level in octaves (doublings) relative to
// full scale.
func levelOctaves(level float64) float64 { return math.Log2(level) }

// octaveGain is the inverse of levelOctaves.
func octaveGain(octaves float64) float64 { return math.Exp2(octaves) }
