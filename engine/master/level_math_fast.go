//go:build fastmath

package master

import (
	"math"

	"github.com/meko-christian/algo-approx"
)

// levelOctaves and octaveGain trade a little accuracy for speed in the
// compressor's per-sample gain computer.

func levelOctaves(level float64) float64 { return approx.FastLog(level) / math.Ln2 }

func octaveGain(octaves float64) float64 { return approx.FastExp(octaves * math.Ln2) }
