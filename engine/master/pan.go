package master

import "math"

// PanGains returns left and right gains for pan in [-1, +1]. The law is
// equal power, scaled so that centre is unity on both sides.
func PanGains(pan float64) (float64, float64) {
	if pan == 0 || math.IsNaN(pan) {
		return 1, 1
	}

	pan = min(max(pan, -1), 1)
	theta := (pan + 1) * math.Pi / 4

	return min(1, math.Cos(theta)*math.Sqrt2), min(1, math.Sin(theta)*math.Sqrt2)
}
