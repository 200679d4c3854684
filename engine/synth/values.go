package synth

import "math"

// Patched parameters of a Sound.
const (
	ParamVolume = iota
	ParamPan
	ParamPitch
	ParamReverbSend
	ParamAttack
	ParamDecay
	ParamSustain
	ParamRelease
	ParamLFORate
	NumParams
)

// Expression parameters of a Sound, smoothed per sample.
const (
	ExprPitchBend = iota
	ExprModWheel
	ExprAftertouch
	NumExpressions
)

// Global parameters of a Song.
const (
	GlobalVolume = iota
	GlobalPan
	GlobalLPF
	GlobalHPF
	GlobalReverb
	GlobalSidechain
	NumGlobals
)

const semitoneUnit = 1 << 24

// Unipolar encodes u in [0, 1] as a parameter value.
func Unipolar(u float64) int32 {
	return int32(math.Round(clamp(u, 0, 1) * math.MaxInt32))
}

// Bipolar encodes b in [-1, 1] as a parameter value.
func Bipolar(b float64) int32 {
	return int32(math.Round(clamp(b, -1, 1) * math.MaxInt32))
}

// Semitones encodes a pitch offset as a parameter value. The range is
// about ±127 semitones.
func Semitones(st float64) int32 {
	return int32(math.Round(clamp(st, -127, 127) * semitoneUnit))
}

func unipolar(v int32) float64 { return max(float64(v), 0) / math.MaxInt32 }

func bipolar(v int32) float64 { return max(float64(v)/math.MaxInt32, -1) }

func semitones(v int32) float64 { return float64(v) / semitoneUnit }

// envTime maps a unipolar value to a stage time in seconds, 0 to 8 s on a
// square law.
func envTime(v int32) float64 {
	u := unipolar(v)
	return 8 * u * u
}

// cutoff maps a unipolar value onto 20 Hz to 20 kHz on a log scale.
func cutoff(v int32) float64 {
	return 20 * math.Pow(1000, unipolar(v))
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}

	return min(max(x, lo), hi)
}
