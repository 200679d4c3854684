// Package synth is the song layer the render scheduler drives: sounds
// that play voices from the shared pool, audio clips, a step pattern that
// follows the playback clock, and the global parameters that feed the
// master bus.
//
// Parameter values use the full int32 range. Unipolar parameters map
// [0, MaxInt32] onto [0, 1], bipolar ones [-MaxInt32, MaxInt32] onto
// [-1, 1]. Helpers in this package convert both ways.
package synth
