// Package master implements the master bus the render scheduler runs after
// the song: the shared reverb with sidechain ducking, master filters,
// bitcrusher, stutter, compressor, pan, the metronome and the level and
// spectrum meters.
//
// All processors work on separate left and right float64 buffers in
// [-1, +1] and process in place. None of them allocate after construction.
package master
