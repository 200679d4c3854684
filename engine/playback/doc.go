// Package playback implements the song clock the render scheduler
// consults between windows.
//
// The clock schedules four streams of events on the engine's sample
// timeline:
//
//   - timer ticks at a fixed rate derived from tempo and resolution,
//   - swung ticks, which are timer ticks in the off-beat sixteenth of each
//     eighth note delivered late by the swing amount,
//   - trigger clock out pulses on a gate output,
//   - MIDI timing clock at 24 pulses per quarter note.
//
// Tick times are kept in 32.32 fixed point so rounding never accumulates;
// the integer part wraps with the engine's 32-bit sample counter.
package playback
