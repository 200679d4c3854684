// Package midiout buffers MIDI messages and gate changes produced while a
// render window is computed, so they can be sent at the sample they belong
// to when the engine's one-shot timer fires.
package midiout
