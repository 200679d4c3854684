// Package hw describes the hardware the render engine drives: the audio
// serial port's transmit and receive DMA rings, the interrupt controller
// and the one-shot timer that flushes MIDI and gate output between render
// windows. Sim is a software stand-in used by tests and by the
// desktop simulator.
package hw
