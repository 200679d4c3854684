package midiout

import (
	"gitlab.com/gomidi/midi/v2"
	"gopkg.in/errgo.v1"
)

// Sender transmits raw MIDI bytes. A gomidi drivers.Out satisfies it.
type Sender interface {
	Send(data []byte) error
}

// Buffer queues MIDI messages until Flush.
type Buffer struct {
	out     Sender
	pending []midi.Message
	sent    int
	failed  int
}

// NewBuffer returns a buffer sending to out. A nil out discards messages
// on flush.
func NewBuffer(out Sender) *Buffer {
	return &Buffer{out: out}
}

// NoteOn queues a note-on. Channels are zero based.
func (b *Buffer) NoteOn(channel, key, velocity uint8) {
	b.pending = append(b.pending, midi.NoteOn(channel, key, velocity))
}

// NoteOff queues a note-off.
func (b *Buffer) NoteOff(channel, key uint8) {
	b.pending = append(b.pending, midi.NoteOff(channel, key))
}

// Clock queues a timing clock pulse.
func (b *Buffer) Clock() { b.pending = append(b.pending, midi.TimingClock()) }

// Start queues a transport start.
func (b *Buffer) Start() { b.pending = append(b.pending, midi.Start()) }

// Stop queues a transport stop.
func (b *Buffer) Stop() { b.pending = append(b.pending, midi.Stop()) }

// Continue queues a transport continue.
func (b *Buffer) Continue() { b.pending = append(b.pending, midi.Continue()) }

// Pending reports whether anything is queued.
func (b *Buffer) Pending() bool { return len(b.pending) > 0 }

// Len returns the number of queued messages.
func (b *Buffer) Len() int { return len(b.pending) }

// Sent returns the number of messages delivered.
func (b *Buffer) Sent() int { return b.sent }

// Failed returns the number of messages the sender rejected.
func (b *Buffer) Failed() int { return b.failed }

// Flush sends every queued message in order. A send error does not stop
// the remaining messages; the first one is returned.
func (b *Buffer) Flush() error {
	var first error

	for _, m := range b.pending {
		if b.out == nil {
			continue
		}

		if err := b.out.Send(m.Bytes()); err != nil {
			b.failed++
			if first == nil {
				first = errgo.Notef(err, "cannot send %v", m)
			}

			continue
		}

		b.sent++
	}

	clear(b.pending)
	b.pending = b.pending[:0]

	return first
}
