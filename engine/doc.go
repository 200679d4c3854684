// Package engine is the audio engine context and its render scheduler.
//
// A Context owns everything the render path touches: the voice pool and
// culler, the master bus, the output stage writing into the transmit DMA
// ring, and the sample timer. Routine is called from the host's polling
// loop. Each call first drains whatever the previous window left pending,
// then renders as many new windows as the ring has room for, cutting each
// window short at the next clock tick so sequencer events land on the
// exact sample they are scheduled for.
//
// Routine never blocks. When the ring is full it returns at once and is
// expected to be called again on the next poll; when it is re-entered
// from a callback it runs inside, it does nothing.
package engine
