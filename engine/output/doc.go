// Package output moves rendered audio into the codec's transmit ring.
//
// A Stage holds one rendered window at a time. Each call to Output copies
// as much of it as the ring has room for, applying the master gain,
// triangular dither and truncation to the codec's 24-bit grid, and mixing
// in the codec input when monitoring. Whatever does not fit stays pending
// for the next call.
package output
