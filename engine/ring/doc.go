// Package ring centralizes the wraparound arithmetic for the power-of-two
// DMA rings the engine reads from and writes to. Cursors are frame indices
// into a ring; every distance and advance goes through a Ring so the masking
// lives in one place.
package ring
