// Package recorder captures engine output or codec input to WAV files.
//
// The render side only ever calls FeedAudio, which copies frames into a
// queue and flips the status; the slow side calls CardRoutine, which drains
// the queue into the file. The two may run on different goroutines.
package recorder
