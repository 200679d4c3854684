// Package cull sheds voices when rendering falls behind. The render
// scheduler feeds it the size of each window; a Direness tracker turns that
// into a 0..14 pressure level with slow decay, and the three-tier policy
// decides how many voices to fast-release or cut outright. Culling never
// fails loudly: the worst outcome is a note that stops early.
package cull
