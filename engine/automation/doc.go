// Package automation stores the value curve of a single automatable
// parameter. An AutoParam holds a current value, a per-tick increment used
// while a ramp is playing back, and an ordered list of nodes placed on the
// loop timeline. Positions are ticks; curves wrap at the loop length.
package automation
