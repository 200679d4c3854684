package playback

import (
	"fmt"
	"math"
)

const (
	defaultPPQN  = 96
	defaultTempo = 120.0

	// MIDIClockPPQN is the MIDI timing clock resolution.
	MIDIClockPPQN = 24
)

type config struct {
	ppqn        int
	tempo       float64
	swing       float64
	triggerPPQN int
	triggerGate int
	midiClock   bool
}

func defaultConfig() config {
	return config{
		ppqn:        defaultPPQN,
		tempo:       defaultTempo,
		triggerGate: -1,
	}
}

// Option configures a Clock.
type Option func(*config) error

// WithPPQN sets the timer tick resolution in ticks per quarter note. It
// must be a multiple of 4 so a sixteenth note is a whole number of ticks.
func WithPPQN(ppqn int) Option {
	return func(c *config) error {
		if ppqn < 4 || ppqn > 3840 || ppqn%4 != 0 {
			return fmt.Errorf("playback ppqn must be a multiple of 4 in [4, 3840]: %d", ppqn)
		}

		c.ppqn = ppqn

		return nil
	}
}

// WithTempo sets the initial tempo in beats per minute.
func WithTempo(bpm float64) Option {
	return func(c *config) error {
		if err := validateTempo(bpm); err != nil {
			return err
		}

		c.tempo = bpm

		return nil
	}
}

// WithSwing sets the initial swing amount, see Clock.SetSwing.
func WithSwing(amount float64) Option {
	return func(c *config) error {
		if err := validateSwing(amount); err != nil {
			return err
		}

		c.swing = amount

		return nil
	}
}

// WithTriggerClock enables trigger clock out on gate channel gate at
// ppqn pulses per quarter note.
func WithTriggerClock(gate, ppqn int) Option {
	return func(c *config) error {
		if gate < 0 {
			return fmt.Errorf("playback trigger clock gate must be >= 0: %d", gate)
		}

		if ppqn < 1 || ppqn > 96 {
			return fmt.Errorf("playback trigger clock ppqn must be in [1, 96]: %d", ppqn)
		}

		c.triggerGate = gate
		c.triggerPPQN = ppqn

		return nil
	}
}

// WithMIDIClockOut enables MIDI timing clock and transport messages.
func WithMIDIClockOut(enabled bool) Option {
	return func(c *config) error {
		c.midiClock = enabled
		return nil
	}
}

func validateTempo(bpm float64) error {
	if bpm < 1 || bpm > 999 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return fmt.Errorf("playback tempo must be in [1, 999]: %f", bpm)
	}

	return nil
}

func validateSwing(amount float64) error {
	if amount < 0 || amount > 0.5 || math.IsNaN(amount) {
		return fmt.Errorf("playback swing must be in [0, 0.5]: %f", amount)
	}

	return nil
}
