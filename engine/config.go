package engine

import (
	"fmt"
	"time"

	"github.com/cwbudde/algo-synth/engine/cull"
	"github.com/cwbudde/algo-synth/engine/hw"
	"github.com/cwbudde/algo-synth/engine/output"
)

const (
	defaultDoublingThreshold = 6
	defaultRecursionLimit    = 5
	defaultReverbIdle        = 12 * time.Second
	defaultVoiceStartBudget  = 4
	defaultStartThrottle     = 12
)

// Config holds the scheduler's tuning constants.
type Config struct {
	SampleRate float64

	// Cull configures direness tracking and the cull policy.
	Cull cull.Config

	// DoublingThreshold is the window length above which the window is
	// grown by its excess over the threshold.
	DoublingThreshold int
	// MaxWindowNum/MaxWindowDen caps grown windows as a fraction of the
	// transmit ring.
	MaxWindowNum, MaxWindowDen int
	// RecursionLimit bounds the windows rendered per Routine call.
	RecursionLimit int
	// ReverbIdle is how long the reverb keeps running after the last
	// window that sent anything to it.
	ReverbIdle time.Duration
	// RenderInterrupts are masked while the song renders.
	RenderInterrupts []hw.InterruptID
	// VoiceStartBudget caps the voices started per Routine call; 0 means
	// no cap. Each direness level above StartThrottle uses up one start
	// before the song renders.
	VoiceStartBudget int
	StartThrottle    int

	clock        Clock
	outputs      Outputs
	stageOptions []output.Option
}

// DefaultConfig returns the stock tuning for sampleRate.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		SampleRate:        sampleRate,
		Cull:              cull.DefaultConfig(sampleRate),
		DoublingThreshold: defaultDoublingThreshold,
		MaxWindowNum:      2,
		MaxWindowDen:      3,
		RecursionLimit:    defaultRecursionLimit,
		ReverbIdle:        defaultReverbIdle,
		RenderInterrupts:  []hw.InterruptID{hw.InterruptAudioDMA, hw.InterruptUART},
		VoiceStartBudget:  defaultVoiceStartBudget,
		StartThrottle:     defaultStartThrottle,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if err := c.Cull.Validate(); err != nil {
		return err
	}

	switch {
	case c.DoublingThreshold < 0:
		return fmt.Errorf("engine doubling threshold must be >= 0: %d", c.DoublingThreshold)
	case c.MaxWindowNum <= 0 || c.MaxWindowDen <= 0 || c.MaxWindowNum > c.MaxWindowDen:
		return fmt.Errorf("engine max window must be a fraction in (0, 1]: %d/%d", c.MaxWindowNum, c.MaxWindowDen)
	case c.RecursionLimit < 1:
		return fmt.Errorf("engine recursion limit must be >= 1: %d", c.RecursionLimit)
	case c.ReverbIdle < 0:
		return fmt.Errorf("engine reverb idle time must be >= 0: %v", c.ReverbIdle)
	case c.VoiceStartBudget < 0 || c.StartThrottle < 0:
		return fmt.Errorf("engine voice start budget and throttle must be >= 0: %d, %d", c.VoiceStartBudget, c.StartThrottle)
	}

	return nil
}

// Option configures a Context.
type Option func(*Config) error

// WithCullConfig replaces the cull configuration.
func WithCullConfig(cc cull.Config) Option {
	return func(c *Config) error {
		if err := cc.Validate(); err != nil {
			return err
		}

		c.Cull = cc

		return nil
	}
}

// WithNumSamplesLimit sets the window length at which culling starts to
// bite. Direness starts DirenessOffset samples below it.
func WithNumSamplesLimit(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("engine num samples limit must be > 0: %d", n)
		}

		c.Cull.Limit = n

		return nil
	}
}

// WithDoublingThreshold sets the window growth threshold.
func WithDoublingThreshold(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("engine doubling threshold must be >= 0: %d", n)
		}

		c.DoublingThreshold = n

		return nil
	}
}

// WithMaxWindow caps grown windows at num/den of the transmit ring.
func WithMaxWindow(num, den int) Option {
	return func(c *Config) error {
		if num <= 0 || den <= 0 || num > den {
			return fmt.Errorf("engine max window must be a fraction in (0, 1]: %d/%d", num, den)
		}

		c.MaxWindowNum, c.MaxWindowDen = num, den

		return nil
	}
}

// WithRecursionLimit bounds the windows rendered per Routine call.
func WithRecursionLimit(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("engine recursion limit must be >= 1: %d", n)
		}

		c.RecursionLimit = n

		return nil
	}
}

// WithVoiceStarts caps the voices started per Routine call at budget, 0
// meaning no cap, and takes one start off the budget for each direness
// level above throttle.
func WithVoiceStarts(budget, throttle int) Option {
	return func(c *Config) error {
		if budget < 0 || throttle < 0 {
			return fmt.Errorf("engine voice start budget and throttle must be >= 0: %d, %d", budget, throttle)
		}

		c.VoiceStartBudget, c.StartThrottle = budget, throttle

		return nil
	}
}

// WithReverbIdle sets how long the reverb runs after its last input.
func WithReverbIdle(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("engine reverb idle time must be >= 0: %v", d)
		}

		c.ReverbIdle = d

		return nil
	}
}

// WithRenderInterrupts sets the interrupt sources masked while the song
// renders.
func WithRenderInterrupts(ids ...hw.InterruptID) Option {
	return func(c *Config) error {
		c.RenderInterrupts = append([]hw.InterruptID(nil), ids...)
		return nil
	}
}

// WithClock attaches the playback clock whose ticks cut windows short.
func WithClock(clk Clock) Option {
	return func(c *Config) error {
		c.clock = clk
		return nil
	}
}

// WithOutputs attaches the MIDI and gate outputs flushed by the timer.
func WithOutputs(o Outputs) Option {
	return func(c *Config) error {
		c.outputs = o
		return nil
	}
}

// WithStageOptions passes options to the output stage.
func WithStageOptions(opts ...output.Option) Option {
	return func(c *Config) error {
		c.stageOptions = append(c.stageOptions, opts...)
		return nil
	}
}
