package cull

import "fmt"

// Config holds the culling thresholds. All sample counts are render
// window sizes in frames.
type Config struct {
	// Limit is the window size beyond which the engine is overloaded.
	Limit int
	// DirenessOffset places the direness threshold at Limit-DirenessOffset.
	DirenessOffset int
	// MaxDireness caps the direness level.
	MaxDireness int
	// DecayMargin is how far below the threshold a window must be before
	// direness may decay.
	DecayMargin int
	// DecayInterval is the number of samples between direness decrements.
	DecayInterval uint32
	// HardOverage is the overage at which voices are cut outright.
	HardOverage int
	// MarginalOverage (negative) is the overage at which a voice is
	// fast-released, but only while windows are growing.
	MarginalOverage int
	// ForceOverage culls even when fewer than MinVoices are playing.
	ForceOverage int
	// MinVoices is the number of voices below which culling stops helping.
	MinVoices int
	// CullFirstSamples is the window size above which a new note steals a
	// voice instead of taking a free one.
	CullFirstSamples int
	// FastReleaseStep is the per-sample envelope decrement of a soft cull.
	FastReleaseStep float64
}

// DefaultConfig returns thresholds tuned for a 44.1 kHz, 128-frame ring.
func DefaultConfig(sampleRate float64) Config {
	return Config{
		Limit:            40,
		DirenessOffset:   17,
		MaxDireness:      14,
		DecayMargin:      10,
		DecayInterval:    uint32(sampleRate) >> 3,
		HardOverage:      20,
		MarginalOverage:  -6,
		ForceOverage:     40,
		MinVoices:        7,
		CullFirstSamples: 100,
		FastReleaseStep:  1.0 / 256,
	}
}

// Threshold is the window size at which direness starts rising.
func (c Config) Threshold() int { return c.Limit - c.DirenessOffset }

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch {
	case c.Limit <= 0:
		return fmt.Errorf("cull limit must be > 0: %d", c.Limit)
	case c.DirenessOffset < 0 || c.DirenessOffset >= c.Limit:
		return fmt.Errorf("cull direness offset must be in [0, %d): %d", c.Limit, c.DirenessOffset)
	case c.MaxDireness <= 0:
		return fmt.Errorf("cull max direness must be > 0: %d", c.MaxDireness)
	case c.DecayInterval == 0:
		return fmt.Errorf("cull decay interval must be > 0")
	case c.HardOverage <= 0:
		return fmt.Errorf("cull hard overage must be > 0: %d", c.HardOverage)
	case c.MarginalOverage > 0:
		return fmt.Errorf("cull marginal overage must be <= 0: %d", c.MarginalOverage)
	case c.MinVoices < 0:
		return fmt.Errorf("cull min voices must be >= 0: %d", c.MinVoices)
	case c.FastReleaseStep <= 0:
		return fmt.Errorf("cull fast release step must be > 0: %g", c.FastReleaseStep)
	}

	return nil
}
