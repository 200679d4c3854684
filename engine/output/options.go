package output

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-synth/engine/recorder"
)

const (
	defaultBitDepth        = 24
	defaultDitherAmplitude = 1.0
	defaultMonitorShift    = 1
	defaultInputFeedLimit  = 256
	minBitDepth            = 8
	maxBitDepth            = 32
)

// Monitoring selects how the codec input is mixed into the output.
type Monitoring uint8

// Monitoring modes.
const (
	MonitorNone Monitoring = iota
	MonitorStereo
	// MonitorSubtractRight plays the left-minus-right difference on both
	// sides, for balanced mono sources.
	MonitorSubtractRight
	// MonitorRemoveRight plays the left input on both sides.
	MonitorRemoveRight
)

var monitoringNames = [...]string{"none", "stereo", "subtract-right", "remove-right"}

func (m Monitoring) String() string {
	if int(m) < len(monitoringNames) {
		return monitoringNames[m]
	}

	return fmt.Sprintf("monitoring(%d)", uint8(m))
}

// Valid reports whether m is a known mode.
func (m Monitoring) Valid() bool { return m <= MonitorRemoveRight }

type config struct {
	bitDepth        int
	ditherAmplitude float64
	rng             *rand.Rand
	monitoring      Monitoring
	monitorShift    uint
	inputFeedLimit  int
	recorders       *recorder.List
}

func defaultConfig() config {
	return config{
		bitDepth:        defaultBitDepth,
		ditherAmplitude: defaultDitherAmplitude,
		monitorShift:    defaultMonitorShift,
		inputFeedLimit:  defaultInputFeedLimit,
	}
}

// Option configures a [Stage].
type Option func(*config) error

// WithBitDepth sets the codec word width (8-32, default 24).
func WithBitDepth(bits int) Option {
	return func(cfg *config) error {
		if bits < minBitDepth || bits > maxBitDepth {
			return fmt.Errorf("output: bit depth must be in [%d, %d]: %d", minBitDepth, maxBitDepth, bits)
		}

		cfg.bitDepth = bits

		return nil
	}
}

// WithDitherAmplitude sets the TPDF dither amplitude in LSBs (default 1, 0 disables).
func WithDitherAmplitude(amp float64) Option {
	return func(cfg *config) error {
		if amp < 0 || math.IsNaN(amp) || math.IsInf(amp, 0) {
			return fmt.Errorf("output: dither amplitude must be >= 0 and finite: %f", amp)
		}

		cfg.ditherAmplitude = amp

		return nil
	}
}

// WithRNG sets a deterministic dither source.
func WithRNG(rng *rand.Rand) Option {
	return func(cfg *config) error {
		cfg.rng = rng
		return nil
	}
}

// WithMonitoring sets the initial monitoring mode.
func WithMonitoring(m Monitoring) Option {
	return func(cfg *config) error {
		if !m.Valid() {
			return fmt.Errorf("output: invalid monitoring mode: %d", m)
		}

		cfg.monitoring = m

		return nil
	}
}

// WithMonitorShift sets the right shift applied to monitored input (0-16, default 1).
func WithMonitorShift(shift int) Option {
	return func(cfg *config) error {
		if shift < 0 || shift > 16 {
			return fmt.Errorf("output: monitor shift must be in [0, 16]: %d", shift)
		}

		cfg.monitorShift = uint(shift)

		return nil
	}
}

// WithInputFeedLimit caps the input frames handed to recorders per call (default 256).
func WithInputFeedLimit(n int) Option {
	return func(cfg *config) error {
		if n <= 0 {
			return fmt.Errorf("output: input feed limit must be > 0: %d", n)
		}

		cfg.inputFeedLimit = n

		return nil
	}
}

// WithRecorders feeds output and input frames to the recorders in l.
func WithRecorders(l *recorder.List) Option {
	return func(cfg *config) error {
		cfg.recorders = l
		return nil
	}
}
