package master

import (
	"fmt"
	"math"
)

// Settings are the master bus parameters, usually read from the song's
// global automation each window.
type Settings struct {
	// Volume is the linear master gain.
	Volume float64
	// Pan is in [-1, +1].
	Pan float64

	// LPFFreq and HPFFreq are cutoffs in Hz; 0 bypasses the stage.
	LPFFreq, LPFQ float64
	HPFFreq, HPFQ float64

	// BitDepth of 32 and Downsample of 1 bypass the bitcrusher.
	BitDepth   float64
	Downsample int

	// CompRatio of 1 bypasses the compressor.
	CompThresholdDB float64
	CompRatio       float64

	ReverbRoomSize float64
	ReverbDamp     float64
	ReverbWidth    float64
	// ReverbVolume scales the reverb return before ducking.
	ReverbVolume float64

	SidechainDepth float64

	MetronomeVolume float64
}

// DefaultSettings returns a transparent master bus.
func DefaultSettings() Settings {
	return Settings{
		Volume:          1,
		BitDepth:        maxBitCrusherBitDepth,
		Downsample:      1,
		CompRatio:       1,
		ReverbRoomSize:  defaultReverbRoomSize,
		ReverbDamp:      defaultReverbDamp,
		ReverbWidth:     defaultReverbWidth,
		ReverbVolume:    1,
		SidechainDepth:  0.5,
		MetronomeVolume: 0.5,
	}
}

// Chain owns every master bus processor. The render scheduler drives the
// reverb, metronome and meters directly and calls Process for the insert
// effects.
type Chain struct {
	Reverb     *Reverb
	Sidechain  *Sidechain
	Filter     *StereoFilter
	Crusher    *BitCrusher
	Stutter    *Stutter
	Compressor *Compressor
	Metronome  *Metronome
	Meter      *LevelMeter
	Spectrum   *SpectrumMeter

	settings Settings
}

// NewChain builds a master bus for render windows of up to maxWindow
// samples.
func NewChain(sampleRate float64, maxWindow int) (*Chain, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("master sample rate must be > 0 and finite: %f", sampleRate)
	}

	sc, err := NewSidechain(sampleRate, 2, 200, 0.5)
	if err != nil {
		return nil, err
	}

	st, err := NewStutter(int(sampleRate / 4))
	if err != nil {
		return nil, err
	}

	comp, err := NewCompressor(sampleRate)
	if err != nil {
		return nil, err
	}

	meter, err := NewLevelMeter(maxWindow, 0.9)
	if err != nil {
		return nil, err
	}

	spec, err := NewSpectrumMeter(1024)
	if err != nil {
		return nil, err
	}

	c := &Chain{
		Reverb:     NewReverb(sampleRate),
		Sidechain:  sc,
		Filter:     NewStereoFilter(sampleRate),
		Crusher:    NewBitCrusher(),
		Stutter:    st,
		Compressor: comp,
		Metronome:  NewMetronome(sampleRate),
		Meter:      meter,
		Spectrum:   spec,
	}

	if err := c.Apply(DefaultSettings()); err != nil {
		return nil, err
	}

	return c, nil
}

// Settings returns the settings last applied.
func (c *Chain) Settings() Settings { return c.settings }

// Apply pushes s into the processors. On error nothing after the failing
// processor is changed.
func (c *Chain) Apply(s Settings) error {
	if s == c.settings {
		return nil
	}

	if err := c.Crusher.Set(s.BitDepth, s.Downsample); err != nil {
		return err
	}

	if err := c.Compressor.Set(s.CompThresholdDB, s.CompRatio); err != nil {
		return err
	}

	if err := c.Sidechain.SetDepth(s.SidechainDepth); err != nil {
		return err
	}

	c.Filter.SetLowpass(s.LPFFreq, s.LPFQ)
	c.Filter.SetHighpass(s.HPFFreq, s.HPFQ)
	c.Reverb.SetRoomSize(s.ReverbRoomSize)
	c.Reverb.SetDamp(s.ReverbDamp)
	c.Reverb.SetWidth(s.ReverbWidth)
	c.Metronome.SetVolume(s.MetronomeVolume)
	c.settings = s

	return nil
}

// Process runs the insert effects over l and r in place: filters,
// bitcrusher, stutter, then compressor.
func (c *Chain) Process(l, r []float64) {
	c.Filter.Process(l, r)
	c.Crusher.Process(l, r)
	c.Stutter.Process(l, r)
	c.Compressor.Process(l, r)
}

// Gains returns the output gain per channel: master volume with pan folded
// in.
func (c *Chain) Gains() (float64, float64) {
	pl, pr := PanGains(c.settings.Pan)
	return c.settings.Volume * pl, c.settings.Volume * pr
}
