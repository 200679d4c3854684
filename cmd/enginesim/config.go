package main

import (
	"fmt"
	"os"

	"gopkg.in/errgo.v1"
	yaml "gopkg.in/yaml.v1"

	"github.com/cwbudde/algo-synth/engine/synth"
	"github.com/cwbudde/algo-synth/engine/voice"
)

// config is the simulation as read from a YAML file.
type config struct {
	SampleRate float64 `yaml:"sample-rate"`
	RingSize   int     `yaml:"ring-size"`
	// Block is how many frames the simulated DMA moves between calls to
	// the render routine.
	Block int `yaml:"block"`
	// Seconds is how much audio to render.
	Seconds float64 `yaml:"seconds"`

	Tempo     float64 `yaml:"tempo"`
	Swing     float64 `yaml:"swing"`
	Loop      int32   `yaml:"loop"`
	Metronome float64 `yaml:"metronome"`
	MIDIClock bool    `yaml:"midi-clock"`
	// TriggerPPQN enables a trigger clock on gate 0.
	TriggerPPQN int `yaml:"trigger-ppqn"`

	Voices int `yaml:"voices"`
	// Limit overrides the window size culling starts at.
	Limit int `yaml:"limit"`

	Sounds []soundConfig `yaml:"sounds"`
	Steps  []stepConfig  `yaml:"steps"`
	// Volume automates the master volume over the loop.
	Volume []nodeConfig `yaml:"volume"`
}

type soundConfig struct {
	Name      string             `yaml:"name"`
	Wave      string             `yaml:"wave"`
	Priority  string             `yaml:"priority"`
	MaxVoices int                `yaml:"max-voices"`
	Ducking   float64            `yaml:"ducking"`
	Params    map[string]float64 `yaml:"params"`
}

type stepConfig struct {
	Pos       int32   `yaml:"pos"`
	Sound     string  `yaml:"sound"`
	Note      int     `yaml:"note"`
	Velocity  float64 `yaml:"velocity"`
	Length    int32   `yaml:"length"`
	SideChain float64 `yaml:"sidechain"`
}

type nodeConfig struct {
	Pos    int32   `yaml:"pos"`
	Value  float64 `yaml:"value"`
	Interp bool    `yaml:"interpolate"`
}

var paramNames = map[string]int{
	"volume":  synth.ParamVolume,
	"pan":     synth.ParamPan,
	"pitch":   synth.ParamPitch,
	"reverb":  synth.ParamReverbSend,
	"attack":  synth.ParamAttack,
	"decay":   synth.ParamDecay,
	"sustain": synth.ParamSustain,
	"release": synth.ParamRelease,
	"lfo":     synth.ParamLFORate,
}

var priorityNames = map[string]voice.Priority{
	"":       voice.PriorityMedium,
	"low":    voice.PriorityLow,
	"medium": voice.PriorityMedium,
	"high":   voice.PriorityHigh,
}

func defaultConfig() config {
	return config{
		SampleRate: 44100,
		RingSize:   128,
		Block:      32,
		Seconds:    8,
		Tempo:      120,
		Loop:       synth.DefaultLoopLength,
		Metronome:  0,
		Voices:     24,
		Sounds: []soundConfig{
			{Name: "kick", Wave: "sine", Priority: "high", MaxVoices: 2, Params: map[string]float64{
				"decay": 0.2, "sustain": 0, "release": 0.05,
			}},
			{Name: "bass", Wave: "saw", Ducking: 0.6, Params: map[string]float64{
				"volume": 0.5, "release": 0.05,
			}},
			{Name: "lead", Wave: "square", Priority: "low", MaxVoices: 8, Params: map[string]float64{
				"volume": 0.3, "reverb": 0.4, "pan": 0.3,
			}},
		},
		Steps: []stepConfig{
			{Pos: 0, Sound: "kick", Note: 36, Velocity: 1, Length: 24, SideChain: 1},
			{Pos: 96, Sound: "kick", Note: 36, Velocity: 1, Length: 24, SideChain: 1},
			{Pos: 192, Sound: "kick", Note: 36, Velocity: 1, Length: 24, SideChain: 1},
			{Pos: 288, Sound: "kick", Note: 36, Velocity: 1, Length: 24, SideChain: 1},
			{Pos: 48, Sound: "bass", Note: 40, Velocity: 0.8, Length: 40},
			{Pos: 144, Sound: "bass", Note: 43, Velocity: 0.8, Length: 40},
			{Pos: 240, Sound: "bass", Note: 45, Velocity: 0.8, Length: 40},
			{Pos: 336, Sound: "bass", Note: 43, Velocity: 0.8, Length: 40},
			{Pos: 0, Sound: "lead", Note: 64, Velocity: 0.7, Length: 90},
			{Pos: 24, Sound: "lead", Note: 67, Velocity: 0.7, Length: 90},
			{Pos: 48, Sound: "lead", Note: 71, Velocity: 0.7, Length: 90},
			{Pos: 72, Sound: "lead", Note: 74, Velocity: 0.7, Length: 90},
		},
	}
}

// readConfig reads the YAML file at path over the defaults.
func readConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, errgo.Mask(err)
	}

	if err := parseConfig(data, &cfg); err != nil {
		return config{}, errgo.Notef(err, "cannot read %s", path)
	}

	return cfg, nil
}

// parseConfig reads data over the values already in cfg. Fields the YAML
// leaves out keep their value in cfg. Sounds and steps describe one song:
// a file naming its own sounds gets none of cfg's sounds or steps.
func parseConfig(data []byte, cfg *config) error {
	var file config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errgo.Mask(err)
	}

	file.fill(*cfg)
	*cfg = file

	return cfg.validate()
}

func (c *config) fill(d config) {
	orDefault(&c.SampleRate, d.SampleRate)
	orDefault(&c.RingSize, d.RingSize)
	orDefault(&c.Block, d.Block)
	orDefault(&c.Seconds, d.Seconds)
	orDefault(&c.Tempo, d.Tempo)
	orDefault(&c.Swing, d.Swing)
	orDefault(&c.Loop, d.Loop)
	orDefault(&c.Metronome, d.Metronome)
	orDefault(&c.MIDIClock, d.MIDIClock)
	orDefault(&c.TriggerPPQN, d.TriggerPPQN)
	orDefault(&c.Voices, d.Voices)
	orDefault(&c.Limit, d.Limit)

	if c.Sounds == nil {
		c.Sounds = d.Sounds
		if c.Steps == nil {
			c.Steps = d.Steps
		}
	}

	if c.Volume == nil {
		c.Volume = d.Volume
	}
}

func orDefault[T comparable](v *T, d T) {
	var zero T
	if *v == zero {
		*v = d
	}
}

func (c *config) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample rate must be > 0: %g", c.SampleRate)
	case c.RingSize <= 0 || c.RingSize&(c.RingSize-1) != 0:
		return fmt.Errorf("ring size must be a power of two: %d", c.RingSize)
	case c.Block <= 0 || c.Block >= c.RingSize:
		return fmt.Errorf("block must be in [1, %d): %d", c.RingSize, c.Block)
	case c.Seconds <= 0:
		return fmt.Errorf("seconds must be > 0: %g", c.Seconds)
	case c.Voices <= 0:
		return fmt.Errorf("voices must be > 0: %d", c.Voices)
	}

	names := make(map[string]bool, len(c.Sounds))
	for _, s := range c.Sounds {
		if names[s.Name] {
			return fmt.Errorf("duplicate sound %q", s.Name)
		}

		names[s.Name] = true

		if _, ok := synth.ParseWave(s.Wave); !ok && s.Wave != "" {
			return fmt.Errorf("sound %q: unknown wave %q", s.Name, s.Wave)
		}

		if _, ok := priorityNames[s.Priority]; !ok {
			return fmt.Errorf("sound %q: unknown priority %q", s.Name, s.Priority)
		}

		for p := range s.Params {
			if _, ok := paramNames[p]; !ok {
				return fmt.Errorf("sound %q: unknown parameter %q", s.Name, p)
			}
		}
	}

	for _, st := range c.Steps {
		if !names[st.Sound] {
			return fmt.Errorf("step at %d plays unknown sound %q", st.Pos, st.Sound)
		}
	}

	return nil
}

// encodeParam converts a plain value to the parameter's encoding.
func encodeParam(i int, v float64) int32 {
	switch i {
	case synth.ParamPan:
		return synth.Bipolar(v)
	case synth.ParamPitch:
		return synth.Semitones(v)
	default:
		return synth.Unipolar(v)
	}
}
