// Command enginesim runs the audio engine against a simulated codec and
// plays or records the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"

	flag "github.com/juju/gnuflag"
	"github.com/juju/loggo"
	"gopkg.in/errgo.v1"

	"github.com/cwbudde/algo-synth/engine/hw"
)

var logger = loggo.GetLogger("algosynth.enginesim")

var (
	configPath = flag.String("config", "", "YAML file describing the song and engine")
	record     = flag.String("record", "", "write the output to this WAV file")
	recordSecs = flag.Float64("record-seconds", 0, "seconds to record (0 records everything)")
	null       = flag.Bool("null", false, "render as fast as possible without playing")
	logConfig  = flag.String("log", "<root>=INFO", "logging configuration")
	seconds    = flag.Float64("seconds", 0, "override the configured length")
	tempo      = flag.Float64("tempo", 0, "override the configured tempo")
)

func init() {
	flag.StringVar(configPath, "c", "", "")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: enginesim [flags]\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	flag.Parse(true)

	if err := main0(); err != nil {
		fmt.Fprintf(os.Stderr, "enginesim: %v\n", err)
		os.Exit(1)
	}
}

func main0() error {
	if err := loggo.ConfigureLoggers(*logConfig); err != nil {
		return errgo.Notef(err, "bad -log value")
	}

	cfg, err := readConfig(*configPath)
	if err != nil {
		return errgo.Mask(err)
	}

	if *seconds > 0 {
		cfg.Seconds = *seconds
	}

	if *tempo > 0 {
		cfg.Tempo = *tempo
	}

	total := int(cfg.Seconds * cfg.SampleRate)

	var (
		rec          *os.File
		recordFrames int
	)

	if *record != "" {
		recordFrames = total
		if *recordSecs > 0 {
			recordFrames = min(total, int(*recordSecs*cfg.SampleRate))
		}

		rec, err = os.Create(*record)
		if err != nil {
			return errgo.Mask(err)
		}

		defer rec.Close()
	}

	var s *simulation
	if rec != nil {
		s, err = newSimulation(cfg, rec, recordFrames)
	} else {
		s, err = newSimulation(cfg, nil, 0)
	}

	if err != nil {
		return errgo.Notef(err, "cannot build engine")
	}

	var dst sink = &nullSink{}
	if !*null {
		dst, err = newAudioSink(int(cfg.SampleRate))
		if err != nil {
			return errgo.Mask(err)
		}
	}

	defer dst.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := s.run(ctx, dst); err != nil && !errors.Is(err, context.Canceled) {
		return errgo.Mask(err)
	}

	if ns, ok := dst.(*nullSink); ok {
		logger.Infof("peak output %.1f dBFS over %d frames", ns.peakDB(), ns.frames)
	}

	return nil
}

// nullSink drops frames, keeping only the peak level.
type nullSink struct {
	frames int
	peak   float32
}

func (s *nullSink) Play(frames []hw.Frame) error {
	for _, f := range frames {
		s.peak = max(s.peak, abs32(frameFloat(f.L)), abs32(frameFloat(f.R)))
	}

	s.frames += len(frames)

	return nil
}

func (s *nullSink) Close() error { return nil }

func (s *nullSink) peakDB() float64 {
	if s.peak == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(float64(s.peak))
}

// frameFloat converts a codec word to a float in [-1, 1).
func frameFloat(v int32) float32 {
	return float32(v) / (1 << 31)
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}

	return x
}
