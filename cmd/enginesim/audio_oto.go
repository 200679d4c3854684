//go:build !headless

package main

import (
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
	"gopkg.in/errgo.v1"

	"github.com/cwbudde/algo-synth/engine/hw"
)

// otoSink plays frames on the host's audio device. Play blocks until the
// device has taken the previous frames, which paces the simulation in
// real time.
type otoSink struct {
	player *oto.Player
	pw     *io.PipeWriter
	buf    []byte
}

func newAudioSink(sampleRate int) (sink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, errgo.Notef(err, "cannot open audio device")
	}

	<-ready

	pr, pw := io.Pipe()
	p := ctx.NewPlayer(pr)
	p.Play()

	return &otoSink{player: p, pw: pw}, nil
}

func (s *otoSink) Play(frames []hw.Frame) error {
	s.buf = s.buf[:0]
	for _, f := range frames {
		s.buf = binary.LittleEndian.AppendUint32(s.buf, math.Float32bits(frameFloat(f.L)))
		s.buf = binary.LittleEndian.AppendUint32(s.buf, math.Float32bits(frameFloat(f.R)))
	}

	_, err := s.pw.Write(s.buf)

	return err
}

func (s *otoSink) Close() error {
	s.pw.Close()
	return s.player.Close()
}
