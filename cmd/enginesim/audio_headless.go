//go:build headless

package main

import "gopkg.in/errgo.v1"

func newAudioSink(int) (sink, error) {
	return nil, errgo.New("built without audio output; use -null")
}
