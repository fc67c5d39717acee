package main

import (
	"math"
	"sync/atomic"

	"chronos"
)

// backend drives an engine from an audio device. run blocks until stop
// is closed or the device fails.
type backend interface {
	run(stop <-chan struct{}) error
	close() error
	info() string
}

const advisory = `Protect your hearing when listening to any audio on a system capable of
more than 85dB SPL. Start with the volume low.`

// set by clip, cleared by whoever reports it
var clipping atomic.Bool

func clip(in float64) float64 { // hard clip
	switch {
	case in > 1:
		in = 1
		clipping.Store(true)
	case in < -1:
		in = -1
		clipping.Store(true)
	case math.IsNaN(in):
		in = 0
	}
	return in
}

// renderFrames runs one engine tick per frame.
func renderFrames(e *chronos.Engine, l, r []float32) {
	for i := range l {
		e.Tick()
		l[i] = float32(clip(e.Process(0)))
		r[i] = float32(clip(e.Process(1)))
	}
}
