//go:build sdl

// sdl2 backend
package main

// typedef unsigned char Uint8;
// void callbackSDL(void *userdata, Uint8 *stream, int len);
import "C"
import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/rs/zerolog"
	"github.com/veandco/go-sdl2/sdl"

	"chronos"
)

const backendName = "sdl2"

// the callback has no way to carry a Go pointer
var sdlEngine atomic.Pointer[chronos.Engine]

//export callbackSDL
func callbackSDL(userdata unsafe.Pointer, stream *C.Uint8, length C.int) {
	n := int(length) / 2
	buf := unsafe.Slice((*C.short)(unsafe.Pointer(stream)), n)
	e := sdlEngine.Load()
	for i := 0; i+1 < n; i += 2 {
		if e == nil {
			buf[i], buf[i+1] = 0, 0
			continue
		}
		e.Tick()
		buf[i] = C.short(clip(e.Process(0)) * math.MaxInt16)
		buf[i+1] = C.short(clip(e.Process(1)) * math.MaxInt16)
	}
}

type sdlOut struct {
	desc string
}

func openBackend(e *chronos.Engine, frames int, log zerolog.Logger) (backend, error) {
	if err := sdl.Init(sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("unable to initialise sdl: %w", err)
	}
	spec := &sdl.AudioSpec{
		Freq:     int32(e.SampleRate()),
		Format:   sdl.AUDIO_S16LSB, // other formats untested
		Channels: 2,
		Samples:  uint16(frames),
		Callback: sdl.AudioCallback(C.callbackSDL),
	}
	if err := sdl.OpenAudio(spec, nil); err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("unable to open sdl audio: %w", err)
	}
	sdlEngine.Store(e)
	return &sdlOut{
		desc: fmt.Sprintf("SDL audio, %d Hz, 16bit, %d channels", spec.Freq, spec.Channels),
	}, nil
}

func (s *sdlOut) info() string { return s.desc }

func (s *sdlOut) run(stop <-chan struct{}) error {
	sdl.PauseAudio(false)
	<-stop
	sdl.PauseAudio(true)
	return nil
}

func (s *sdlOut) close() error {
	sdl.CloseAudio()
	sdlEngine.Store(nil)
	sdl.Quit()
	return nil
}
