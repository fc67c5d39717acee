//go:build !sdl

// portaudio backend
package main

import (
	"errors"
	"fmt"
	"strings"

	pa "github.com/gordonklaus/portaudio"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"chronos"
)

const backendName = "portaudio"

type portaudioOut struct {
	e      *chronos.Engine
	log    zerolog.Logger
	stream *pa.Stream
	l, r   []float32
	desc   string
}

func openBackend(e *chronos.Engine, frames int, log zerolog.Logger) (backend, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("unable to setup portaudio: %w", err)
	}
	d, err := pa.DefaultOutputDevice()
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("error opening default output via portaudio: %w", err)
	}
	p := &portaudioOut{
		e:   e,
		log: log,
		l:   make([]float32, frames),
		r:   make([]float32, frames),
	}
	out := [][]float32{p.l, p.r}
	p.stream, err = pa.OpenDefaultStream(0, 2, e.SampleRate(), frames, &out)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("unable to open portaudio stream: %w", err)
	}
	host := "default"
	if api, err := pa.DefaultHostApi(); err == nil {
		host = api.Name
	}
	p.desc = fmt.Sprintf("%s, %s %s, %.f Hz, %d frames",
		strings.Split(pa.VersionText(), ",")[0],
		host,
		d.Name,
		p.stream.Info().SampleRate,
		frames,
	)
	return p, nil
}

func (p *portaudioOut) info() string { return p.desc }

func (p *portaudioOut) run(stop <-chan struct{}) error {
	if err := p.stream.Start(); err != nil {
		return err
	}
	defer p.stream.Stop()
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		renderFrames(p.e, p.l, p.r)
		err := p.stream.Write()
		if errors.Is(err, pa.OutputUnderflowed) {
			p.log.Warn().Msg("output underflow")
			continue
		}
		if err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	}
}

func (p *portaudioOut) close() error {
	var result error
	if err := p.stream.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := pa.Terminate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("termination error: %w", err))
	}
	return result
}
