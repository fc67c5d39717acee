package main

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"chronos"
)

const renderChunk = 4096 // frames per encoder write

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render file",
		Short: "Render a script to a 16bit stereo WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			out, _ := cmd.Flags().GetString("output")
			seconds, _ := cmd.Flags().GetFloat64("seconds")
			if seconds <= 0 {
				return fmt.Errorf("seconds must be positive, got %g", seconds)
			}
			e, err := compileFile(args[0])
			if err != nil {
				return err
			}
			defer e.Close()
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer func() {
				err = multierror.Append(err, f.Close()).ErrorOrNil()
			}()
			frames := int(seconds * e.SampleRate())
			if err := renderWAV(e, f, frames); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d frames\n", out, frames)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "out.wav", "output file")
	cmd.Flags().Float64P("seconds", "s", 10, "length")
	return cmd
}

// renderWAV runs the engine for frames samples, faster than real time.
func renderWAV(e *chronos.Engine, w io.WriteSeeker, frames int) error {
	rate := int(e.SampleRate())
	enc := wav.NewEncoder(w, rate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		SourceBitDepth: 16,
		Data:           make([]int, 2*renderChunk),
	}
	l, r := make([]float32, renderChunk), make([]float32, renderChunk)
	for done := 0; done < frames; {
		n := min(renderChunk, frames-done)
		renderFrames(e, l[:n], r[:n])
		buf.Data = buf.Data[:2*n]
		for i := 0; i < n; i++ {
			buf.Data[2*i] = int(l[i] * math.MaxInt16)
			buf.Data[2*i+1] = int(r[i] * math.MaxInt16)
		}
		if err := enc.Write(buf); err != nil {
			return err
		}
		done += n
	}
	return enc.Close()
}
