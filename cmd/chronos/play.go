package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chronos"
)

func runPlay(cmd *cobra.Command, args []string) (err error) {
	viper.BindPFlag(keyBuffer, cmd.Flags().Lookup(keyBuffer))
	noWatch, _ := cmd.Flags().GetBool("no-watch")
	noRepl, _ := cmd.Flags().GetBool("no-repl")

	log := newLogger(cmd.ErrOrStderr(), logLevel())
	e := chronos.New(viper.GetInt(keySampleRate), engineOptions(log)...)
	s := newSession(e, cmd.OutOrStdout(), log)

	var teardown []func() error
	defer func() {
		result := multierror.Append(err)
		for i := len(teardown) - 1; i >= 0; i-- {
			result = multierror.Append(result, teardown[i]())
		}
		err = result.ErrorOrNil()
	}()
	teardown = append(teardown, e.Close)

	if len(args) > 0 {
		s.file = args[0]
		if _, err := os.Stat(s.file); err != nil {
			return err
		}
		s.reload()
	}

	b, err := openBackend(e, viper.GetInt(keyBuffer), log)
	if err != nil {
		return err
	}
	teardown = append(teardown, b.close)
	s.printf("%s\n\n", advisory)
	log.Info().Str("backend", backendName).Msg(b.info())

	if s.file != "" && !noWatch {
		w, err := watchFile(s.file, log, s.reload)
		if err != nil {
			return err
		}
		teardown = append(teardown, w.Close)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.run(stop)
	}()
	if !noRepl {
		go func() {
			repl(s, os.Stdin)
			cancel()
		}()
	}
	go reportClipping(ctx, s)

	select {
	case <-ctx.Done():
		close(stop)
		return <-done
	case err := <-done:
		return err
	}
}

// reportClipping warns at most twice a second while output is clipped.
func reportClipping(ctx context.Context, s *session) {
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if clipping.Swap(false) {
				s.log.Warn().Msg("output clipping")
			}
		}
	}
}
