package main

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

const (
	promptMain = "> "
	promptCont = ". "
)

func isTerminalIO() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// repl reads statements until :quit or end of input. Piped input is read
// line by line without editing or history.
func repl(s *session, in io.Reader) {
	if in != os.Stdin || !isTerminalIO() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			if s.line(sc.Text()) {
				return
			}
		}
		return
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	hist := historyPath()
	if f, err := os.Open(hist); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(hist); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		prompt := promptMain
		if s.continuing() {
			prompt = promptCont
		}
		text, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		if err != nil {
			s.log.Error().Err(err).Msg("prompt")
			return
		}
		if text != "" {
			ln.AppendHistory(text)
		}
		if s.line(text) {
			return
		}
	}
}
