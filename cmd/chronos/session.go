package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"chronos"
)

// session feeds a running engine from the script file and the REPL.
type session struct {
	e    *chronos.Engine
	log  zerolog.Logger
	file string // may be empty

	mu      sync.Mutex // guards out and pending
	out     io.Writer
	pending strings.Builder
	depth   int // open braces in pending
}

func newSession(e *chronos.Engine, out io.Writer, log zerolog.Logger) *session {
	return &session{e: e, out: out, log: log}
}

// reload replaces the program with the script file, dropping anything
// entered at the REPL since.
func (s *session) reload() {
	if s.file == "" {
		return
	}
	src, err := os.ReadFile(s.file)
	if err != nil {
		s.log.Error().Err(err).Msg("reload")
		return
	}
	if err := s.e.EvalErr(string(src), true); err != nil {
		s.printErr(err)
		return
	}
	s.log.Info().Str("file", s.file).Msg("reloaded")
}

// line takes one line of REPL input and reports whether to quit. Macro
// definitions may span lines, input is collected until braces balance.
func (s *session) line(text string) (quit bool) {
	s.mu.Lock()
	if s.pending.Len() == 0 && strings.HasPrefix(strings.TrimSpace(text), ":") {
		s.mu.Unlock()
		return s.meta(strings.Fields(strings.TrimSpace(text)))
	}
	s.pending.WriteString(text)
	s.pending.WriteByte('\n')
	s.depth += strings.Count(text, "{") - strings.Count(text, "}")
	if s.depth > 0 {
		s.mu.Unlock()
		return false
	}
	code := s.pending.String()
	s.pending.Reset()
	s.depth = 0
	s.mu.Unlock()

	if strings.TrimSpace(code) == "" {
		return false
	}
	if err := s.e.EvalErr(code, false); err != nil {
		s.printErr(err)
	}
	return false
}

// continuing reports whether a multi-line statement is being collected.
func (s *session) continuing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len() > 0
}

func (s *session) meta(args []string) bool {
	switch args[0] {
	case ":quit", ":q":
		return true
	case ":reset":
		if s.file == "" {
			if err := s.e.EvalErr("", true); err != nil {
				s.printErr(err)
			}
			return false
		}
		s.reload()
	case ":rewind":
		s.e.ResetTransport()
	case ":vars":
		s.mu.Lock()
		printVariables(s.out, s.e.Snapshot())
		s.mu.Unlock()
	case ":ops":
		s.mu.Lock()
		printOperators(s.out)
		s.mu.Unlock()
	case ":history":
		s.printf("%s", s.e.History())
	case ":set":
		if len(args) != 3 {
			s.printf("usage: :set name value\n")
			return false
		}
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			s.printErr(err)
			return false
		}
		if !s.e.SetParam(args[1], v) {
			s.printf("%s is not a parameter\n", args[1])
		}
	default:
		s.printf("unknown command %s, try :quit :reset :rewind :vars :ops :history :set\n", args[0])
	}
	return false
}

func (s *session) printf(format string, a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, a...)
}

func (s *session) printErr(err error) {
	s.printf("%s\n", color.RedString(err.Error()))
}
