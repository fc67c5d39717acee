package chronos

import (
	"errors"
	"fmt"
)

// compile error kinds, match with errors.Is
var (
	ErrSyntax          = errors.New("syntax error")
	ErrUnknownVariable = errors.New("unknown variable")
	ErrUnknownFunction = errors.New("unknown function")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrCycle           = errors.New("cycle detected")
	ErrArenaExhausted  = errors.New("arena exhausted")
	ErrCapacity        = errors.New("capacity exceeded")
	ErrClosed          = errors.New("engine closed")
)

// CompileError reports where a compilation was abandoned.
type CompileError struct {
	Kind  error
	Line  int
	Token string
	Msg   string
}

func (e *CompileError) Error() string {
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return fmt.Sprintf("line %d: %s (token: %q)", e.Line, msg, e.Token)
}

func (e *CompileError) Unwrap() error {
	return e.Kind
}
