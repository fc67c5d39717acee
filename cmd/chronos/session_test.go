package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronos"
)

func newTestSession() (*session, *bytes.Buffer) {
	var out bytes.Buffer
	e := chronos.New(48000, chronos.WithArenaSize(1<<20))
	return newSession(e, &out, zerolog.Nop()), &out
}

func frame(s *session) (float32, float32) {
	l, r := make([]float32, 1), make([]float32, 1)
	renderFrames(s.e, l, r)
	return l[0], r[0]
}

func TestClip(t *testing.T) {
	tests := []struct {
		in, want float64
		clipped  bool
	}{
		{0.5, 0.5, false},
		{-1, -1, false},
		{1.5, 1, true},
		{-7, -1, true},
		{math.Inf(1), 1, true},
		{math.NaN(), 0, false},
	}
	for _, tst := range tests {
		clipping.Store(false)
		assert.Equal(t, tst.want, clip(tst.in), "%v", tst.in)
		assert.Equal(t, tst.clipped, clipping.Load(), "%v", tst.in)
	}
}

func TestSessionLines(t *testing.T) {
	s, out := newTestSession()
	assert.False(t, s.line("g := 0.25"))
	assert.False(t, s.line("out = g"))
	l, r := frame(s)
	assert.Equal(t, float32(0.25), l)
	assert.Equal(t, float32(0.25), r)

	// a macro spanning lines is held back until it closes
	assert.False(t, s.line("def half(x) {"))
	assert.True(t, s.continuing())
	assert.False(t, s.line("  return x * 0.5"))
	assert.False(t, s.line("}"))
	assert.False(t, s.continuing())
	assert.False(t, s.line("out = half(1)"))
	l, _ = frame(s)
	assert.Equal(t, float32(0.5), l)

	assert.False(t, s.line("out = nope(1)"))
	assert.Contains(t, out.String(), "unknown function")
	l, _ = frame(s)
	assert.Equal(t, float32(0.5), l, "failed line leaves the program running")

	assert.True(t, s.line(":quit"))
}

func TestSessionMeta(t *testing.T) {
	s, out := newTestSession()
	s.line("g := 0")
	s.line("out = g")
	frame(s)

	s.line(":set g 1")
	l, _ := frame(s)
	assert.InDelta(t, 0.005, l, 1e-6, "one ramp step toward the new value")

	for _, cmd := range []string{":set g", ":set g x", ":set nope 1", ":bogus"} {
		out.Reset()
		assert.False(t, s.line(cmd))
		assert.NotEmpty(t, out.String(), cmd)
	}

	out.Reset()
	s.line(":vars")
	assert.Contains(t, out.String(), "param")

	out.Reset()
	s.line(":history")
	assert.Equal(t, "g := 0\nout = g\n", out.String())

	out.Reset()
	s.line(":ops")
	assert.Contains(t, out.String(), "adsr")

	s.line(":reset")
	l, _ = frame(s)
	assert.Zero(t, l)
	assert.Empty(t, strings.TrimSpace(s.e.History()))
}

func TestSessionRewind(t *testing.T) {
	s, _ := newTestSession()
	s.line("out = time()")
	for i := 0; i < 100; i++ {
		frame(s)
	}
	s.line(":rewind")
	l, _ := frame(s)
	assert.InDelta(t, 1.0/48000, l, 1e-7)
}

func TestSessionReload(t *testing.T) {
	s, out := newTestSession()
	s.file = script(t, "out = 0.5")
	s.reload()
	s.line("out = 0.25")
	l, _ := frame(s)
	assert.Equal(t, float32(0.25), l)

	s.line(":reset")
	l, _ = frame(s)
	assert.Equal(t, float32(0.5), l, "repl additions dropped")

	require.NoError(t, os.WriteFile(s.file, []byte("out = ("), 0o644))
	s.reload()
	assert.Contains(t, out.String(), "syntax error")
	l, _ = frame(s)
	assert.Equal(t, float32(0.5), l)
}

func TestReplPiped(t *testing.T) {
	s, _ := newTestSession()
	repl(s, strings.NewReader("out = 0.75\n:quit\nout = 1\n"))
	l, _ := frame(s)
	assert.Equal(t, float32(0.75), l)
}

func TestWatchFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "song.chr")
	require.NoError(t, os.WriteFile(f, []byte("out = 0"), 0o644))
	reloads := make(chan struct{}, 8)
	w, err := watchFile(f, zerolog.Nop(), func() { reloads <- struct{}{} })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(f), "other.chr"), nil, 0o644))
	require.NoError(t, os.WriteFile(f, []byte("out = 1"), 0o644))
	select {
	case <-reloads:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
	time.Sleep(4 * settle)
	assert.Empty(t, reloads, "writes close together reload once")
}
