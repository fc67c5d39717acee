package chronos

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(opts ...Option) *Engine {
	return New(testRate, append([]Option{WithArenaSize(1 << 20)}, opts...)...)
}

func play(e *Engine, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		e.Tick()
		out[i] = e.Process(0)
		e.Process(1)
	}
	return out
}

func TestEmptyEngine(t *testing.T) {
	e := New(0)
	assert.Equal(t, float64(DefaultSampleRate), e.SampleRate())
	assert.Equal(t, []float64{0, 0}, play(e, 2))
	assert.Zero(t, e.Process(5))
}

func TestDeterminism(t *testing.T) {
	src := `
def voice(f) { return filter(saw(f) + noise() * 0.1, 0, f * 3, 2) }
f := 110
out = mix(voice(f), voice(f * 1.5), delay(voice(55), 0.25, 0.4)) * 0.3
`
	a, b := newTestEngine(), newTestEngine()
	require.True(t, a.Eval(src, true))
	require.True(t, b.Eval(src, true))
	assert.Equal(t, play(a, 2000), play(b, 2000))
}

func TestCycleKeepsRunningProgram(t *testing.T) {
	var logged []string
	e := newTestEngine(WithLogFunc(func(l Level, msg string) {
		if l == LogError {
			logged = append(logged, msg)
		}
	}))
	require.True(t, e.Eval("out = 0.25", true))
	assert.Equal(t, 0.25, play(e, 1)[0])
	before := e.Snapshot()

	err := e.EvalErr("a = b\nb = a", false)
	assert.ErrorIs(t, err, ErrCycle)
	assert.Equal(t, 0.25, play(e, 1)[0])
	assert.Equal(t, "out = 0.25\n", e.History(), "history rolled back")
	assert.Equal(t, before, e.Snapshot())
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0], "cycle detected")

	require.True(t, e.Eval("out = 0.5", false))
	assert.Equal(t, 0.5, play(e, 1)[0])
}

func TestParamContinuity(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval("f := 440\nout = f", true))
	out := play(e, 10)
	require.True(t, e.Eval("f := 880\nout = f", true))
	out = append(out, play(e, 200)...)
	for i := 1; i < len(out); i++ {
		require.LessOrEqual(t, math.Abs(out[i]-out[i-1]), slewStep+1e-9, "sample %d", i)
	}
	assert.InDelta(t, 440+200*slewStep, out[len(out)-1], 1e-9)
}

func TestPhaseContinuity(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval("out = sine(220)", true))
	out := play(e, 100)
	require.True(t, e.Eval("unrelated = 1", false))
	out = append(out, play(e, 100)...)
	step := Tau * 220 / testRate
	for i := 1; i < len(out); i++ {
		require.LessOrEqual(t, math.Abs(out[i]-out[i-1]), step, "sample %d", i)
	}
}

func TestMacroGain(t *testing.T) {
	half, full := newTestEngine(), newTestEngine()
	require.True(t, half.Eval("def amp(x, g) { return x * g }\nout = amp(sine(440), 0.5)", true))
	require.True(t, full.Eval("out = sine(440)", true))
	h, f := play(half, 500), play(full, 500)
	for i := range h {
		require.Equal(t, f[i]*0.5, h[i], "sample %d", i)
	}
}

func TestPatternRoundTrip(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval(`pattern 0, 0, "C-4 01 40 . .."`, true))
	c, ok := e.Cell(0, 0, 0)
	require.True(t, ok)
	assert.Equal(t, Cell{Note: 49, Inst: 1, Vol: 0x40, Cmd: 0, Val: 0}, c)
	assert.Equal(t, "C-4 01 40 . ..", c.String())
}

func macroChain(n int) string {
	var b strings.Builder
	b.WriteString("def d0(x) { return x }\n")
	for i := 1; i < n; i++ {
		fmt.Fprintf(&b, "def d%d(x) { return d%d(x) }\n", i, i-1)
	}
	fmt.Fprintf(&b, "out = d%d(1)\n", n-1)
	return b.String()
}

func TestRecursionBound(t *testing.T) {
	e := newTestEngine()
	assert.NoError(t, e.EvalErr(macroChain(CallDepth), true))
	assert.ErrorIs(t, e.EvalErr(macroChain(CallDepth+1), true), ErrStackOverflow)

	e = newTestEngine(WithCallDepth(4))
	assert.NoError(t, e.EvalErr(macroChain(4), true))
	assert.ErrorIs(t, e.EvalErr(macroChain(5), true), ErrStackOverflow)
}

func TestEvalWithoutAudio(t *testing.T) {
	e := newTestEngine()
	for i := 1; i <= 5; i++ {
		require.True(t, e.Eval(fmt.Sprintf("out = %d", i), false))
	}
	assert.Equal(t, 5.0, play(e, 1)[0], "only the newest program plays")

	require.True(t, e.Eval("out = 6", false))
	require.False(t, e.Eval("out = (", false))
	assert.Equal(t, 6.0, play(e, 1)[0], "a pending program survives a failed eval")
}

func TestHistory(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval("a = 1", false))
	require.True(t, e.Eval("out = a", false))
	assert.Equal(t, "a = 1\nout = a\n", e.History())
	require.True(t, e.Eval("out = 2", true))
	assert.Equal(t, "out = 2\n", e.History())
	_, ok := e.VariableNode("a")
	assert.False(t, ok)
}

func TestSetParam(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval("g := 0.5\nk = 1\nout = g", true))
	assert.Equal(t, 0.5, play(e, 1)[0])

	assert.True(t, e.SetParam("g", 1))
	assert.Equal(t, 0.5+slewStep, play(e, 1)[0])
	assert.False(t, e.SetParam("k", 1), "not a parameter")
	assert.False(t, e.SetParam("nope", 1))

	// a write aimed at a program that was replaced is dropped
	assert.True(t, e.SetParam("g", 0))
	require.True(t, e.Eval("g := 0.75\nout = g", true))
	out := play(e, 1)[0]
	assert.InDelta(t, 0.5+slewStep*2, out, 1e-12, "ramps toward the new source value")
}

func TestSetParamBeforeAdoption(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval("g := 0\nout = g", true))
	assert.True(t, e.SetParam("g", 1), "aimed at the pending program")
	assert.Equal(t, slewStep, play(e, 1)[0])
}

func TestResetTransport(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval("out = time()", true))
	play(e, 100)
	e.ResetTransport()
	assert.InDelta(t, 1.0/testRate, play(e, 1)[0], 1e-12)
	assert.Equal(t, int64(1), e.active.Load().Time())
	assert.Zero(t, e.active.Load().Tracker().Row)
}

func TestBPM(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval("bpm = 2\nout = 0", true))
	play(e, 1)
	assert.Equal(t, 10.0, e.active.Load().Transport().BPM, "floored")

	require.True(t, e.Eval("bpm = 150", true))
	play(e, 1)
	tr := e.active.Load().Transport()
	assert.Equal(t, 150.0, tr.BPM)
	assert.Equal(t, testRate*60/150.0, tr.SamplesPerBeat)

	require.True(t, e.Eval("out = 0", true))
	play(e, 1)
	assert.Equal(t, float64(DefaultTempo), e.active.Load().Transport().BPM, "tracker tempo when unbound")
}

func TestStereo(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval("out_l = 0.1\nout_r = 0.2", true))
	e.Tick()
	assert.Equal(t, 0.1, e.Process(0))
	assert.Equal(t, 0.2, e.Process(1))
	assert.Zero(t, e.Process(2))
}

func TestOrderAndSnapshot(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval("order 2, 1\nx = sine(3)\nout = x * 0.5", true))
	assert.Equal(t, []uint8{2, 1}, e.Order())

	g := e.Snapshot()
	assert.Equal(t, uint64(1), g.Generation)
	assert.Len(t, g.Nodes, 4)
	assert.Equal(t, []NodeID{0, 1, 2, 3}, g.Order)
	assert.Equal(t, g.Outputs[0], g.Outputs[1])
	assert.Equal(t, NoNode, g.BPM)
	assert.Equal(t, "mul", g.Nodes[g.Outputs[0]].Op)
	assert.Equal(t, []NodeID{1, 2}, g.Nodes[3].Inputs)
	assert.Equal(t, 0.5, g.Nodes[2].Const)
	assert.Equal(t, []string(nil), g.Macros)
}

func TestClose(t *testing.T) {
	e := newTestEngine()
	require.True(t, e.Eval("out = 1", true))
	play(e, 1)
	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Close(), ErrClosed)
	assert.ErrorIs(t, e.EvalErr("out = 2", false), ErrClosed)
	assert.False(t, e.SetParam("out", 1))
	e.Tick()
	assert.Zero(t, e.Process(0))
	assert.Equal(t, NoNode, e.Snapshot().BPM)
}

func TestLogLevels(t *testing.T) {
	var mu sync.Mutex
	levels := map[Level]int{}
	fn := func(l Level, msg string) {
		mu.Lock()
		levels[l]++
		mu.Unlock()
	}
	e := newTestEngine(WithLogLevel(LogError), WithLogFunc(fn))
	e.Eval("out = 1", true)
	e.Eval("out = nope(", false)
	assert.Equal(t, map[Level]int{LogError: 1}, levels)

	e.SetLogLevel(LogDebug)
	e.NoteOn(60, 1)
	e.NoteOff(60)
	assert.Equal(t, 2, levels[LogDebug])

	e.SetLogCallback(nil)
	e.Eval("out = (", false)
	assert.Equal(t, 1, levels[LogError])
}

func TestConcurrentEval(t *testing.T) {
	e := newTestEngine()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				e.Tick()
				e.Process(0)
				e.Process(1)
			}
		}
	}()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				e.Eval(fmt.Sprintf("f := %d\nout = sine(f) * 0.1", 100+w*10+i), true)
				e.SetParam("f", 300)
				e.Snapshot()
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	<-done
	assert.NotZero(t, e.Snapshot().Generation)
}
