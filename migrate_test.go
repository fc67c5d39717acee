package chronos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(t *testing.T, c *Context, name string) *Node {
	t.Helper()
	id, ok := c.VariableNode(name)
	require.True(t, ok, name)
	return &c.nodes[id]
}

func TestMigrate(t *testing.T) {
	old := mustCompile(t, "a = sine(100)\nb = sine(1)\nd = data(1, 2)\np := 3\nout = a + b + p")
	render(old, 100)
	node(t, old, "p").dsp.s[2], node(t, old, "p").dsp.s[3] = 1, 9
	render(old, 1)

	next := mustCompile(t, "a = sine(100)\nb = saw(1)\nd = data(5)\np := 4\nout = a + b + p")
	next.planMigration(old)
	assert.Len(t, next.plan, 3, "a, p and out")
	next.migrate(old)

	assert.Equal(t, node(t, old, "a").dsp, node(t, next, "a").dsp)
	assert.Equal(t, node(t, old, "a").Value, node(t, next, "a").Value)
	assert.Zero(t, node(t, next, "b").dsp.s[0], "operator changed")
	assert.Equal(t, []float64{5}, node(t, next, "d").Buffer())

	p := node(t, next, "p")
	assert.Equal(t, 3+slewStep, p.dsp.s[0], "ramp position carries over")
	assert.Zero(t, p.dsp.s[2], "override dropped")
	assert.Equal(t, old.Time(), next.Time())
	assert.Equal(t, old.Transport(), next.Transport())
	assert.Equal(t, old.tracker.Playback, next.tracker.Playback)
}

func TestMigrateNil(t *testing.T) {
	c := mustCompile(t, "out = sine(1)")
	c.planMigration(nil)
	c.migrate(nil)
	assert.Empty(t, c.plan)
	assert.Zero(t, c.Time())
}

func TestMigrateDelayLine(t *testing.T) {
	e := newTestEngine()
	src := "echo = delay(imp, 0.5, 0)\nimp = time() < 0.00003\nout = echo"
	require.True(t, e.Eval(src, true))
	for i := 0; i < 24001; i++ {
		if i == 100 {
			require.True(t, e.Eval("x = 1", false))
		}
		e.Tick()
		v := e.Process(0)
		if i == 24000 {
			assert.Equal(t, 1.0, v, "echo survives the swap")
		} else {
			require.Zero(t, v, "sample %d", i)
		}
	}
}

func TestMigrateDelaySpan(t *testing.T) {
	src := "d = delay(sine(100), 0.01, 0)\nout = d"
	reach := int(0.01*testRate) + 3
	tests := []struct {
		name string
		head int
	}{
		{"contiguous", 2000},
		{"wrapped", 5},
	}
	for _, tst := range tests {
		t.Run(tst.name, func(t *testing.T) {
			old := mustCompile(t, src)
			render(old, 10)
			on := node(t, old, "d")
			require.Equal(t, reach, on.dsp.span)
			for i := range on.dsp.buf {
				on.dsp.buf[i] = 1
			}
			on.dsp.head = tst.head

			next := mustCompile(t, src)
			next.planMigration(old)
			next.migrate(old)
			nn := node(t, next, "d")
			size := len(nn.dsp.buf)
			copied := 0
			for _, v := range nn.dsp.buf {
				if v != 0 {
					copied++
				}
			}
			assert.Equal(t, reach, copied)
			assert.Equal(t, 1.0, nn.dsp.buf[(tst.head-1+size)%size])
			assert.Equal(t, 1.0, nn.dsp.buf[(tst.head-reach+size)%size])
			assert.Zero(t, nn.dsp.buf[(tst.head-reach-1+size)%size])
			assert.Zero(t, nn.dsp.buf[tst.head])
		})
	}
}

func TestCopyRecentWhole(t *testing.T) {
	src := []float64{1, 2, 3, 4}
	dst := make([]float64, 4)
	copyRecent(dst, src, 1, 4)
	assert.Equal(t, src, dst)
	dst = make([]float64, 4)
	copyRecent(dst, src, 1, 2)
	assert.Equal(t, []float64{1, 0, 0, 4}, dst)
}
