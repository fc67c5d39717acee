package chronos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkOrder asserts every input runs before its consumer, once.
func checkOrder(t *testing.T, c *Context) {
	t.Helper()
	pos := make(map[NodeID]int, len(c.order))
	for i, id := range c.order {
		_, dup := pos[id]
		require.False(t, dup, "node %d twice in order", id)
		pos[id] = i
	}
	for i, id := range c.order {
		for _, in := range c.nodes[id].In() {
			p, ok := pos[in]
			require.True(t, ok, "input %d of %d not scheduled", in, id)
			require.Less(t, p, i, "input %d runs after %d", in, id)
		}
	}
}

func TestOrder(t *testing.T) {
	for _, src := range []string{
		"out = sine(440) * 0.5",
		"out = a + b\nb = sine(a)\na = 2",
		"f := 220\nf := f + 1\nout_l = saw(f)\nout_r = pulse(f, .3)",
		"def v(x) { return filter(saw(x), 0, x * 4, 1) }\nout = mix(v(110), v(220), noise())",
		"bpm = 100 + 20\nout = seq(data(1, 2, 3), 4)",
	} {
		c := mustCompile(t, src)
		checkOrder(t, c)
	}
}

func TestOrderReachableOnly(t *testing.T) {
	c := mustCompile(t, "unused = sine(3)\ntempo = 90\nbpm = tempo\nout = 1")
	unused, _ := c.VariableNode("unused")
	tempo, _ := c.VariableNode("tempo")
	assert.NotContains(t, c.order, unused)
	assert.Contains(t, c.order, tempo, "bpm is a root")
	assert.Contains(t, c.order, c.Output(0))

	c = mustCompile(t, "x = 1")
	assert.Empty(t, c.order)
}
