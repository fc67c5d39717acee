package chronos

// migration carries one node's state from the retiring program.
type migration struct {
	from, to NodeID
}

// planMigration matches c's variables against old by name. Only nodes
// running the same operator carry state, data nodes are rebuilt from
// source every time. Runs on the control thread.
func (c *Context) planMigration(old *Context) {
	c.plan = c.plan[:0]
	if old == nil {
		return
	}
	for _, v := range c.vars {
		from, ok := old.VariableNode(v.Name)
		if !ok {
			continue
		}
		nn, on := &c.nodes[v.Node], &old.nodes[from]
		if nn.Op != on.Op || nn.Op == opData || nn.Op == opConst {
			continue
		}
		c.plan = append(c.plan, migration{from: from, to: v.Node})
	}
}

// migrate applies the plan and takes over old's clock. Runs on the audio
// thread right before c executes for the first time, so it must not
// allocate.
func (c *Context) migrate(old *Context) {
	if old == nil {
		return
	}
	for _, m := range c.plan {
		dst, src := &c.nodes[m.to], &old.nodes[m.from]
		if dst.Op == opParam {
			// ramp position and target only, host overrides are dropped
			dst.dsp.s[0], dst.dsp.s[1] = src.dsp.s[0], src.dsp.s[1]
			dst.Value = src.Value
			continue
		}
		// the buffer header stays, Snapshot reads its length concurrently
		d := &dst.dsp
		d.s, d.head, d.seed, d.span = src.dsp.s, src.dsp.head, src.dsp.seed, src.dsp.span
		copyRecent(d.buf, src.dsp.buf, d.head, d.span)
		if d.head >= len(d.buf) {
			d.head = 0
		}
		dst.Value = src.Value
	}
	c.time = old.time
	c.transport = old.transport
	c.tracker.Playback = old.tracker.Playback
}

// copyRecent copies the n samples written before head in the ring src.
// Older samples are never read again, the rest of dst stays zero.
func copyRecent(dst, src []float64, head, n int) {
	if len(dst) != len(src) || n >= len(src) {
		copy(dst, src)
		return
	}
	start := head - n
	if start >= 0 {
		copy(dst[start:head], src[start:head])
		return
	}
	copy(dst[:head], src[:head])
	copy(dst[len(src)+start:], src[len(src)+start:])
}
