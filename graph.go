package chronos

const (
	unvisited = iota
	visiting
	visited
)

// sortGraph fills the execution order with every node reachable from the
// outputs and the bpm node, inputs first. Unreachable nodes are left out
// of the order but still checked for cycles.
func (cp *compiler) sortGraph() error {
	c := cp.ctx
	marks := c.marks[:len(c.nodes)]
	clear(marks)
	c.order = c.order[:0]

	var visit func(id NodeID, emit bool) error
	visit = func(id NodeID, emit bool) error {
		switch marks[id] {
		case visited:
			return nil
		case visiting:
			return cp.cycle(marks)
		}
		marks[id] = visiting
		for _, in := range c.nodes[id].In() {
			if err := visit(in, emit); err != nil {
				return err
			}
		}
		marks[id] = visited
		if emit {
			c.order = append(c.order, id)
		}
		return nil
	}

	roots := [...]NodeID{c.outputs[0], c.outputs[1], c.bpmNode}
	for _, id := range roots {
		if id == NoNode {
			continue
		}
		if err := visit(id, true); err != nil {
			return err
		}
	}
	for id := range marks {
		if marks[id] != unvisited {
			continue
		}
		if err := visit(NodeID(id), false); err != nil {
			return err
		}
	}
	return nil
}

// cycle names a forward reference on the current path. Loops can only
// close through one.
func (cp *compiler) cycle(marks []uint8) error {
	for _, f := range cp.ctx.forward {
		if marks[f.node] == visiting {
			return &CompileError{Kind: ErrCycle, Line: f.line, Token: f.name}
		}
	}
	return &CompileError{Kind: ErrCycle, Line: cp.tok.Line}
}
