package chronos

import (
	"fmt"
	"math"
	"strconv"
)

// forwardRef is a global used before its assignment. Bound on assignment,
// an error if still unbound when the source is exhausted.
type forwardRef struct {
	name string
	node NodeID
	line int
}

// compiler holds the transient parse state of one compilation. Everything
// it produces lands in ctx.
type compiler struct {
	ctx *Context
	lx  lexer
	tok Token
	ret NodeID // set by return inside a macro body
}

// compile builds src into c from scratch. On error c is left half built
// and must not be published.
func (c *Context) compile(src string) error {
	c.reset()
	cp := &compiler{ctx: c, lx: newLexer(src, 1), ret: NoNode}
	cp.advance()
	for cp.tok.Kind != TokenEnd {
		if err := cp.statement(); err != nil {
			return err
		}
	}
	for _, f := range c.forward {
		if c.nodes[f.node].NumInputs == 0 {
			return &CompileError{Kind: ErrUnknownVariable, Line: f.line, Token: f.name}
		}
	}
	return cp.sortGraph()
}

func (cp *compiler) advance() { cp.tok = cp.lx.next() }

func (cp *compiler) errorf(kind error, format string, a ...interface{}) error {
	return cp.errorAt(cp.tok, kind, format, a...)
}

func (cp *compiler) errorAt(tok Token, kind error, format string, a ...interface{}) error {
	return &CompileError{Kind: kind, Line: tok.Line, Token: tok.Text, Msg: fmt.Sprintf(format, a...)}
}

func (cp *compiler) expect(punct string) error {
	if !cp.tok.is(punct) {
		return cp.errorf(ErrSyntax, "expected '%s'", punct)
	}
	cp.advance()
	return nil
}

func (cp *compiler) node(op *Operator) (NodeID, error) {
	c := cp.ctx
	if len(c.nodes) >= c.maxNodes {
		return NoNode, cp.errorf(ErrCapacity, "more than %d nodes", c.maxNodes)
	}
	id := NodeID(len(c.nodes))
	c.nodes = append(c.nodes, Node{ID: id, Op: op, Value: flt(0), dsp: dspState{seed: seedFor(id)}})
	return id, nil
}

func (cp *compiler) constant(v float64) (NodeID, error) {
	id, err := cp.node(opConst)
	if err != nil {
		return NoNode, err
	}
	cp.ctx.nodes[id].Value = flt(v)
	return id, nil
}

func (cp *compiler) binary(op *Operator, l, r NodeID) (NodeID, error) {
	id, err := cp.node(op)
	if err != nil {
		return NoNode, err
	}
	n := &cp.ctx.nodes[id]
	n.Inputs[0], n.Inputs[1] = l, r
	n.NumInputs = 2
	return id, nil
}

func (cp *compiler) alloc(size int) ([]float64, error) {
	a := cp.ctx.arena
	buf, err := a.Alloc(size)
	if err != nil {
		return nil, cp.errorf(err, "%d samples requested, %d free", size, a.Cap()-a.Used())
	}
	return buf, nil
}

// bind points name at id, declaring it if new and binding any forward
// reference that was waiting for it. param records a := declaration.
func (cp *compiler) bind(name string, id NodeID, param bool) error {
	c := cp.ctx
	if i, ok := c.varIndex[name]; ok {
		if old := &c.nodes[c.vars[i].Node]; old.Op == opRefer && old.NumInputs == 0 {
			old.Inputs[0] = id
			old.NumInputs = 1
		}
		c.vars[i].Node = id
		c.vars[i].Param = param
		return nil
	}
	if len(c.vars) >= MaxVariables {
		return cp.errorf(ErrCapacity, "more than %d variables", MaxVariables)
	}
	c.vars = append(c.vars, Variable{Name: name, Node: id, Param: param})
	c.varIndex[name] = len(c.vars) - 1
	return nil
}

func (cp *compiler) statement() error {
	switch {
	case cp.tok.is(";"):
		cp.advance()
		return nil
	case cp.tok.Kind == TokenIdent:
		switch cp.tok.Text {
		case "def":
			return cp.define()
		case "pattern":
			return cp.pattern()
		case "order":
			return cp.order()
		case "return":
			return cp.returns()
		}
		save, name := cp.lx, cp.tok
		if next := cp.lx.next(); next.is("=") || next.is(":=") {
			cp.tok = next
			return cp.assign(name.Text, next.Text == ":=")
		}
		cp.lx = save // not an assignment, reparse as expression
	}
	if _, err := cp.expr(); err != nil {
		return err
	}
	return cp.expect(";")
}

// def name(a, b) { body }
func (cp *compiler) define() error {
	c := cp.ctx
	cp.advance()
	if cp.tok.Kind != TokenIdent {
		return cp.errorf(ErrSyntax, "expected macro name")
	}
	m := Macro{Name: cp.tok.Text}
	cp.advance()
	if err := cp.expect("("); err != nil {
		return err
	}
	for !cp.tok.is(")") {
		if cp.tok.Kind != TokenIdent {
			return cp.errorf(ErrSyntax, "expected argument name")
		}
		if len(m.Args) == MaxArgs {
			return cp.errorf(ErrSyntax, "more than %d arguments", MaxArgs)
		}
		m.Args = append(m.Args, cp.tok.Text)
		cp.advance()
		if !cp.tok.is(",") {
			break
		}
		cp.advance()
	}
	if err := cp.expect(")"); err != nil {
		return err
	}
	if !cp.tok.is("{") {
		return cp.errorf(ErrSyntax, "expected '{'")
	}
	body, line, ok := cp.lx.block()
	if !ok {
		return cp.errorf(ErrSyntax, "unterminated body of %s", m.Name)
	}
	m.Body, m.Line = body, line
	if i, ok := c.macroIndex[m.Name]; ok {
		c.macros[i] = m // redefinition wins
	} else {
		if len(c.macros) >= MaxMacros {
			return cp.errorf(ErrCapacity, "more than %d macros", MaxMacros)
		}
		c.macros = append(c.macros, m)
		c.macroIndex[m.Name] = len(c.macros) - 1
	}
	cp.advance()
	return nil
}

func (cp *compiler) integer(lo, hi int) (int, error) {
	if cp.tok.Kind != TokenNumber {
		return 0, cp.errorf(ErrSyntax, "expected number")
	}
	f, err := strconv.ParseFloat(cp.tok.Text, 64)
	if err != nil || f != math.Trunc(f) || f < float64(lo) || f > float64(hi) {
		return 0, cp.errorf(ErrSyntax, "expected integer in [%d, %d]", lo, hi)
	}
	cp.advance()
	return int(f), nil
}

// pattern index, channel, "rows"
func (cp *compiler) pattern() error {
	cp.advance()
	p, err := cp.integer(0, MaxPatterns-1)
	if err != nil {
		return err
	}
	if cp.tok.is(",") {
		cp.advance()
	}
	ch, err := cp.integer(0, TrackChannels-1)
	if err != nil {
		return err
	}
	if cp.tok.is(",") {
		cp.advance()
	}
	if cp.tok.Kind != TokenString {
		return cp.errorf(ErrSyntax, "expected pattern string")
	}
	if err := parsePattern(&cp.ctx.tracker.Patterns[p], ch, cp.tok.Text); err != nil {
		return cp.errorf(ErrSyntax, "%v", err)
	}
	cp.advance()
	return nil
}

// order 0, 1, 0, 2
func (cp *compiler) order() error {
	var list [MaxOrder]uint8
	n := 0
	cp.advance()
	for cp.tok.Kind == TokenNumber {
		if n == MaxOrder {
			return cp.errorf(ErrSyntax, "order longer than %d", MaxOrder)
		}
		p, err := cp.integer(0, MaxPatterns-1)
		if err != nil {
			return err
		}
		list[n] = uint8(p)
		n++
		if cp.tok.is(",") {
			cp.advance()
			if cp.tok.Kind != TokenNumber {
				return cp.errorf(ErrSyntax, "expected pattern index")
			}
		}
	}
	if n == 0 {
		return cp.errorf(ErrSyntax, "expected pattern index")
	}
	cp.ctx.tracker.SetOrder(list[:n])
	return nil
}

func (cp *compiler) returns() error {
	if cp.ctx.callDepth == 0 {
		return cp.errorf(ErrSyntax, "return outside def")
	}
	cp.advance()
	id, err := cp.expr()
	if err != nil {
		return err
	}
	cp.ret = id
	return nil
}

func (cp *compiler) assign(name string, param bool) error {
	c := cp.ctx
	cp.advance()
	id, err := cp.expr()
	if err != nil {
		return err
	}
	scoped := c.scope + name
	if param {
		if id, err = cp.parameter(scoped, id); err != nil {
			return err
		}
	}
	switch name {
	case "out":
		c.outputs[0], c.outputs[1] = id, id
	case "out_l":
		c.outputs[0] = id
	case "out_r":
		c.outputs[1] = id
	case "bpm":
		c.bpmNode = id
	}
	return cp.bind(scoped, id, param)
}

// parameter wraps target in a slew node. A parameter declared again
// keeps its node and only takes the new target. Names bound with = or as
// macro arguments get a node of their own, even when they alias a
// parameter.
func (cp *compiler) parameter(name string, target NodeID) (NodeID, error) {
	c := cp.ctx
	start, ok := cp.fold(target)
	if i, exists := c.varIndex[name]; exists && c.vars[i].Param {
		p := c.vars[i].Node
		if c.nodes[p].Op == opParam {
			if !cp.reaches(target, p) {
				c.nodes[p].Inputs[0] = target
				return p, nil
			}
			if !ok {
				start, ok = c.nodes[p].dsp.s[0], true
			}
		}
	}
	p, err := cp.node(opParam)
	if err != nil {
		return NoNode, err
	}
	n := &c.nodes[p]
	n.Inputs[0] = target
	n.NumInputs = 1
	n.dsp.s[0], n.dsp.s[1] = start, start
	n.Value = flt(start)
	return p, nil
}

// reaches reports whether to is an input, direct or not, of from.
func (cp *compiler) reaches(from, to NodeID) bool {
	c := cp.ctx
	marks := c.marks[:len(c.nodes)]
	clear(marks)
	var walk func(id NodeID) bool
	walk = func(id NodeID) bool {
		if id == to {
			return true
		}
		if marks[id] != 0 {
			return false
		}
		marks[id] = 1
		for _, in := range c.nodes[id].In() {
			if walk(in) {
				return true
			}
		}
		return false
	}
	found := walk(from)
	clear(marks)
	return found
}

// fold evaluates id at compile time when it only depends on constants.
func (cp *compiler) fold(id NodeID) (float64, bool) {
	return cp.foldDepth(id, 64)
}

func (cp *compiler) foldDepth(id NodeID, depth int) (float64, bool) {
	if depth == 0 {
		return 0, false
	}
	n := &cp.ctx.nodes[id]
	switch n.Op {
	case opConst:
		return n.Value.Float(), true
	case opParam:
		return n.dsp.s[0], true
	case opRefer:
		if n.NumInputs == 0 {
			return 0, false
		}
		return cp.foldDepth(n.Inputs[0], depth-1)
	case opAdd, opSub, opMul, opDiv, opMod, opGt, opLt, opEq:
		var in [2]Value
		for i := range in {
			v, ok := cp.foldDepth(n.Inputs[i], depth-1)
			if !ok {
				return 0, false
			}
			in[i] = flt(v)
		}
		return n.Op.Handler(cp.ctx, n, in[:]).Float(), true
	}
	return 0, false
}

// expr := arith { (">" | "<" | "==") arith }
func (cp *compiler) expr() (NodeID, error) {
	left, err := cp.arith()
	if err != nil {
		return NoNode, err
	}
	for {
		var op *Operator
		switch {
		case cp.tok.is(">"):
			op = opGt
		case cp.tok.is("<"):
			op = opLt
		case cp.tok.is("=="):
			op = opEq
		default:
			return left, nil
		}
		cp.advance()
		right, err := cp.arith()
		if err != nil {
			return NoNode, err
		}
		if left, err = cp.binary(op, left, right); err != nil {
			return NoNode, err
		}
	}
}

// arith := term { ("+" | "-") term }
func (cp *compiler) arith() (NodeID, error) {
	left, err := cp.term()
	if err != nil {
		return NoNode, err
	}
	for cp.tok.is("+") || cp.tok.is("-") {
		op := opAdd
		if cp.tok.Text == "-" {
			op = opSub
		}
		cp.advance()
		right, err := cp.term()
		if err != nil {
			return NoNode, err
		}
		if left, err = cp.binary(op, left, right); err != nil {
			return NoNode, err
		}
	}
	return left, nil
}

// term := factor { ("*" | "/" | "%") factor }
func (cp *compiler) term() (NodeID, error) {
	left, err := cp.factor()
	if err != nil {
		return NoNode, err
	}
	for cp.tok.is("*") || cp.tok.is("/") || cp.tok.is("%") {
		op := opMul
		switch cp.tok.Text {
		case "/":
			op = opDiv
		case "%":
			op = opMod
		}
		cp.advance()
		right, err := cp.factor()
		if err != nil {
			return NoNode, err
		}
		if left, err = cp.binary(op, left, right); err != nil {
			return NoNode, err
		}
	}
	return left, nil
}

func (cp *compiler) factor() (NodeID, error) {
	tok := cp.tok
	switch {
	case tok.Kind == TokenNumber:
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return NoNode, cp.errorf(ErrSyntax, "bad number")
		}
		cp.advance()
		return cp.constant(v)
	case tok.Kind == TokenString:
		return NoNode, cp.errorf(ErrSyntax, "unexpected string literal")
	case tok.Kind == TokenIdent:
		cp.advance()
		if cp.tok.is("(") {
			return cp.call(tok)
		}
		return cp.variable(tok)
	case tok.is("("):
		cp.advance()
		id, err := cp.expr()
		if err != nil {
			return NoNode, err
		}
		return id, cp.expect(")")
	case tok.is("-"):
		cp.advance()
		operand, err := cp.factor()
		if err != nil {
			return NoNode, err
		}
		zero, err := cp.constant(0)
		if err != nil {
			return NoNode, err
		}
		return cp.binary(opSub, zero, operand)
	case tok.Kind == TokenEnd:
		return NoNode, cp.errorf(ErrSyntax, "unexpected end of input")
	}
	return NoNode, cp.errorf(ErrSyntax, "unexpected token")
}

// variable resolves scoped first, then global. Unknown globals become
// forward references.
func (cp *compiler) variable(tok Token) (NodeID, error) {
	c := cp.ctx
	if c.scope != "" {
		if i, ok := c.varIndex[c.scope+tok.Text]; ok {
			return c.vars[i].Node, nil
		}
	}
	if i, ok := c.varIndex[tok.Text]; ok {
		return c.vars[i].Node, nil
	}
	if c.scope != "" {
		return NoNode, cp.errorAt(tok, ErrUnknownVariable, "")
	}
	id, err := cp.node(opRefer)
	if err != nil {
		return NoNode, err
	}
	if err := cp.bind(tok.Text, id, false); err != nil {
		return NoNode, err
	}
	c.forward = append(c.forward, forwardRef{name: tok.Text, node: id, line: tok.Line})
	return id, nil
}

// arguments parses "(" [expr {"," expr}] ")" in the current scope.
func (cp *compiler) arguments() (args [MaxArgs]NodeID, n int, err error) {
	cp.advance()
	for !cp.tok.is(")") {
		if n == MaxArgs {
			return args, n, cp.errorf(ErrSyntax, "more than %d arguments", MaxArgs)
		}
		if args[n], err = cp.expr(); err != nil {
			return args, n, err
		}
		n++
		if !cp.tok.is(",") {
			break
		}
		cp.advance()
	}
	return args, n, cp.expect(")")
}

func (cp *compiler) call(name Token) (NodeID, error) {
	c := cp.ctx
	op := lookup(name.Text)
	if op == nil {
		i, ok := c.macroIndex[name.Text]
		if !ok {
			return NoNode, cp.errorAt(name, ErrUnknownFunction, "")
		}
		return cp.expand(&c.macros[i], name)
	}
	args, argc, err := cp.arguments()
	if err != nil {
		return NoNode, err
	}
	if argc < op.Min || op.Max >= 0 && argc > op.Max {
		return NoNode, cp.errorAt(name, ErrSyntax, "%s takes %s arguments, got %d", op.Name, arity(op), argc)
	}
	id, err := cp.node(op)
	if err != nil {
		return NoNode, err
	}
	n := &c.nodes[id]
	n.Inputs = args
	n.NumInputs = argc
	if op.build != nil {
		if err := op.build(cp, n); err != nil {
			return NoNode, err
		}
	}
	return id, nil
}

func arity(op *Operator) string {
	switch {
	case op.Max < 0:
		return fmt.Sprintf("at least %d", op.Min)
	case op.Min == op.Max:
		return strconv.Itoa(op.Min)
	}
	return fmt.Sprintf("%d to %d", op.Min, op.Max)
}

// expand inlines a macro call. Arguments are parsed in the caller's
// scope, the body is lexed again from its span under a fresh scope.
func (cp *compiler) expand(m *Macro, name Token) (NodeID, error) {
	c := cp.ctx
	args, argc, err := cp.arguments()
	if err != nil {
		return NoNode, err
	}
	if argc != len(m.Args) {
		return NoNode, cp.errorAt(name, ErrSyntax, "%s takes %d arguments, got %d", m.Name, len(m.Args), argc)
	}
	if c.callDepth >= len(c.calls) {
		return NoNode, cp.errorAt(name, ErrStackOverflow, "macros nested deeper than %d", len(c.calls))
	}
	c.calls[c.callDepth] = callFrame{lx: cp.lx, tok: cp.tok, scope: c.scope, ret: cp.ret}
	c.callDepth++
	c.scope = "s" + strconv.Itoa(c.scopeCount) + "_"
	c.scopeCount++
	for i, a := range m.Args {
		if err := cp.bind(c.scope+a, args[i], false); err != nil {
			return NoNode, err
		}
	}

	cp.lx = newLexer(m.Body, m.Line)
	cp.ret = NoNode
	cp.advance()
	for cp.tok.Kind != TokenEnd && cp.ret == NoNode {
		if err := cp.statement(); err != nil {
			return NoNode, err
		}
	}
	id := cp.ret
	if id == NoNode {
		if id, err = cp.constant(0); err != nil {
			return NoNode, err
		}
	}

	c.callDepth--
	f := &c.calls[c.callDepth]
	cp.lx, cp.tok, c.scope, cp.ret = f.lx, f.tok, f.scope, f.ret
	return id, nil
}
