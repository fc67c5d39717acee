package chronos

import (
	"math"
	"sort"
)

// Handler computes a node's value from its inputs' cached values. It may
// mutate the node's dsp state and must not allocate.
type Handler func(c *Context, n *Node, in []Value) Value

type Operator struct {
	Name    string
	Opcode  int
	Min     int // argument count bounds, Max -1 for variadic
	Max     int
	Handler Handler

	build func(cp *compiler, n *Node) error // compile time setup
}

var registry = []Operator{
	//name        opcode min max handler
	{"const", 0, 0, 0, nil, nil}, // value set at compile time
	{"param", 1, 1, 1, opParamRamp, nil},
	{"add", 2, 2, 2, opAddition, nil},
	{"sub", 3, 2, 2, opSubtract, nil},
	{"mul", 4, 2, 2, opMultiply, nil},
	{"div", 5, 2, 2, opDivide, nil},
	{"mod", 6, 2, 2, opModulo, nil},
	{"pow", 7, 2, 2, opPower, nil},
	{"sine", 8, 1, 1, opSine, nil},
	{"phasor", 10, 1, 1, opPhasor, nil},
	{"noise", 11, 0, 0, opNoise, nil},
	{"filter", 12, 4, 4, opFilter, nil},      // in, type (0 lp 1 bp 2 hp), cutoff, q
	{"delay", 13, 3, 3, opDelay, buildDelay}, // in, time (s), feedback
	{"time", 14, 0, 0, opTime, nil},
	{"data", 20, 1, -1, opDataOut, buildData}, // constant sequence data
	{"saw", 21, 1, 1, opSaw, nil},
	{"pulse", 22, 1, 2, opPulse, nil}, // freq, width
	{"gt", 30, 2, 2, opGreater, nil},
	{"lt", 31, 2, 2, opLess, nil},
	{"eq", 32, 2, 2, opEqual, nil},
	{"if", 33, 3, 3, opIf, nil},
	{"seq", 40, 2, 2, opSeq, nil},     // data, steps per beat
	{"clock", 41, 1, 1, opClock, nil}, // ticks per beat
	{"env", 42, 2, 2, opEnv, nil},     // trigger, decay factor
	{"adsr", 43, 5, 5, opADSR, nil},   // gate, a, d, s, r
	{"select", 50, 2, -1, opSelect, nil},
	{"mix", 51, 1, -1, opMix, nil},
	{"zeros", 55, 1, 1, opDataOut, buildZeros},
	{"perc", 56, 3, 3, opPerc, nil}, // trigger, attack, decay
	{"trk_freq", 60, 1, 1, opTrackFreq, nil},
	{"trk_gate", 61, 1, 1, opTrackGate, nil},
	{"trk_vol", 62, 1, 1, opTrackVol, nil},
	{"ref", 98, 1, 1, opRef, nil}, // forward reference passthrough
}

var registryIndex = map[string]int{}

// operators the compiler creates implicitly
var (
	opConst, opParam, opData, opRefer *Operator
	opAdd, opSub, opMul, opDiv, opMod *Operator
	opGt, opLt, opEq                  *Operator
)

func init() {
	for i := range registry {
		registryIndex[registry[i].Name] = i
	}
	opConst, opParam, opData, opRefer = lookup("const"), lookup("param"), lookup("data"), lookup("ref")
	opAdd, opSub, opMul, opDiv, opMod = lookup("add"), lookup("sub"), lookup("mul"), lookup("div"), lookup("mod")
	opGt, opLt, opEq = lookup("gt"), lookup("lt"), lookup("eq")
}

func lookup(name string) *Operator {
	i, ok := registryIndex[name]
	if !ok {
		return nil
	}
	return &registry[i]
}

// Operators lists the registry sorted by name, for tooling.
func Operators() []Operator {
	ops := make([]Operator, 0, len(registry))
	for _, o := range registry {
		if o.Name == "ref" {
			continue
		}
		ops = append(ops, o)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

func flt(f float64) Value { return FloatValue(f) }

func opRef(c *Context, n *Node, in []Value) Value { return in[0] }

func opDataOut(c *Context, n *Node, in []Value) Value { return flt(0) }

// one-pole ramp toward the target, s0 current, s1 target, s2/s3 host override
func opParamRamp(c *Context, n *Node, in []Value) Value {
	target := in[0].Float()
	if n.dsp.s[2] > 0.5 {
		target = n.dsp.s[3]
	}
	n.dsp.s[1] = target
	cur := n.dsp.s[0]
	d := target - cur
	if math.Abs(d) > slewStep {
		if d > 0 {
			cur += slewStep
		} else {
			cur -= slewStep
		}
	} else {
		cur = target
	}
	n.dsp.s[0] = cur
	return flt(cur)
}

func opAddition(c *Context, n *Node, in []Value) Value { return flt(in[0].Float() + in[1].Float()) }

func opSubtract(c *Context, n *Node, in []Value) Value { return flt(in[0].Float() - in[1].Float()) }

func opMultiply(c *Context, n *Node, in []Value) Value { return flt(in[0].Float() * in[1].Float()) }

func opDivide(c *Context, n *Node, in []Value) Value {
	d := in[1].Float()
	if math.Abs(d) < divEpsilon {
		return flt(0)
	}
	return flt(in[0].Float() / d)
}

func opModulo(c *Context, n *Node, in []Value) Value {
	d := in[1].Float()
	if math.Abs(d) < divEpsilon {
		return flt(0)
	}
	return flt(math.Mod(in[0].Float(), d))
}

func opPower(c *Context, n *Node, in []Value) Value {
	return flt(finite(math.Pow(in[0].Float(), in[1].Float())))
}

func opSine(c *Context, n *Node, in []Value) Value {
	p := wrap(n.dsp.s[0] + in[0].Float()/c.sampleRate)
	n.dsp.s[0] = p
	return flt(math.Sin(p * Tau))
}

func opPhasor(c *Context, n *Node, in []Value) Value {
	p := wrap(n.dsp.s[0] + in[0].Float()/c.sampleRate)
	n.dsp.s[0] = p
	return flt(p)
}

func opNoise(c *Context, n *Node, in []Value) Value { return flt(n.dsp.noise()) }

func opTime(c *Context, n *Node, in []Value) Value {
	return flt(float64(c.time) / c.sampleRate)
}

func opSaw(c *Context, n *Node, in []Value) Value {
	inc := math.Max(in[0].Float(), minFreq) / c.sampleRate
	p := wrap(n.dsp.s[0] + inc)
	n.dsp.s[0] = p
	return flt(2*p - 1 - polyBlep(p, inc))
}

func opPulse(c *Context, n *Node, in []Value) Value {
	inc := math.Max(in[0].Float(), minFreq) / c.sampleRate
	width := 0.5
	if len(in) > 1 {
		width = in[1].Float()
	}
	p := wrap(n.dsp.s[0] + inc)
	n.dsp.s[0] = p
	out := -1.0
	if p < width {
		out = 1
	}
	out += polyBlep(p, inc)
	out -= polyBlep(math.Mod(p-width+1, 1), inc)
	return flt(out)
}

// state variable filter, s0 low, s1 band
func opFilter(c *Context, n *Node, in []Value) Value {
	x, kind, cut, q := in[0].Float(), in[1].Float(), in[2].Float(), in[3].Float()
	f := 2 * math.Sin(math.Pi*cut/c.sampleRate)
	f = math.Min(math.Max(f, 0.001), 0.9)
	q = math.Min(math.Max(q, 0.1), 10)
	s := &n.dsp.s
	s[1] += f * (x - s[1] - (1/q)*s[0])
	s[0] += f * s[1]
	switch {
	case kind < 0.5:
		return flt(s[0])
	case kind < 1.5:
		return flt(s[1])
	}
	return flt(x - s[0])
}

func opDelay(c *Context, n *Node, in []Value) Value {
	buf := n.dsp.buf
	size := len(buf)
	if size == 0 {
		return flt(0)
	}
	x, tm, fb := in[0].Float(), in[1].Float(), in[2].Float()
	tm = math.Min(math.Max(finite(tm), 0), float64(size-1)/c.sampleRate)
	// interpolation reaches one sample past the read point
	if reach := int(tm*c.sampleRate) + 3; reach > n.dsp.span {
		n.dsp.span = min(reach, size)
	}
	rp := float64(n.dsp.head) - tm*c.sampleRate
	if rp < 0 {
		rp += float64(size)
	}
	i0 := int(rp)
	frac := rp - float64(i0)
	out := hermite(frac,
		buf[(i0-1+size)%size],
		buf[i0%size],
		buf[(i0+1)%size],
		buf[(i0+2)%size])
	buf[n.dsp.head] = softClip(x+out*fb, 1.2)
	n.dsp.head = (n.dsp.head + 1) % size
	return flt(out)
}

func opGreater(c *Context, n *Node, in []Value) Value { return flt(b2f(in[0].Float() > in[1].Float())) }

func opLess(c *Context, n *Node, in []Value) Value { return flt(b2f(in[0].Float() < in[1].Float())) }

func opEqual(c *Context, n *Node, in []Value) Value {
	return flt(b2f(math.Abs(in[0].Float()-in[1].Float()) < eqEpsilon))
}

func opIf(c *Context, n *Node, in []Value) Value {
	if in[0].Float() > 0.5 {
		return flt(in[1].Float())
	}
	return flt(in[2].Float())
}

func opSelect(c *Context, n *Node, in []Value) Value {
	sel := int(in[0].Float())
	sel = min(max(sel, 0), len(in)-2)
	return in[sel+1]
}

func opMix(c *Context, n *Node, in []Value) Value {
	sum := 0.0
	for _, v := range in {
		sum += v.Float()
	}
	return flt(softClip(sum, 1.5))
}

func opSeq(c *Context, n *Node, in []Value) Value {
	data := c.nodes[n.Inputs[0]].dsp.buf
	if len(data) == 0 {
		return flt(0)
	}
	i := int(c.transport.Phase*in[1].Float()) % len(data)
	if i < 0 {
		i += len(data)
	}
	return flt(data[i])
}

// one on the sample the divided beat phase wraps
func opClock(c *Context, n *Node, in []Value) Value {
	phase := c.transport.Phase * in[0].Float()
	frac := phase - math.Floor(phase)
	prev := n.dsp.s[0]
	n.dsp.s[0] = frac
	if frac < prev || c.time == 0 && frac == 0 {
		return flt(1)
	}
	return flt(0)
}

func opEnv(c *Context, n *Node, in []Value) Value {
	v := n.dsp.s[0]
	if in[0].Float() > 0.5 {
		v = 1
	} else {
		v *= in[1].Float()
	}
	n.dsp.s[0] = v
	return flt(v)
}

// envelope stages kept in s1
const (
	stageIdle = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

func opPerc(c *Context, n *Node, in []Value) Value {
	trig, a, d := in[0].Float(), in[1].Float(), in[2].Float()
	s := &n.dsp.s
	v, stage := s[0], int(s[1])
	if trig > 0.5 && s[2] <= 0.5 {
		stage = stageAttack
	}
	s[2] = trig
	switch stage {
	case stageAttack:
		v += 1 / (a * c.sampleRate)
		if v >= 1 || math.IsNaN(v) {
			v, stage = 1, stageDecay
		}
	case stageDecay:
		v *= math.Exp(-2.2 / (d * c.sampleRate))
		if v < 0.0001 {
			v, stage = 0, stageIdle
		}
	}
	s[0], s[1] = v, float64(stage)
	return flt(v)
}

func opADSR(c *Context, n *Node, in []Value) Value {
	gate, a, d, sus, r := in[0].Float(), in[1].Float(), in[2].Float(), in[3].Float(), in[4].Float()
	s := &n.dsp.s
	v, stage := s[0], int(s[1])
	switch {
	case gate > 0.5 && s[2] <= 0.5:
		stage = stageAttack
	case gate <= 0.5 && s[2] > 0.5:
		stage = stageRelease
	}
	switch stage {
	case stageAttack:
		v += 1 / (a * c.sampleRate)
		if v >= 1 || math.IsNaN(v) {
			v, stage = 1, stageDecay
		}
	case stageDecay:
		v = sus + (v-sus)*math.Exp(-2.2/(d*c.sampleRate))
		if v <= sus+0.001 {
			v, stage = sus, stageSustain
		}
	case stageSustain:
		v = sus
	case stageRelease:
		v *= math.Exp(-2.2 / (r * c.sampleRate))
		if v < 0.001 {
			v, stage = 0, stageIdle
		}
	}
	s[0], s[1], s[2] = finite(v), float64(stage), gate
	return flt(s[0])
}

func trackChannel(in []Value) (int, bool) {
	ch := int(in[0].Float())
	return ch, ch >= 0 && ch < TrackChannels
}

func opTrackFreq(c *Context, n *Node, in []Value) Value {
	if ch, ok := trackChannel(in); ok {
		return flt(c.tracker.Freq[ch])
	}
	return flt(0)
}

func opTrackGate(c *Context, n *Node, in []Value) Value {
	if ch, ok := trackChannel(in); ok {
		return flt(c.tracker.Gate[ch])
	}
	return flt(0)
}

func opTrackVol(c *Context, n *Node, in []Value) Value {
	if ch, ok := trackChannel(in); ok {
		return flt(c.tracker.Vol[ch])
	}
	return flt(0)
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func buildDelay(cp *compiler, n *Node) error {
	buf, err := cp.alloc(int(cp.ctx.sampleRate * delaySecs))
	if err != nil {
		return err
	}
	n.dsp.buf = buf
	return nil
}

// data folds its constant arguments into an arena buffer
func buildData(cp *compiler, n *Node) error {
	buf, err := cp.alloc(n.NumInputs)
	if err != nil {
		return err
	}
	for i, id := range n.In() {
		v, ok := cp.fold(id)
		if !ok {
			return cp.errorf(ErrSyntax, "data expects constant arguments")
		}
		buf[i] = v
	}
	n.dsp.buf = buf
	n.NumInputs = 0
	return nil
}

func buildZeros(cp *compiler, n *Node) error {
	size, ok := cp.fold(n.Inputs[0])
	if !ok || size < 1 {
		return cp.errorf(ErrSyntax, "zeros expects a positive constant length")
	}
	buf, err := cp.alloc(int(size))
	if err != nil {
		return err
	}
	n.Op = opData
	n.dsp.buf = buf
	n.NumInputs = 0
	return nil
}
