package chronos

// capacities
const (
	MaxChannels  = 2
	MaxArgs      = 16
	MaxNodes     = 16384
	MaxVariables = 1024
	MaxMacros    = 128
	CallDepth    = 32
)

// NodeID indexes a Context's node pool. Stable for the Context's lifetime.
type NodeID int32

const NoNode NodeID = -1

type Kind uint8

const (
	KindFloat Kind = iota
	KindInt
)

// Value is the cached output of a node.
type Value struct {
	Kind Kind
	F    float64
	I    int64
}

func FloatValue(f float64) Value { return Value{Kind: KindFloat, F: f} }

func IntValue(i int64) Value { return Value{Kind: KindInt, I: i} }

func (v Value) Float() float64 {
	if v.Kind == KindInt {
		return float64(v.I)
	}
	return v.F
}

// dspState is the private memory of a node, carried across hot-swaps.
type dspState struct {
	s    [8]float64
	buf  []float64 // arena backed, delay lines and sequence data
	head int
	span int    // furthest a delay has read back, bounds the migration copy
	seed uint64 // noise
}

type Node struct {
	ID        NodeID
	Op        *Operator
	Inputs    [MaxArgs]NodeID
	NumInputs int
	Value     Value
	dsp       dspState
}

// In returns the node's input ids.
func (n *Node) In() []NodeID { return n.Inputs[:n.NumInputs] }

// Buffer exposes arena data, eg. for seq sources.
func (n *Node) Buffer() []float64 { return n.dsp.buf }

type Variable struct {
	Name  string
	Node  NodeID
	Param bool // declared with :=
}

// Macro bodies are not parsed ahead of time, they are re-lexed per call.
type Macro struct {
	Name string
	Args []string
	Body string // slice of the source history
	Line int
}

type callFrame struct {
	lx    lexer
	tok   Token
	scope string
	ret   NodeID
}

type Transport struct {
	BPM            float64
	Phase          float64 // in beats
	SamplesPerBeat float64
	Playing        bool
}

// Context is one complete compiled program. Tick and Process only ever
// mutate node values, dsp state, transport and tracker playback.
type Context struct {
	sampleRate float64

	nodes      []Node
	maxNodes   int
	vars       []Variable
	varIndex   map[string]int
	macros     []Macro
	macroIndex map[string]int
	calls      []callFrame
	callDepth  int
	scope      string
	scopeCount int
	forward    []forwardRef

	arena *Arena
	order []NodeID
	marks []uint8

	outputs [MaxChannels]NodeID
	bpmNode NodeID

	time      int64 // elapsed samples
	transport Transport
	tracker   Tracker

	plan       []migration
	generation uint64

	argv [MaxArgs]Value // handler inputs, audio thread only
}

func newContext(sampleRate float64, arenaSize, maxNodes, callDepth int) *Context {
	c := &Context{
		sampleRate: sampleRate,
		nodes:      make([]Node, 0, maxNodes),
		maxNodes:   maxNodes,
		varIndex:   make(map[string]int),
		macroIndex: make(map[string]int),
		calls:      make([]callFrame, callDepth),
		arena:      NewArena(arenaSize),
		order:      make([]NodeID, 0, maxNodes),
		marks:      make([]uint8, maxNodes),
		plan:       make([]migration, 0, MaxVariables),
	}
	c.outputs = [MaxChannels]NodeID{NoNode, NoNode}
	c.bpmNode = NoNode
	c.transport = Transport{BPM: 120, Playing: true}
	c.tracker.reset()
	return c
}

// reset empties everything a compilation produces. The song is rebuilt
// from source too, playback is left alone.
func (c *Context) reset() {
	c.nodes = c.nodes[:0]
	c.vars = c.vars[:0]
	clear(c.varIndex)
	c.macros = c.macros[:0]
	clear(c.macroIndex)
	c.callDepth = 0
	c.scope = ""
	c.scopeCount = 0
	c.forward = c.forward[:0]
	c.arena.Reset()
	c.order = c.order[:0]
	c.outputs = [MaxChannels]NodeID{NoNode, NoNode}
	c.bpmNode = NoNode
	c.plan = c.plan[:0]
	c.tracker.Song = Song{}
}

func (c *Context) SampleRate() float64 { return c.sampleRate }

// Node returns a copy of node id, or false when id is out of range.
func (c *Context) Node(id NodeID) (Node, bool) {
	if id < 0 || int(id) >= len(c.nodes) {
		return Node{}, false
	}
	return c.nodes[id], true
}

func (c *Context) NumNodes() int { return len(c.nodes) }

// Order is the execution order. Callers must not modify it.
func (c *Context) Order() []NodeID { return c.order }

func (c *Context) Output(ch int) NodeID {
	if ch < 0 || ch >= MaxChannels {
		return NoNode
	}
	return c.outputs[ch]
}

func (c *Context) Variables() []Variable { return c.vars }

// VariableNode looks up the node currently bound to name. Scoped names
// (macro locals) are looked up verbatim, eg. "s0_x".
func (c *Context) VariableNode(name string) (NodeID, bool) {
	i, ok := c.varIndex[name]
	if !ok {
		return NoNode, false
	}
	return c.vars[i].Node, true
}

func (c *Context) Macros() []Macro { return c.macros }

func (c *Context) Transport() Transport { return c.transport }

func (c *Context) Time() int64 { return c.time }

func (c *Context) Tracker() *Tracker { return &c.tracker }

func (c *Context) Generation() uint64 { return c.generation }

func (c *Context) exec(id NodeID) {
	n := &c.nodes[id]
	if n.Op.Handler == nil {
		return
	}
	in := c.argv[:n.NumInputs]
	for i, src := range n.Inputs[:n.NumInputs] {
		in[i] = c.nodes[src].Value
	}
	n.Value = n.Op.Handler(c, n, in)
}

// tick advances time, transport and tracker by one sample.
func (c *Context) tick() {
	c.time++
	t := &c.transport
	if !t.Playing {
		return
	}
	bpm := float64(c.tracker.Tempo)
	if c.bpmNode != NoNode {
		bpm = c.nodes[c.bpmNode].Value.Float()
	}
	if bpm < 10 {
		bpm = 10
	}
	t.BPM = bpm
	t.SamplesPerBeat = c.sampleRate * 60 / bpm
	t.Phase += 1 / t.SamplesPerBeat

	c.tracker.advance(c.sampleRate * 2.5 / bpm)
}

// process evaluates the graph once and reads channel 0's output.
func (c *Context) process(ch int) float64 {
	if ch == 0 {
		for _, id := range c.order {
			c.exec(id)
		}
	}
	if ch < 0 || ch >= MaxChannels || c.outputs[ch] == NoNode {
		return 0
	}
	return c.nodes[c.outputs[ch]].Value.Float()
}
