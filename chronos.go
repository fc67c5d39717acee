// Package chronos is a live-codable signal-processing engine. A small
// language is compiled into a graph of audio operators that is evaluated
// once per sample, while new source is compiled next to it and swapped in
// without dropouts.
package chronos

import (
	"sync"
	"sync/atomic"
	"time"
)

const DefaultSampleRate = 44100

// Engine owns two Contexts. One is live on the audio thread, the other
// is compiled into by Eval and handed over on the next Tick.
//
// Tick and Process belong to the audio thread, everything else may be
// called from any goroutine.
type Engine struct {
	sampleRate float64

	mu      sync.Mutex // serialises the control side
	ctx     [2]*Context
	back    *Context // free for compiling, nil while handed off or retiring
	current *Context // last successful compile
	history string
	gen     uint64

	logLevel Level
	logFn    LogFunc

	active  atomic.Pointer[Context]
	closed  atomic.Bool
	handoff chan *Context // compiled, waiting for the audio thread
	retired chan *Context // swapped out, waiting for the next Eval
	control chan command
}

type commandKind uint8

const (
	cmdParam commandKind = iota
	cmdReset
)

type command struct {
	kind  commandKind
	gen   uint64
	node  NodeID
	value float64
}

// New returns an engine running an empty program.
func New(sampleRate int, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	sr := float64(sampleRate)
	e := &Engine{
		sampleRate: sr,
		logLevel:   cfg.logLevel,
		logFn:      cfg.logFn,
		handoff:    make(chan *Context, 1),
		retired:    make(chan *Context, 1),
		control:    make(chan command, 64),
	}
	for i := range e.ctx {
		e.ctx[i] = newContext(sr, cfg.arenaSize, cfg.maxNodes, cfg.callDepth)
	}
	e.active.Store(e.ctx[0])
	e.current = e.ctx[0]
	e.back = e.ctx[1]
	e.logf(LogInfo, "engine ready at %d Hz", sampleRate)
	return e
}

func (e *Engine) SampleRate() float64 { return e.sampleRate }

// Close stops the engine. Later Ticks are no-ops, Process returns 0.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Swap(true) {
		return ErrClosed
	}
	e.active.Store(nil)
	e.current = nil
	e.logf(LogInfo, "engine closed")
	return nil
}

func (e *Engine) SetLogLevel(level Level) {
	e.mu.Lock()
	e.logLevel = level
	e.mu.Unlock()
}

func (e *Engine) SetLogCallback(fn LogFunc) {
	e.mu.Lock()
	e.logFn = fn
	e.mu.Unlock()
}

// Eval appends script to the source history, or replaces it when reset
// is set, and compiles the whole history. It reports whether the new
// program was queued for the audio thread. On failure the running
// program and the history are left as they were.
func (e *Engine) Eval(script string, reset bool) bool {
	return e.EvalErr(script, reset) == nil
}

// EvalErr is Eval returning the compile error, a *CompileError.
func (e *Engine) EvalErr(script string, reset bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Load() {
		return ErrClosed
	}
	prev := e.history
	if reset {
		e.history = ""
	}
	e.history += script + "\n"

	back, reclaimed := e.acquireBack()
	old := e.active.Load()
	start := time.Now()
	err := back.compile(e.history)
	if err == nil {
		e.publish(back, old, start)
		return nil
	}
	e.logf(LogError, "%v", err)
	e.history = prev
	// a reclaimed program is rebuilt so the history still matches what plays
	if reclaimed && back.compile(prev) == nil {
		e.publish(back, old, start)
		return err
	}
	e.back = back
	return err
}

func (e *Engine) publish(c, old *Context, start time.Time) {
	e.gen++
	c.generation = e.gen
	c.planMigration(old)
	e.current = c
	e.handoff <- c
	e.logf(LogInfo, "generation %d: %d nodes, %d variables, %d macros, %d carried over (%v)",
		e.gen, len(c.nodes), len(c.vars), len(c.macros), len(c.plan), time.Since(start))
}

// acquireBack returns the Context that is not live. A compile that the
// audio thread never picked up is taken back instead of waited for.
func (e *Engine) acquireBack() (c *Context, reclaimed bool) {
	if b := e.back; b != nil {
		e.back = nil
		return b, false
	}
	select {
	case b := <-e.handoff:
		e.current = e.active.Load()
		e.logf(LogDebug, "generation %d replaced before it played", b.generation)
		return b, true
	default:
	}
	return <-e.retired, false
}

// Tick advances the live program by one sample. Audio thread only.
func (e *Engine) Tick() {
	if e.closed.Load() {
		return
	}
	e.adopt()
	c := e.active.Load()
	if c == nil {
		return
	}
	c = e.drain(c)
	c.tick()
}

// Process evaluates the live graph when ch is 0 and returns the output
// of channel ch. Audio thread only.
func (e *Engine) Process(ch int) float64 {
	if e.closed.Load() {
		return 0
	}
	c := e.active.Load()
	if c == nil {
		return 0
	}
	return c.process(ch)
}

// adopt swaps in a waiting Context, migrating state first.
func (e *Engine) adopt() {
	select {
	case next := <-e.handoff:
		prev := e.active.Load()
		next.migrate(prev)
		e.active.Store(next)
		if prev != nil {
			select {
			case e.retired <- prev:
			default:
			}
		}
	default:
	}
}

// drain applies queued host commands to c and returns the live Context.
func (e *Engine) drain(c *Context) *Context {
	for {
		select {
		case m := <-e.control:
			if m.gen > c.generation {
				// sent after a handoff this Tick has not seen yet
				e.adopt()
				c = e.active.Load()
			}
			c.apply(m)
		default:
			return c
		}
	}
}

func (c *Context) apply(m command) {
	switch m.kind {
	case cmdParam:
		if m.gen != c.generation || int(m.node) >= len(c.nodes) {
			return
		}
		n := &c.nodes[m.node]
		n.dsp.s[2], n.dsp.s[3] = 1, m.value
	case cmdReset:
		c.time = 0
		c.transport = Transport{BPM: c.transport.BPM, Playing: true}
		c.tracker.reset()
	}
}

func (e *Engine) send(m command) bool {
	select {
	case e.control <- m:
		return true
	default:
		e.logf(LogWarn, "control queue full, command dropped")
		return false
	}
}

// SetParam overrides the target of the parameter declared as name with
// ":=". The override lasts until the next successful Eval.
func (e *Engine) SetParam(name string, v float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return false
	}
	id, ok := e.current.VariableNode(name)
	if !ok || e.current.nodes[id].Op != opParam {
		e.logf(LogWarn, "%s is not a parameter", name)
		return false
	}
	return e.send(command{kind: cmdParam, gen: e.current.generation, node: id, value: finite(v)})
}

// ResetTransport rewinds time, beat phase and the tracker.
func (e *Engine) ResetTransport() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Load() {
		return
	}
	e.send(command{kind: cmdReset})
}

// NoteOn and NoteOff are accepted for host compatibility. There is no
// voice allocation, the tracker is the only note source.
func (e *Engine) NoteOn(pitch, velocity float64) {
	e.mu.Lock()
	e.logf(LogDebug, "note on %.1f %.2f ignored", pitch, velocity)
	e.mu.Unlock()
}

func (e *Engine) NoteOff(pitch float64) {
	e.mu.Lock()
	e.logf(LogDebug, "note off %.1f ignored", pitch)
	e.mu.Unlock()
}

// VariableNode resolves name in the most recently compiled program.
func (e *Engine) VariableNode(name string) (NodeID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return NoNode, false
	}
	return e.current.VariableNode(name)
}

func (e *Engine) History() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history
}

// Cell reads the song of the most recent compile.
func (e *Engine) Cell(p, r, ch int) (Cell, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return Cell{}, false
	}
	return e.current.tracker.Cell(p, r, ch)
}

// Order returns the song's order list up to its end marker.
func (e *Engine) Order() []uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	order := e.current.tracker.Order[:]
	for i, p := range order {
		if p == OrderEnd {
			order = order[:i]
			break
		}
	}
	return append([]uint8(nil), order...)
}

// Graph is a static description of a compiled program for tooling.
type Graph struct {
	Generation uint64              `json:"generation"`
	Variables  []Variable          `json:"variables"`
	Macros     []string            `json:"macros"`
	Nodes      []GraphNode         `json:"nodes"`
	Order      []NodeID            `json:"order"`
	Outputs    [MaxChannels]NodeID `json:"outputs"`
	BPM        NodeID              `json:"bpm"`
}

type GraphNode struct {
	ID     NodeID   `json:"id"`
	Op     string   `json:"op"`
	Opcode int      `json:"opcode"`
	Inputs []NodeID `json:"inputs,omitempty"`
	Const  float64  `json:"const,omitempty"`
	Buffer int      `json:"buffer,omitempty"` // arena samples
}

// Snapshot describes the most recent compile. Live node values are not
// included, they belong to the audio thread.
func (e *Engine) Snapshot() Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.current
	if c == nil {
		return Graph{Outputs: [MaxChannels]NodeID{NoNode, NoNode}, BPM: NoNode}
	}
	g := Graph{
		Generation: c.generation,
		Variables:  append([]Variable(nil), c.vars...),
		Nodes:      make([]GraphNode, len(c.nodes)),
		Order:      append([]NodeID(nil), c.order...),
		Outputs:    c.outputs,
		BPM:        c.bpmNode,
	}
	for _, m := range c.macros {
		g.Macros = append(g.Macros, m.Name)
	}
	for i := range c.nodes {
		n := &c.nodes[i]
		gn := GraphNode{ID: n.ID, Op: n.Op.Name, Opcode: n.Op.Opcode, Buffer: len(n.dsp.buf)}
		if n.NumInputs > 0 {
			gn.Inputs = append([]NodeID(nil), n.In()...)
		}
		if n.Op == opConst {
			gn.Const = n.Value.Float()
		}
		g.Nodes[i] = gn
	}
	return g
}
