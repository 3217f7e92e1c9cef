// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuitry

import (
	"log/slog"

	"github.com/pkg/errors"
)

// State is the run state of an Engine.
//
type State int

// Engine states.
//
const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Paused:
		return "paused"
	}
	return "invalid"
}

// Engine runs a circuit simulation one tick at a time.
//
// An Engine has no internal locking: all its methods, and the callbacks it
// invokes, must run on a single goroutine. A Loop provides that goroutine and
// the periodic driver.
//
type Engine struct {
	reg   *Registry
	cfg   Config
	c     Circuit
	state State
	snap  *fieldSnapshot

	onChanges ChangesFn
	log       *slog.Logger
}

// An Option configures an Engine.
//
type Option func(*Engine)

// WithMidiOut sets the MIDI side-effect sink.
//
func WithMidiOut(fn MidiOutFn) Option {
	return func(e *Engine) { e.c.midiOut = fn }
}

// WithChanges sets the per-tick change notification.
//
func WithChanges(fn ChangesFn) Option {
	return func(e *Engine) { e.onChanges = fn }
}

// WithLogger sets the logger used to report misbehaving blocks.
//
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine returns a stopped engine with an empty circuit. The configuration
// must have been validated by the caller.
//
func NewEngine(reg *Registry, cfg Config, opts ...Option) *Engine {
	e := &Engine{reg: reg, cfg: cfg, log: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	e.c.load(NewTopology(nil, nil), nil, reg, nil)
	return e
}

// State returns the current run state.
//
func (e *Engine) State() State { return e.state }

// Config returns the current configuration.
//
func (e *Engine) Config() Config { return e.cfg }

// Registry returns the kind registry.
//
func (e *Engine) Registry() *Registry { return e.reg }

// Circuit returns the circuit state. Hosts read updated values from it after a
// change notification.
//
func (e *Engine) Circuit() *Circuit { return &e.c }

// Update rebuilds the circuit from the authoritative block and wire lists and
// sets the configuration.
//
// While stopped, every column is taken from the lists. While running or
// paused, blocks that keep their id and kind keep their runtime state (see
// KindSpec.Resettable); blocks added meanwhile are restored to their listed
// values on Stop. A block holding its cooldown (a playing note) that is
// removed, changes kind or has a non-resettable field edited is released through
// its OnStop hook first.
//
func (e *Engine) Update(blocks []Block, wires []Wire, cfg Config) {
	t := NewTopology(blocks, wires)
	var prev *Circuit
	if e.state != Stopped {
		old := e.c
		prev = &old
		e.release(prev, t, blocks)
	}
	e.c.load(t, blocks, e.reg, prev)
	if e.snap != nil {
		e.snap.include(&e.c)
	}
	e.cfg = cfg
}

// Start starts or resumes the simulation. When starting from Stopped, the
// resettable fields of every block are saved so that Stop can restore them.
//
func (e *Engine) Start() error {
	switch e.state {
	case Running:
		return errors.New("simulation already running")
	case Stopped:
		e.snap = e.c.snapshot()
	}
	e.state = Running
	return nil
}

// Pause suspends a running simulation. Columns are left untouched.
//
func (e *Engine) Pause() error {
	if e.state != Running {
		return errors.Errorf("cannot pause a %s simulation", e.state)
	}
	e.state = Paused
	return nil
}

// Stop stops a running or paused simulation, restores the fields saved by
// Start and clears every signal. The host is notified of all block and wire
// ids.
//
func (e *Engine) Stop() error {
	if e.state == Stopped {
		return errors.New("simulation already stopped")
	}
	c := &e.c
	for id := 0; id < c.size; id++ {
		if sp := e.reg.Spec(c.kind[id]); sp != nil && sp.OnStop != nil {
			e.call(id, func() { sp.OnStop(c, id) })
		}
	}
	if e.snap != nil {
		c.restore(e.snap, e.reg)
	}
	c.clearSignals()
	e.snap = nil
	e.state = Stopped
	e.flush()
	return nil
}

// Step runs one tick of the simulation with the given elapsed time in
// milliseconds. It reports whether a tick was run, which only happens while
// the engine is running.
//
// Every active block's transition function is called once, in ascending id
// order. All of them observe the state committed by the previous tick. Once
// done, the new state is committed and the changed ids are flushed to the
// host in a single call.
//
// A transition function that panics is logged and its writes for the tick
// are rolled back. MIDI events it sent before panicking cannot be recalled.
//
func (e *Engine) Step(elapsed float64) bool {
	if e.state != Running {
		return false
	}
	c := &e.c
	for id := 0; id < c.size; id++ {
		if !c.active[id] {
			continue
		}
		sp := e.reg.Spec(c.kind[id])
		saved := c.save(id)
		if !e.call(id, func() { sp.Tick(c, id, elapsed, &e.cfg) }) {
			c.rollback(id, &saved)
		}
	}
	c.commit(elapsed)
	e.flush()
	return true
}

// release calls the OnStop hook of the blocks of prev that hold their
// cooldown and that the new lists remove or edit, then drops their hold.
func (e *Engine) release(prev *Circuit, t *Topology, blocks []Block) {
	for id := 0; id < prev.size; id++ {
		if !prev.owns[id] || !prev.cooldown[id] {
			continue
		}
		sp := e.reg.Spec(prev.kind[id])
		if sp == nil {
			continue
		}
		if i := t.BlockIndex(id); i >= 0 && !prev.edited(id, sp, &blocks[i]) {
			continue
		}
		if sp.OnStop != nil {
			e.call(id, func() { sp.OnStop(prev, id) })
		}
		prev.cooldown[id], prev.nextCooldown[id] = false, false
		prev.timeUntilTurnOff[id] = 0
	}
}

// call runs fn for block id and reports whether it returned normally. A panic
// is logged and the block is skipped for this tick: one faulty block must not
// halt the rest of the circuit.
func (e *Engine) call(id int, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("block transition failed", "id", id, "kind", e.c.kind[id], "err", r)
			ok = false
		}
	}()
	fn()
	return true
}

func (e *Engine) flush() {
	ids := e.c.flush()
	if len(ids) > 0 && e.onChanges != nil {
		e.onChanges(ids)
	}
}
