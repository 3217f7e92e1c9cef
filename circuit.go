// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuitry

import (
	"sort"
)

// Circuit holds the simulation state as columns indexed by block or wire id.
//
// Gate, port gate and cooldown columns are double-buffered: transition
// functions read the state committed by the previous tick and write the next
// frame, which only becomes visible once every block has been visited. A
// signal therefore travels exactly one wire per tick.
//
// A Circuit is owned by an Engine and must only be accessed from the goroutine
// driving it.
//
type Circuit struct {
	size   int
	kind   []Kind
	active []bool
	owns   []bool // kind manages its own cooldown
	fields [fieldCount][]int

	input        []int
	inputSide    []Side
	isOutputPort []bool
	links        []Link
	isWire       []bool

	gate, nextGate         []bool // frame #0, frame #1
	portGate, nextPortGate []bool
	cooldown, nextCooldown []bool
	timeUntilTurnOff       []float64
	wireGate               []bool

	changed    []bool
	changedIDs []int

	midiOut MidiOutFn

	ticks   uint64
	elapsed float64
}

// Len returns the length of the id columns.
//
func (c *Circuit) Len() int { return c.size }

func (c *Circuit) valid(id int) bool { return id >= 0 && id < c.size }

// IsBlock reports whether id designates a registered block.
//
func (c *Circuit) IsBlock(id int) bool { return c.valid(id) && c.kind[id] != KindNone }

// IsWire reports whether id designates a connected wire.
//
func (c *Circuit) IsWire(id int) bool { return c.valid(id) && c.isWire[id] }

// Kind returns the kind of block id. It returns KindNone for ids that do not
// designate a block.
//
func (c *Circuit) Kind(id int) Kind {
	if !c.valid(id) {
		return KindNone
	}
	return c.kind[id]
}

// Active reports whether block id takes part in the simulation.
//
func (c *Circuit) Active(id int) bool { return c.valid(id) && c.active[id] }

// Field returns the value of field f of block id.
//
func (c *Circuit) Field(id int, f Field) int {
	if !c.valid(id) || f >= fieldCount {
		return 0
	}
	return c.fields[f][id]
}

// SetField sets field f of block id.
//
func (c *Circuit) SetField(id int, f Field, v int) {
	c.fields[f][id] = v
}

// Input returns the id of the block wired into side s of block id, or -1.
//
func (c *Circuit) Input(id int, s Side) int {
	if !c.valid(id) || !s.Valid() {
		return -1
	}
	return c.input[port(id, s)]
}

// InputSide returns the side of the source block wired into side s of block
// id. The result is only meaningful if Input(id, s) >= 0.
//
func (c *Circuit) InputSide(id int, s Side) Side {
	return c.inputSide[port(id, s)]
}

// IsOutputPort reports whether side s of block id is configured Out.
//
func (c *Circuit) IsOutputPort(id int, s Side) bool {
	return c.valid(id) && s.Valid() && c.isOutputPort[port(id, s)]
}

// Gate returns the committed output level of block id: true if any of its
// output ports was raised during the previous tick.
//
func (c *Circuit) Gate(id int) bool { return c.valid(id) && c.gate[id] }

// PortGate returns the committed level of side s of block id.
//
func (c *Circuit) PortGate(id int, s Side) bool {
	return c.valid(id) && s.Valid() && c.portGate[port(id, s)]
}

// Cooldown returns the committed cooldown flag of block id.
//
func (c *Circuit) Cooldown(id int) bool { return c.valid(id) && c.cooldown[id] }

// Level reports whether the wire into side s of block id carries a high
// signal. Cooldown is ignored.
//
func (c *Circuit) Level(id int, s Side) bool {
	p := port(id, s)
	src := c.input[p]
	return src >= 0 && c.portGate[port(src, c.inputSide[p])]
}

// Triggered reports whether side s of block id sees a rising edge: the side is
// connected, the source block is not on cooldown and its port is high.
//
func (c *Circuit) Triggered(id int, s Side) bool {
	p := port(id, s)
	src := c.input[p]
	return src >= 0 && !c.cooldown[src] && c.portGate[port(src, c.inputSide[p])]
}

// Consume puts the block wired into side s of block id on cooldown, so that the
// same sustained signal does not trigger again. The cooldown is released once
// the source's output falls.
//
func (c *Circuit) Consume(id int, s Side) {
	if src := c.input[port(id, s)]; src >= 0 {
		c.nextCooldown[src] = true
	}
}

// SetCooldown sets the next cooldown flag of block id.
//
func (c *Circuit) SetCooldown(id int, v bool) {
	c.nextCooldown[id] = v
}

// Raise raises every output port of block id for the next tick.
//
func (c *Circuit) Raise(id int) {
	c.nextGate[id] = true
	for s := Side(0); s < SideCount; s++ {
		if p := port(id, s); c.isOutputPort[p] {
			c.nextPortGate[p] = true
		}
	}
}

// RaisePort raises side s of block id for the next tick. It returns false and
// does nothing if s is not an output port.
//
func (c *Circuit) RaisePort(id int, s Side) bool {
	if !s.Valid() {
		return false
	}
	p := port(id, s)
	if !c.isOutputPort[p] {
		return false
	}
	c.nextPortGate[p] = true
	c.nextGate[id] = true
	return true
}

// TimeUntilTurnOff returns the remaining hold time of block id in milliseconds.
//
func (c *Circuit) TimeUntilTurnOff(id int) float64 {
	if !c.valid(id) {
		return 0
	}
	return c.timeUntilTurnOff[id]
}

// SetTimeUntilTurnOff sets the remaining hold time of block id.
//
func (c *Circuit) SetTimeUntilTurnOff(id int, ms float64) {
	c.timeUntilTurnOff[id] = ms
}

// MarkChanged flags id as changed during the current tick.
//
func (c *Circuit) MarkChanged(id int) {
	if !c.changed[id] {
		c.changed[id] = true
		c.changedIDs = append(c.changedIDs, id)
	}
}

// Changed reports whether id has been flagged as changed since the last flush.
//
func (c *Circuit) Changed(id int) bool { return c.valid(id) && c.changed[id] }

// WireGate returns the level carried by wire id.
//
func (c *Circuit) WireGate(id int) bool { return c.valid(id) && c.wireGate[id] }

// MidiOut forwards a note on or note off to the host's MIDI sink.
//
func (c *Circuit) MidiOut(on bool, channel, note, velocity int) {
	if c.midiOut != nil {
		c.midiOut(on, channel, note, velocity)
	}
}

// Links returns the connected wires.
//
func (c *Circuit) Links() []Link { return c.links }

// Ticks returns the number of ticks run since the simulation started.
//
func (c *Circuit) Ticks() uint64 { return c.ticks }

// Elapsed returns the simulated time since the simulation started, in
// milliseconds.
//
func (c *Circuit) Elapsed() float64 { return c.elapsed }

// load rebuilds every column from a topology and its block list. If prev is not
// nil, blocks that keep their id and kind carry over the runtime state they had
// in prev: resettable fields, gates, cooldown and hold timer.
func (c *Circuit) load(t *Topology, blocks []Block, reg *Registry, prev *Circuit) {
	n := t.Size
	midiOut := c.midiOut
	*c = Circuit{
		size:             n,
		kind:             make([]Kind, n),
		active:           make([]bool, n),
		owns:             make([]bool, n),
		input:            t.Input,
		inputSide:        t.InputSide,
		isOutputPort:     t.IsOutputPort,
		links:            t.Links,
		isWire:           make([]bool, n),
		gate:             make([]bool, n),
		nextGate:         make([]bool, n),
		portGate:         make([]bool, n*SideCount),
		nextPortGate:     make([]bool, n*SideCount),
		cooldown:         make([]bool, n),
		nextCooldown:     make([]bool, n),
		timeUntilTurnOff: make([]float64, n),
		wireGate:         make([]bool, n),
		changed:          make([]bool, n),
		midiOut:          midiOut,
	}
	for f := range c.fields {
		c.fields[f] = make([]int, n)
	}
	if prev != nil {
		c.ticks, c.elapsed = prev.ticks, prev.elapsed
	}

	for id := 0; id < n; id++ {
		i := t.BlockIndex(id)
		if i < 0 {
			continue
		}
		b := &blocks[i]
		sp := reg.Spec(b.Kind)
		if sp == nil {
			continue
		}
		c.kind[id] = b.Kind
		c.active[id] = b.Active
		c.owns[id] = sp.OwnsCooldown
		for f, v := range sp.Initial {
			c.fields[f][id] = v
		}
		for f, v := range b.State {
			if f < fieldCount {
				c.fields[f][id] = v
			}
		}
		if prev == nil || prev.Kind(id) != b.Kind {
			continue
		}
		for _, f := range sp.Resettable {
			c.fields[f][id] = prev.fields[f][id]
		}
		c.gate[id] = prev.gate[id]
		c.cooldown[id] = prev.cooldown[id]
		c.timeUntilTurnOff[id] = prev.timeUntilTurnOff[id]
		for s := Side(0); s < SideCount; s++ {
			p := port(id, s)
			c.portGate[p] = c.isOutputPort[p] && prev.portGate[p]
		}
	}
	copy(c.nextCooldown, c.cooldown)

	for _, l := range c.links {
		c.isWire[l.Wire] = true
		c.wireGate[l.Wire] = c.portGate[port(l.From.Block, l.From.Side)]
	}
}

// commit publishes the next frame. Cooldown latches of blocks whose output has
// fallen are released, and blocks and wires whose level flips are flagged as
// changed.
func (c *Circuit) commit(elapsed float64) {
	for id := 0; id < c.size; id++ {
		if c.kind[id] == KindNone {
			continue
		}
		if !c.nextGate[id] && !c.owns[id] {
			c.nextCooldown[id] = false
		}
		if c.nextGate[id] != c.gate[id] {
			c.MarkChanged(id)
		}
	}
	for _, l := range c.links {
		g := c.nextPortGate[port(l.From.Block, l.From.Side)]
		if g != c.wireGate[l.Wire] {
			c.wireGate[l.Wire] = g
			c.MarkChanged(l.Wire)
		}
	}

	c.gate, c.nextGate = c.nextGate, c.gate
	c.portGate, c.nextPortGate = c.nextPortGate, c.portGate
	c.cooldown, c.nextCooldown = c.nextCooldown, c.cooldown
	for i := range c.nextGate {
		c.nextGate[i] = false
	}
	for i := range c.nextPortGate {
		c.nextPortGate[i] = false
	}
	copy(c.nextCooldown, c.cooldown)

	c.ticks++
	c.elapsed += elapsed
}

// flush returns the ids flagged as changed in ascending order and clears the
// flags.
func (c *Circuit) flush() []int {
	if len(c.changedIDs) == 0 {
		return nil
	}
	ids := make([]int, len(c.changedIDs))
	copy(ids, c.changedIDs)
	sort.Ints(ids)
	for _, id := range c.changedIDs {
		c.changed[id] = false
	}
	c.changedIDs = c.changedIDs[:0]
	return ids
}

// clearSignals drops every gate, cooldown and hold timer and flags all blocks
// and wires as changed.
func (c *Circuit) clearSignals() {
	for i := range c.gate {
		c.gate[i], c.nextGate[i] = false, false
		c.cooldown[i], c.nextCooldown[i] = false, false
		c.timeUntilTurnOff[i] = 0
		c.wireGate[i] = false
	}
	for i := range c.portGate {
		c.portGate[i], c.nextPortGate[i] = false, false
	}
	for id := 0; id < c.size; id++ {
		if c.kind[id] != KindNone || c.isWire[id] {
			c.MarkChanged(id)
		}
	}
	c.ticks, c.elapsed = 0, 0
}

// edited reports whether b, the new definition of block id, differs from it
// in kind or in any field that is not resettable.
func (c *Circuit) edited(id int, sp *KindSpec, b *Block) bool {
	if b.Kind != c.kind[id] {
		return true
	}
	var keep [fieldCount]bool
	for _, f := range sp.Resettable {
		keep[f] = true
	}
	for f := Field(0); f < fieldCount; f++ {
		if keep[f] {
			continue
		}
		v, ok := b.State[f]
		if !ok {
			v = sp.Initial[f]
		}
		if v != c.fields[f][id] {
			return true
		}
	}
	return false
}

// blockFrame holds what a transition function may write for one block.
type blockFrame struct {
	fields      [fieldCount]int
	timer       float64
	cooldown    bool
	srcCooldown [SideCount]bool
}

// save returns the writable state of block id.
func (c *Circuit) save(id int) (f blockFrame) {
	for i := range c.fields {
		f.fields[i] = c.fields[i][id]
	}
	f.timer = c.timeUntilTurnOff[id]
	f.cooldown = c.nextCooldown[id]
	for s := Side(0); s < SideCount; s++ {
		if src := c.input[port(id, s)]; src >= 0 {
			f.srcCooldown[s] = c.nextCooldown[src]
		}
	}
	return f
}

// rollback undoes the writes made for block id since f was saved.
func (c *Circuit) rollback(id int, f *blockFrame) {
	for i := range c.fields {
		c.fields[i][id] = f.fields[i]
	}
	c.timeUntilTurnOff[id] = f.timer
	c.nextGate[id] = false
	for s := Side(0); s < SideCount; s++ {
		p := port(id, s)
		c.nextPortGate[p] = false
		if src := c.input[p]; src >= 0 {
			c.nextCooldown[src] = f.srcCooldown[s]
		}
	}
	c.nextCooldown[id] = f.cooldown
}

// fieldSnapshot holds a copy of every block's resettable fields.
type fieldSnapshot struct {
	kind   []Kind
	fields [fieldCount][]int
}

func (c *Circuit) snapshot() *fieldSnapshot {
	s := &fieldSnapshot{kind: make([]Kind, c.size)}
	copy(s.kind, c.kind)
	for f := range c.fields {
		s.fields[f] = make([]int, c.size)
		copy(s.fields[f], c.fields[f])
	}
	return s
}

// include adds the blocks of c that s does not know about yet, typically
// blocks added while the simulation runs.
func (s *fieldSnapshot) include(c *Circuit) {
	for len(s.kind) < c.size {
		s.kind = append(s.kind, KindNone)
		for f := range s.fields {
			s.fields[f] = append(s.fields[f], 0)
		}
	}
	for id := 0; id < c.size; id++ {
		if c.kind[id] == KindNone || s.kind[id] == c.kind[id] {
			continue
		}
		s.kind[id] = c.kind[id]
		for f := range s.fields {
			s.fields[f][id] = c.fields[f][id]
		}
	}
}

// restore resets the resettable fields of every block still of the same kind.
func (c *Circuit) restore(s *fieldSnapshot, reg *Registry) {
	for id := 0; id < c.size && id < len(s.kind); id++ {
		k := c.kind[id]
		if k == KindNone || s.kind[id] != k {
			continue
		}
		for _, f := range reg.Spec(k).Resettable {
			c.fields[f][id] = s.fields[f][id]
		}
	}
}
