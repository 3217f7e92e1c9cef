// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuitry

// A Block is the host's definition of a block.
//
type Block struct {
	ID     int
	Kind   Kind
	Active bool
	Ports  Ports
	// State holds kind-specific field values. Missing fields take the
	// default value of the kind's template.
	State map[Field]int
}

// A Wire is the host's definition of a wire between two block sides.
//
type Wire struct {
	ID    int
	Start PortRef
	End   PortRef
}

// A Link is a wire resolved by NewTopology: From is always an Out side and To
// an In side, whatever the direction the wire was drawn in.
//
type Link struct {
	Wire int
	From PortRef
	To   PortRef
}

// Topology is the dense index form of a block/wire list.
//
type Topology struct {
	// Size is the length of per-id columns: one more than the largest block
	// or wire id.
	Size int
	// Input maps id*4+side to the id of the block wired into that side, or -1.
	Input []int
	// InputSide maps id*4+side to the side of the source block the wire
	// starts from. Only meaningful where Input is not -1.
	InputSide []Side
	// IsOutputPort maps id*4+side to whether that side is configured Out.
	IsOutputPort []bool
	// Links lists the wires that connect, in list order.
	Links []Link

	index []int // block id -> index in the block list, or -1
}

// MaxID is the largest block or wire id. Larger ids are ignored.
//
const MaxID = 1<<20 - 1

func validID(id int) bool { return id >= 0 && id <= MaxID }

// NewTopology builds the connectivity of the given blocks and wires.
//
// NewTopology never fails. Wires that reference unknown blocks or sides, that
// loop on a single block, or that join two sides of the same direction are
// left unconnected. Only the first wire in list order reaching an input side
// is connected. Negative ids and ids above MaxID are ignored and, for
// duplicate block ids, the last definition wins.
//
func NewTopology(blocks []Block, wires []Wire) *Topology {
	size := 0
	for i := range blocks {
		if id := blocks[i].ID; validID(id) && id >= size {
			size = id + 1
		}
	}
	for i := range wires {
		if id := wires[i].ID; validID(id) && id >= size {
			size = id + 1
		}
	}

	t := &Topology{
		Size:         size,
		Input:        make([]int, size*SideCount),
		InputSide:    make([]Side, size*SideCount),
		IsOutputPort: make([]bool, size*SideCount),
		index:        make([]int, size),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for i := range t.Input {
		t.Input[i] = -1
	}
	for i := range blocks {
		if id := blocks[i].ID; validID(id) {
			t.index[id] = i
		}
	}
	for id, i := range t.index {
		if i < 0 {
			continue
		}
		for s, d := range blocks[i].Ports {
			t.IsOutputPort[port(id, Side(s))] = d == Out
		}
	}

	for i := range wires {
		w := &wires[i]
		if !validID(w.ID) || t.index[w.ID] >= 0 {
			continue
		}
		from, to, ok := t.orient(w.Start, w.End)
		if !ok {
			continue
		}
		in := port(to.Block, to.Side)
		if t.Input[in] >= 0 {
			continue
		}
		t.Input[in] = from.Block
		t.InputSide[in] = from.Side
		t.Links = append(t.Links, Link{Wire: w.ID, From: from, To: to})
	}
	return t
}

// orient returns the Out end and the In end of a wire between a and b.
func (t *Topology) orient(a, b PortRef) (from, to PortRef, ok bool) {
	if !t.has(a.Block) || !t.has(b.Block) || a.Block == b.Block || !a.Side.Valid() || !b.Side.Valid() {
		return from, to, false
	}
	ao, bo := t.IsOutputPort[port(a.Block, a.Side)], t.IsOutputPort[port(b.Block, b.Side)]
	switch {
	case ao && !bo:
		return a, b, true
	case bo && !ao:
		return b, a, true
	}
	return from, to, false
}

// has reports whether id is a block of the list.
func (t *Topology) has(id int) bool {
	return id >= 0 && id < t.Size && t.index[id] >= 0
}

// BlockIndex returns the index in the source block list of the block with the
// given id, or -1.
//
func (t *Topology) BlockIndex(id int) int {
	if id < 0 || id >= t.Size {
		return -1
	}
	return t.index[id]
}
