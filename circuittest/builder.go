// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package circuittest provides utility functions for testing circuits.
//
package circuittest

import "github.com/db47h/circuitry"

// Builder builds block and wire lists. Blocks and wires are given ids in
// creation order, from a single counter.
//
type Builder struct {
	blocks []circuitry.Block
	wires  []circuitry.Wire
	next   int
}

// Add adds an active block of kind k with default ports and returns its id.
// Fields missing from state take their default value.
//
func (b *Builder) Add(k circuitry.Kind, state map[circuitry.Field]int) int {
	return b.AddPorts(k, circuitry.DefaultPorts, state)
}

// AddPorts is like Add with custom port directions.
//
func (b *Builder) AddPorts(k circuitry.Kind, ports circuitry.Ports, state map[circuitry.Field]int) int {
	id := b.next
	b.next++
	b.blocks = append(b.blocks, circuitry.Block{ID: id, Kind: k, Active: true, Ports: ports, State: state})
	return id
}

// Connect adds a wire from side fs of block from to side ts of block to and
// returns its id.
//
func (b *Builder) Connect(from int, fs circuitry.Side, to int, ts circuitry.Side) int {
	id := b.next
	b.next++
	b.wires = append(b.wires, circuitry.Wire{
		ID:    id,
		Start: circuitry.PortRef{Block: from, Side: fs},
		End:   circuitry.PortRef{Block: to, Side: ts},
	})
	return id
}

// Block returns the definition of block id for editing, or nil.
//
func (b *Builder) Block(id int) *circuitry.Block {
	for i := range b.blocks {
		if b.blocks[i].ID == id {
			return &b.blocks[i]
		}
	}
	return nil
}

// Blocks returns the block list.
//
func (b *Builder) Blocks() []circuitry.Block { return b.blocks }

// Wires returns the wire list.
//
func (b *Builder) Wires() []circuitry.Wire { return b.wires }
