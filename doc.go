// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package circuitry provides a fixed-step simulation engine for circuits of
music-sequencing blocks (counters, switches, MIDI outputs, clocks, logic
gates...) connected by wires.

The host describes a circuit as a list of blocks and a list of wires. Each
block has four sides, each configured as an input or an output port. A wire
joins an output side of one block to an input side of another.

The engine advances the whole circuit one tick at a time. During a tick, every
active block reads the signals committed by the previous tick and computes its
next state, so a pulse travels exactly one wire per tick whatever the order
blocks are visited in. Inputs are edge triggered: a block that reacts to a high
input puts its source on cooldown until the source output falls, so a
sustained signal triggers only once.

Block behavior is defined by a KindSpec per block kind, looked up in a
Registry. Package blocklib provides the standard catalog:

	reg := blocklib.Registry()
	e := circuitry.NewEngine(reg, circuitry.DefaultConfig(),
		circuitry.WithMidiOut(func(on bool, ch, note, vel int) { ... }),
		circuitry.WithChanges(func(ids []int) { ... }))
	e.Update(blocks, wires, circuitry.DefaultConfig())
	e.Start()
	e.Step(125) // one tick, 125ms after the previous one

A Loop runs an Engine at the tempo of its configuration and serializes host
commands between ticks.

*/
package circuitry
