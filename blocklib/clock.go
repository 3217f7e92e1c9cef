// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package blocklib

import "github.com/db47h/circuitry"

// Clock emits a pulse every interval ticks.
//
//	Fields: interval (4), phase (0)
//	Resets: phase
//	Function: out = 1 when phase == 0, then phase = (phase + 1) mod interval.
//	A trigger on any input resets phase to 0.
//
// A Clock with an interval of 1 holds its outputs high. An interval <= 0
// disables the block.
//
var clock = &circuitry.KindSpec{
	Kind: circuitry.KindClock,
	Initial: map[circuitry.Field]int{
		circuitry.FieldInterval: 4,
		circuitry.FieldPhase:    0,
	},
	Resettable: []circuitry.Field{circuitry.FieldPhase},
	Tick:       clockTick,
}

func clockTick(c *circuitry.Circuit, id int, _ float64, _ *circuitry.Config) {
	iv := c.Field(id, circuitry.FieldInterval)
	if iv <= 0 {
		return
	}
	ph := c.Field(id, circuitry.FieldPhase) % iv
	if ph < 0 {
		ph += iv
	}
	if s, ok := triggered(c, id); ok {
		c.Consume(id, s)
		ph = 0
	}
	if ph == 0 {
		c.Raise(id)
	}
	c.SetField(id, circuitry.FieldPhase, (ph+1)%iv)
}
