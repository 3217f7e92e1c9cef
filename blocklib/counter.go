// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package blocklib

import "github.com/db47h/circuitry"

// Counter counts rising edges.
//
//	Fields: current (0), step (1), limit (8)
//	Resets: current
//	Function: on trigger, current = (current + step) mod limit and out = 1 for
//	one tick. No modulo is applied if limit <= 0.
//
var counter = &circuitry.KindSpec{
	Kind: circuitry.KindCounter,
	Initial: map[circuitry.Field]int{
		circuitry.FieldCurrent: 0,
		circuitry.FieldStep:    1,
		circuitry.FieldLimit:   8,
	},
	Resettable: []circuitry.Field{circuitry.FieldCurrent},
	Tick:       counterTick,
}

func counterTick(c *circuitry.Circuit, id int, _ float64, _ *circuitry.Config) {
	s, ok := triggered(c, id)
	if !ok {
		return
	}
	c.Consume(id, s)
	v := c.Field(id, circuitry.FieldCurrent) + c.Field(id, circuitry.FieldStep)
	if lim := c.Field(id, circuitry.FieldLimit); lim > 0 {
		v %= lim
		if v < 0 {
			v += lim
		}
	}
	c.SetField(id, circuitry.FieldCurrent, v)
	c.MarkChanged(id)
	c.Raise(id)
}
