// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package blocklib

import "github.com/db47h/circuitry"

// Toggle is a flip flop.
//
//	Fields: on (0)
//	Resets: on
//	Function: on trigger, on = !on. out = on.
//
var toggle = &circuitry.KindSpec{
	Kind:       circuitry.KindToggle,
	Initial:    map[circuitry.Field]int{circuitry.FieldOn: 0},
	Resettable: []circuitry.Field{circuitry.FieldOn},
	Tick:       toggleTick,
}

func toggleTick(c *circuitry.Circuit, id int, _ float64, _ *circuitry.Config) {
	on := c.Field(id, circuitry.FieldOn) != 0
	if s, ok := triggered(c, id); ok {
		c.Consume(id, s)
		on = !on
		c.SetField(id, circuitry.FieldOn, b2i(on))
		c.MarkChanged(id)
	}
	if on {
		c.Raise(id)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
