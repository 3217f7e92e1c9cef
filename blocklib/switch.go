// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package blocklib

import "github.com/db47h/circuitry"

// Switch routes rising edges to its output sides in turn.
//
//	Fields: targetSide (0), stepCount (0)
//	Resets: targetSide, stepCount
//	Function: on trigger, targetSide moves to the next side after it (in
//	clockwise order, wrapping around) that is an output port, and that side
//	alone goes high for one tick.
//
// A Switch with no output port ignores its inputs. A targetSide outside of
// 0..3 disables the block.
//
var switchSpec = &circuitry.KindSpec{
	Kind: circuitry.KindSwitch,
	Initial: map[circuitry.Field]int{
		circuitry.FieldTargetSide: 0,
		circuitry.FieldStepCount:  0,
	},
	Resettable: []circuitry.Field{circuitry.FieldTargetSide, circuitry.FieldStepCount},
	Tick:       switchTick,
}

func switchTick(c *circuitry.Circuit, id int, _ float64, _ *circuitry.Config) {
	in, ok := triggered(c, id)
	if !ok {
		return
	}
	target := c.Field(id, circuitry.FieldTargetSide)
	if target < 0 || target >= circuitry.SideCount {
		return
	}
	for j := 1; j <= circuitry.SideCount; j++ {
		s := circuitry.Side((target + j) % circuitry.SideCount)
		if c.RaisePort(id, s) {
			c.Consume(id, in)
			c.SetField(id, circuitry.FieldTargetSide, int(s))
			c.SetField(id, circuitry.FieldStepCount, c.Field(id, circuitry.FieldStepCount)+1)
			c.MarkChanged(id)
			return
		}
	}
}
