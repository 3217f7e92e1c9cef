// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package blocklib

import "github.com/db47h/circuitry"

// Input returns a function based source that takes the place of kind k in a
// registry (see With). The outputs of block id are raised on every tick where
// f(id) returns true.
//
//	Function: out = f(id)
//
func Input(k circuitry.Kind, f func(id int) bool) *circuitry.KindSpec {
	return &circuitry.KindSpec{
		Kind: k,
		Tick: func(c *circuitry.Circuit, id int, _ float64, _ *circuitry.Config) {
			if f(id) {
				c.Raise(id)
			}
		},
	}
}

// Output returns a probe that takes the place of kind k in a registry. f is
// called on every tick with the block id and the level of its inputs, or-ed
// together.
//
//	Function: f(id, in)
//
func Output(k circuitry.Kind, f func(id int, in bool)) *circuitry.KindSpec {
	return &circuitry.KindSpec{
		Kind: k,
		Tick: func(c *circuitry.Circuit, id int, _ float64, _ *circuitry.Config) {
			var in bool
			for s := circuitry.Side(0); s < circuitry.SideCount; s++ {
				in = in || c.Level(id, s)
			}
			f(id, in)
		},
	}
}
