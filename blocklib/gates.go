// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package blocklib

import "github.com/db47h/circuitry"

// Logic gates work on levels rather than edges: their output follows the level
// of their connected inputs with a one tick delay. Unconnected inputs are
// ignored.
//
//	And: out = 1 if all connected inputs are high (and there is at least one)
//	Or:  out = 1 if any input is high
//	Xor: out = 1 if an odd number of inputs are high
//	Not: out = 1 if no input is high
//
type gate func(high, connected int) bool

func (g gate) tick(c *circuitry.Circuit, id int, _ float64, _ *circuitry.Config) {
	var high, n int
	for s := circuitry.Side(0); s < circuitry.SideCount; s++ {
		if c.Input(id, s) < 0 {
			continue
		}
		n++
		if c.Level(id, s) {
			high++
		}
	}
	if g(high, n) {
		c.Raise(id)
	}
}

func newGate(k circuitry.Kind, fn func(high, connected int) bool) *circuitry.KindSpec {
	return &circuitry.KindSpec{Kind: k, Tick: gate(fn).tick}
}

var (
	and = newGate(circuitry.KindAnd, func(h, n int) bool { return n > 0 && h == n })
	or  = newGate(circuitry.KindOr, func(h, _ int) bool { return h > 0 })
	xor = newGate(circuitry.KindXor, func(h, _ int) bool { return h%2 == 1 })
	not = newGate(circuitry.KindNot, func(h, _ int) bool { return h == 0 })
)
