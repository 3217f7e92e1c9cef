// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package blocklib provides the standard catalog of block kinds for circuitry.
//
// Copyright 2018 Denis Bernard <db047h@gmail.com>
//
// This package is licensed under the MIT license. See license text in the LICENSE file.
//
package blocklib

import (
	"sync"

	"github.com/db47h/circuitry"
)

var (
	std     *circuitry.Registry
	stdOnce sync.Once
)

// Specs returns a copy of the spec of every kind in the catalog. Callers may
// replace some of them before building their own registry.
//
func Specs() []*circuitry.KindSpec {
	all := []*circuitry.KindSpec{clock, counter, switchSpec, midiOut, toggle, and, or, xor, not}
	specs := make([]*circuitry.KindSpec, len(all))
	for i, sp := range all {
		cp := *sp
		specs[i] = &cp
	}
	return specs
}

// Registry returns a shared registry holding the whole catalog.
//
func Registry() *circuitry.Registry {
	stdOnce.Do(func() {
		var err error
		if std, err = circuitry.NewRegistry(Specs()...); err != nil {
			panic(err)
		}
	})
	return std
}

// With returns a registry holding the catalog where the kinds of the given
// specs are replaced by them.
//
func With(specs ...*circuitry.KindSpec) (*circuitry.Registry, error) {
	all := Specs()
	for _, sp := range specs {
		found := false
		for i := range all {
			if all[i].Kind == sp.Kind {
				all[i], found = sp, true
				break
			}
		}
		if !found {
			all = append(all, sp)
		}
	}
	return circuitry.NewRegistry(all...)
}

// triggered returns the first input side of block id, in side order, that sees
// a rising edge.
func triggered(c *circuitry.Circuit, id int) (circuitry.Side, bool) {
	for s := circuitry.Side(0); s < circuitry.SideCount; s++ {
		if c.Triggered(id, s) {
			return s, true
		}
	}
	return 0, false
}
