// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuitry

import (
	"github.com/pkg/errors"
)

// A TickFn is the transition function of a block kind. It is called once per
// tick for every active block of that kind, with the elapsed time since the
// previous tick in milliseconds.
//
// A TickFn reads the committed state of the circuit and writes the next one.
// It may only write the columns of block id, plus the cooldown of the blocks
// wired into its inputs (see Circuit.Consume).
//
type TickFn func(c *Circuit, id int, elapsed float64, cfg *Config)

// A KindSpec describes a block kind (its blueprint).
//
// For example, a block that forwards any triggered input to its outputs can be
// defined like this:
//
//	relay := &circuitry.KindSpec{
//		Kind: circuitry.KindOr,
//		Tick: func(c *circuitry.Circuit, id int, _ float64, _ *circuitry.Config) {
//			for s := circuitry.Side(0); s < circuitry.SideCount; s++ {
//				if c.Triggered(id, s) {
//					c.Consume(id, s)
//					c.Raise(id)
//					return
//				}
//			}
//		}}
//
type KindSpec struct {
	Kind Kind
	// Initial holds the default field values merged onto new blocks.
	Initial map[Field]int
	// Resettable lists the fields restored to their pre-run values when the
	// simulation stops.
	Resettable []Field
	// OwnsCooldown is set for kinds that manage their own cooldown flag as a
	// hold window. The cooldown of other kinds is released as soon as their
	// output gate falls.
	OwnsCooldown bool
	// Transition function.
	Tick TickFn
	// OnStop, if not nil, is called for every block of this kind when the
	// simulation stops, before signals are cleared and fields restored.
	OnStop func(c *Circuit, id int)
}

// Registry maps block kinds to their specs. A Registry is immutable once
// created and safe for concurrent use.
//
type Registry struct {
	specs [kindCount]*KindSpec
}

// NewRegistry returns a registry holding the given specs.
//
func NewRegistry(specs ...*KindSpec) (*Registry, error) {
	r := new(Registry)
	for _, sp := range specs {
		if sp == nil {
			return nil, errors.New("nil kind spec")
		}
		if sp.Kind == KindNone || sp.Kind >= kindCount {
			return nil, errors.Errorf("invalid kind %v", sp.Kind)
		}
		if r.specs[sp.Kind] != nil {
			return nil, errors.Errorf("duplicate spec for kind %v", sp.Kind)
		}
		if sp.Tick == nil {
			return nil, errors.Errorf("kind %v has no transition function", sp.Kind)
		}
		for f := range sp.Initial {
			if f >= fieldCount {
				return nil, errors.Errorf("kind %v: invalid initial field %v", sp.Kind, f)
			}
		}
		for _, f := range sp.Resettable {
			if f >= fieldCount {
				return nil, errors.Errorf("kind %v: invalid resettable field %v", sp.Kind, f)
			}
		}
		r.specs[sp.Kind] = sp
	}
	return r, nil
}

// Spec returns the spec for kind k or nil if k is not registered.
//
func (r *Registry) Spec(k Kind) *KindSpec {
	if k >= kindCount {
		return nil
	}
	return r.specs[k]
}

// Kinds returns the registered kinds in enum order.
//
func (r *Registry) Kinds() []Kind {
	var ks []Kind
	for k, sp := range r.specs {
		if sp != nil {
			ks = append(ks, Kind(k))
		}
	}
	return ks
}

// Template returns the initial state of a new block of kind k. The returned
// map is a copy.
//
func (r *Registry) Template(k Kind) map[Field]int {
	sp := r.Spec(k)
	if sp == nil {
		return nil
	}
	m := make(map[Field]int, len(sp.Initial))
	for f, v := range sp.Initial {
		m[f] = v
	}
	return m
}
