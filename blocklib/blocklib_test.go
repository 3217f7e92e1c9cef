// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package blocklib_test

import (
	"testing"

	"github.com/db47h/circuitry"
	"github.com/db47h/circuitry/blocklib"
	"github.com/db47h/circuitry/circuittest"
)

const testDelta = 125 // ms, 120 BPM at 4 ticks per beat

// start loads the circuit built by b in a new engine and starts it.
func start(t *testing.T, reg *circuitry.Registry, b *circuittest.Builder, r *circuittest.Recorder, cfg circuitry.Config) *circuitry.Engine {
	t.Helper()
	var opts []circuitry.Option
	if r != nil {
		opts = r.Options()
	}
	e := circuitry.NewEngine(reg, cfg, opts...)
	e.Update(b.Blocks(), b.Wires(), cfg)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	return e
}

func steps(e *circuitry.Engine, n int) {
	for i := 0; i < n; i++ {
		e.Step(testDelta)
	}
}

// sources returns a registry where Toggle blocks are replaced by inputs whose
// level is read from the returned map.
func sources(t *testing.T, extra ...*circuitry.KindSpec) (*circuitry.Registry, map[int]bool) {
	t.Helper()
	levels := make(map[int]bool)
	reg, err := blocklib.With(append(extra, blocklib.Input(circuitry.KindToggle, func(id int) bool { return levels[id] }))...)
	if err != nil {
		t.Fatal(err)
	}
	return reg, levels
}

func TestRegistry(t *testing.T) {
	reg := blocklib.Registry()
	if reg != blocklib.Registry() {
		t.Fatal("Registry() is not shared")
	}
	kinds := reg.Kinds()
	if len(kinds) != 9 {
		t.Fatalf("expected 9 kinds, got %v", kinds)
	}
	for _, k := range kinds {
		if reg.Spec(k).Tick == nil {
			t.Errorf("kind %v has no transition function", k)
		}
	}
	if !reg.Spec(circuitry.KindMidiOut).OwnsCooldown {
		t.Error("MidiOut must own its cooldown")
	}
	tpl := reg.Template(circuitry.KindCounter)
	tpl[circuitry.FieldLimit] = 42
	if v := reg.Template(circuitry.KindCounter)[circuitry.FieldLimit]; v != 8 {
		t.Errorf("template modified through copy: limit = %d", v)
	}
}

func TestWith(t *testing.T) {
	in := blocklib.Input(circuitry.KindClock, func(int) bool { return true })
	reg, err := blocklib.With(in)
	if err != nil {
		t.Fatal(err)
	}
	if reg.Spec(circuitry.KindClock) != in {
		t.Fatal("Clock spec not replaced")
	}
	if reg.Spec(circuitry.KindCounter) == nil {
		t.Fatal("Counter missing")
	}
	if _, err = blocklib.With(in, in); err == nil {
		t.Fatal("expected duplicate kind error")
	}
}

func testGate(t *testing.T, k circuitry.Kind, inputs int, result []bool) {
	t.Helper()
	var out bool
	reg, levels := sources(t, blocklib.Output(circuitry.KindMidiOut, func(_ int, in bool) { out = in }))

	var b circuittest.Builder
	ins := make([]int, inputs)
	for i := range ins {
		ins[i] = b.Add(circuitry.KindToggle, nil)
	}
	g := b.AddPorts(k, circuitry.Ports{circuitry.In, circuitry.Out, circuitry.In, circuitry.In}, nil)
	inSides := []circuitry.Side{circuitry.Left, circuitry.Top, circuitry.Bottom}
	for i, id := range ins {
		b.Connect(id, circuitry.Right, g, inSides[i])
	}
	probe := b.Add(circuitry.KindMidiOut, nil)
	b.Connect(g, circuitry.Right, probe, circuitry.Left)
	e := start(t, reg, &b, nil, circuitry.DefaultConfig())

	for i := range result {
		for bit, id := range ins {
			levels[id] = i&(1<<uint(len(ins)-bit-1)) != 0
		}
		// sources, gate, probe
		steps(e, 3)
		if out != result[i] {
			t.Errorf("%v %v = %v, got %v", k, levels, result[i], out)
		}
		if lvl := e.Circuit().Gate(g); lvl != result[i] {
			t.Errorf("%v %v: gate = %v, probe = %v", k, levels, lvl, out)
		}
	}
}

func TestGates(t *testing.T) {
	td := []struct {
		kind   circuitry.Kind
		inputs int
		result []bool
	}{
		{circuitry.KindNot, 0, []bool{true}},
		{circuitry.KindNot, 1, []bool{true, false}},
		{circuitry.KindNot, 2, []bool{true, false, false, false}},
		{circuitry.KindAnd, 0, []bool{false}},
		{circuitry.KindAnd, 2, []bool{false, false, false, true}},
		{circuitry.KindOr, 2, []bool{false, true, true, true}},
		{circuitry.KindXor, 2, []bool{false, true, true, false}},
		{circuitry.KindXor, 3, []bool{false, true, true, false, true, false, false, true}},
		{circuitry.KindAnd, 3, []bool{false, false, false, false, false, false, false, true}},
	}
	for _, d := range td {
		t.Run(d.kind.String(), func(t *testing.T) {
			testGate(t, d.kind, d.inputs, d.result)
		})
	}
}

func TestGateIgnoresCooldown(t *testing.T) {
	reg, levels := sources(t)
	var b circuittest.Builder
	src := b.Add(circuitry.KindToggle, nil)
	cnt := b.Add(circuitry.KindCounter, nil)
	or := b.Add(circuitry.KindOr, nil)
	b.Connect(src, circuitry.Right, cnt, circuitry.Left)
	b.Connect(src, circuitry.Bottom, or, circuitry.Top)
	e := start(t, reg, &b, nil, circuitry.DefaultConfig())

	levels[src] = true
	steps(e, 5)
	c := e.Circuit()
	if !c.Cooldown(src) {
		t.Fatal("source should be on cooldown")
	}
	if !c.Gate(or) {
		t.Fatal("Or gate should follow the source level")
	}
	if v := c.Field(cnt, circuitry.FieldCurrent); v != 1 {
		t.Fatalf("counter = %d, expected 1", v)
	}
}
