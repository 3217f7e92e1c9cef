// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuittest

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/db47h/circuitry"
)

// A Frame is a copy of the observable state of a circuit after a tick.
//
type Frame struct {
	Gates     []bool
	Cooldowns []bool
	Wires     []bool
	Timers    []float64
	Fields    [circuitry.FieldCount][]int
	Changed   []int
}

// Capture copies the state of c.
//
func Capture(c *circuitry.Circuit, changed []int) Frame {
	n := c.Len()
	f := Frame{
		Gates:     make([]bool, n),
		Cooldowns: make([]bool, n),
		Wires:     make([]bool, n),
		Timers:    make([]float64, n),
		Changed:   changed,
	}
	for i := range f.Fields {
		f.Fields[i] = make([]int, n)
	}
	for id := 0; id < n; id++ {
		f.Gates[id] = c.Gate(id)
		f.Cooldowns[id] = c.Cooldown(id)
		f.Wires[id] = c.WireGate(id)
		f.Timers[id] = c.TimeUntilTurnOff(id)
		for i := range f.Fields {
			f.Fields[i][id] = c.Field(id, circuitry.Field(i))
		}
	}
	return f
}

// A Trace is the result of a Replay.
//
type Trace struct {
	Frames []Frame
	Notes  []Note
}

// Replay loads blocks and wires in a new engine, starts it and runs one tick
// per delta. It returns the circuit state after every tick, along with all
// MIDI calls.
//
func Replay(reg *circuitry.Registry, blocks []circuitry.Block, wires []circuitry.Wire, cfg circuitry.Config, deltas []float64) (*Trace, error) {
	var (
		r       Recorder
		changed []int
		tr      = new(Trace)
	)
	e := circuitry.NewEngine(reg, cfg,
		circuitry.WithMidiOut(r.MidiOut),
		circuitry.WithChanges(func(ids []int) { changed = append([]int(nil), ids...) }))
	e.Update(blocks, wires, cfg)
	if err := e.Start(); err != nil {
		return nil, err
	}
	for _, d := range deltas {
		changed = nil
		e.Step(d)
		tr.Frames = append(tr.Frames, Capture(e.Circuit(), changed))
	}
	tr.Notes = r.Notes
	return tr, nil
}

// RandomDeltas returns n tick durations jittered by up to 10% around base.
//
func RandomDeltas(rnd *rand.Rand, n int, base float64) []float64 {
	d := make([]float64, n)
	for i := range d {
		d[i] = base * (0.9 + 0.2*rnd.Float64())
	}
	return d
}

// CompareReplay replays the same circuit twice with the same random tick
// durations and fails if the two runs differ in any way.
//
func CompareReplay(t *testing.T, reg *circuitry.Registry, blocks []circuitry.Block, wires []circuitry.Wire, cfg circuitry.Config, ticks int) {
	t.Helper()

	seed := time.Now().UnixNano()
	deltas := RandomDeltas(rand.New(rand.NewSource(seed)), ticks, float64(cfg.TickInterval())/float64(time.Millisecond))

	start := time.Now()
	tr1, err := Replay(reg, blocks, wires, cfg, deltas)
	if err != nil {
		t.Fatal(err)
	}
	tr2, err := Replay(reg, blocks, wires, cfg, deltas)
	if err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)

	for i := range tr1.Frames {
		if !reflect.DeepEqual(tr1.Frames[i], tr2.Frames[i]) {
			t.Fatal(errString(seed, i, tr1.Frames[i], tr2.Frames[i]))
		}
	}
	if !reflect.DeepEqual(tr1.Notes, tr2.Notes) {
		t.Fatalf("seed %d: MIDI calls differ\nfirst run: %v\nsecond run: %v", seed, tr1.Notes, tr2.Notes)
	}
	t.Logf("%d ids. %d ticks in %v", len(blocks)+len(wires), 2*ticks, elapsed)
}

func errString(seed int64, tick int, f1, f2 Frame) string {
	return fmt.Sprintf("seed %d: state differs after tick %d\nfirst run: %+v\nsecond run: %+v", seed, tick, f1, f2)
}
