// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuitry

// MidiOutFn receives the MIDI side effects of a simulation: a note on when on
// is true, a note off otherwise. Channels are numbered from 1.
//
// It is called synchronously from the tick pass and must not block: hosts
// doing device I/O should queue the event and return.
//
type MidiOutFn func(on bool, channel, note, velocity int)

// ChangesFn receives, once per tick, the ids of the blocks and wires whose
// visible state changed, in ascending order. The host may read the new values
// off the engine's Circuit from within the callback. The slice is not reused
// by the engine.
//
// Like MidiOutFn, it runs on the goroutine driving the engine and must not
// block nor call back into a Loop.
//
type ChangesFn func(ids []int)
