// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuittest

import "github.com/db47h/circuitry"

// A Note is a recorded MIDI call.
//
type Note struct {
	On       bool
	Channel  int
	Note     int
	Velocity int
}

// Recorder records the side effects and change notifications of an engine.
//
type Recorder struct {
	Notes   []Note
	Changes [][]int
}

// MidiOut records a MIDI call. It can be used as a circuitry.MidiOutFn.
//
func (r *Recorder) MidiOut(on bool, channel, note, velocity int) {
	r.Notes = append(r.Notes, Note{on, channel, note, velocity})
}

// Changed records a change notification. It can be used as a
// circuitry.ChangesFn.
//
func (r *Recorder) Changed(ids []int) {
	r.Changes = append(r.Changes, append([]int(nil), ids...))
}

// Options returns the engine options that hook r.
//
func (r *Recorder) Options() []circuitry.Option {
	return []circuitry.Option{circuitry.WithMidiOut(r.MidiOut), circuitry.WithChanges(r.Changed)}
}

// Reset clears the recorded calls.
//
func (r *Recorder) Reset() {
	r.Notes = r.Notes[:0]
	r.Changes = r.Changes[:0]
}
