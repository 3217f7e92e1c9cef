// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package sink provides MIDI side-effect sinks for a circuit simulation: a
// MIDI output port, a preview synthesizer and helpers to combine them.
//
// Every sink method usable as a circuitry.MidiOutFn returns quickly and never
// waits for device I/O.
//
package sink

import (
	"log/slog"

	"github.com/db47h/circuitry"
	"github.com/db47h/circuitry/music"
)

// Tee returns a MidiOutFn that forwards its calls to every non nil fn, in
// order.
//
func Tee(fns ...circuitry.MidiOutFn) circuitry.MidiOutFn {
	var out []circuitry.MidiOutFn
	for _, fn := range fns {
		if fn != nil {
			out = append(out, fn)
		}
	}
	return func(on bool, channel, note, velocity int) {
		for _, fn := range out {
			fn(on, channel, note, velocity)
		}
	}
}

// Log returns a MidiOutFn that logs notes at debug level.
//
func Log(log *slog.Logger) circuitry.MidiOutFn {
	return func(on bool, channel, note, velocity int) {
		msg := "note off"
		if on {
			msg = "note on"
		}
		log.Debug(msg, "channel", channel, "note", noteName(note), "velocity", velocity)
	}
}

func noteName(n int) string {
	if n < 0 || n > 127 {
		return "invalid"
	}
	return music.NoteName(n)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
