// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package blocklib

import "github.com/db47h/circuitry"

// MidiOut plays a note on rising edges.
//
//	Fields: channel (1), note (64), velocity (100)
//	Function: on trigger, send note on and hold it for Config.GateLength
//	milliseconds, then send note off.
//
// The block's cooldown flag is set for the whole hold window. A new trigger
// while the note is held sends another note on and restarts the window.
//
var midiOut = &circuitry.KindSpec{
	Kind: circuitry.KindMidiOut,
	Initial: map[circuitry.Field]int{
		circuitry.FieldChannel:  1,
		circuitry.FieldNote:     64,
		circuitry.FieldVelocity: 100,
	},
	OwnsCooldown: true,
	Tick:         midiOutTick,
	OnStop:       midiOutStop,
}

func midiOutTick(c *circuitry.Circuit, id int, elapsed float64, cfg *circuitry.Config) {
	if c.Cooldown(id) {
		t := c.TimeUntilTurnOff(id) - elapsed
		c.SetTimeUntilTurnOff(id, t)
		if t <= 0 {
			noteOut(c, id, false)
			c.SetCooldown(id, false)
			c.MarkChanged(id)
		}
	}
	s, ok := triggered(c, id)
	if !ok {
		return
	}
	noteOut(c, id, true)
	c.SetTimeUntilTurnOff(id, cfg.GateLength)
	c.SetCooldown(id, true)
	c.Consume(id, s)
	c.MarkChanged(id)
}

// midiOutStop releases a held note.
func midiOutStop(c *circuitry.Circuit, id int) {
	if c.Cooldown(id) {
		noteOut(c, id, false)
	}
}

func noteOut(c *circuitry.Circuit, id int, on bool) {
	c.MidiOut(on,
		c.Field(id, circuitry.FieldChannel),
		c.Field(id, circuitry.FieldNote),
		c.Field(id, circuitry.FieldVelocity))
}
