// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package server

import (
	"encoding/json"

	"github.com/db47h/circuitry"
)

// Message types.
//
const (
	TypeStart    = "start"
	TypePause    = "pause"
	TypeStop     = "stop"
	TypeUpdate   = "update"
	TypeLoad     = "load"
	TypeSave     = "save"
	TypeList     = "list"
	TypeChanges  = "changes"
	TypeState    = "state"
	TypeCircuits = "circuits"
	TypeError    = "error"
)

// Request is a client message.
//
type Request struct {
	Type string `json:"type"`
	// Name of the circuit to load or save.
	Name string `json:"name,omitempty"`
	// Circuit snapshot for update requests.
	Circuit json.RawMessage `json:"circuit,omitempty"`
}

// BlockChange is the state of a block after a tick.
//
type BlockChange struct {
	ID       int            `json:"id"`
	Gate     bool           `json:"gate"`
	Cooldown bool           `json:"cooldown"`
	Fields   map[string]int `json:"fields"`
}

// WireChange is the state of a wire after a tick.
//
type WireChange struct {
	ID   int  `json:"id"`
	Gate bool `json:"gate"`
}

// Changes is a batch of changes published after a tick or a stop.
//
type Changes struct {
	Type   string        `json:"type"`
	Tick   uint64        `json:"tick"`
	Blocks []BlockChange `json:"blocks"`
	Wires  []WireChange  `json:"wires"`
}

// StateMsg reports the simulation state.
//
type StateMsg struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

// CircuitsMsg lists the saved circuits.
//
type CircuitsMsg struct {
	Type  string   `json:"type"`
	Names []string `json:"names"`
}

// ErrorMsg reports a failed request.
//
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewChanges builds the change batch for ids from the state of c.
//
func NewChanges(c *circuitry.Circuit, ids []int) *Changes {
	m := &Changes{Type: TypeChanges, Tick: c.Ticks(), Blocks: []BlockChange{}, Wires: []WireChange{}}
	for _, id := range ids {
		switch {
		case c.IsWire(id):
			m.Wires = append(m.Wires, WireChange{ID: id, Gate: c.WireGate(id)})
		case c.IsBlock(id):
			fields := make(map[string]int, circuitry.FieldCount)
			for f := circuitry.Field(0); int(f) < circuitry.FieldCount; f++ {
				fields[f.String()] = c.Field(id, f)
			}
			m.Blocks = append(m.Blocks, BlockChange{ID: id, Gate: c.Gate(id), Cooldown: c.Cooldown(id), Fields: fields})
		}
	}
	return m
}
