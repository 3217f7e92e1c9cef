// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package snapshot implements the persisted form of a circuit: a flat JSON
// record holding the block and wire lists along with editor state.
//
// Block records carry their kind in "name" and their state fields as top level
// keys:
//
//	{"id": 3, "name": "Counter", "active": true,
//	 "ports": {"top": "in", "right": "out", "bottom": "out", "left": "in"},
//	 "current": 0, "step": 1, "limit": 8, "x": 120, "y": 40}
//
// Keys the simulation does not use, like editor coordinates, are kept as is
// and written back by Encode.
//
package snapshot

import (
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/db47h/circuitry"
	"github.com/db47h/circuitry/music"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaText string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("schema.json", schemaText)
	})
	return schema, schemaErr
}

// Point is a 2D editor coordinate.
//
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Snapshot is a saved circuit.
//
type Snapshot struct {
	IDCounter      int     `json:"idCounter"`
	Blocks         []Block `json:"blocks"`
	Wires          []Wire  `json:"wires"`
	ViewportOffset Point   `json:"viewportOffset"`
	BPM            float64 `json:"bpm,omitempty"`
}

// Block is a block record.
//
type Block struct {
	circuitry.Block
	// Extra holds the keys of the record that are not block properties.
	Extra map[string]json.RawMessage
}

// Wire is a wire record.
//
type Wire struct {
	circuitry.Wire
	Extra map[string]json.RawMessage
}

// Decode validates and decodes a snapshot.
//
func Decode(data []byte) (*Snapshot, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	sch, err := compiled()
	if err != nil {
		return nil, errors.Wrap(err, "compile snapshot schema")
	}
	if err = sch.Validate(v); err != nil {
		return nil, errors.Wrap(err, "invalid snapshot")
	}
	s := new(Snapshot)
	if err = json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return s, nil
}

// Encode encodes s.
//
func Encode(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	return data, errors.Wrap(err, "encode snapshot")
}

// Circuit returns the block and wire lists of s.
//
func (s *Snapshot) Circuit() ([]circuitry.Block, []circuitry.Wire) {
	blocks := make([]circuitry.Block, len(s.Blocks))
	for i := range s.Blocks {
		blocks[i] = s.Blocks[i].Block
	}
	wires := make([]circuitry.Wire, len(s.Wires))
	for i := range s.Wires {
		wires[i] = s.Wires[i].Wire
	}
	return blocks, wires
}

// Config returns base with the tempo of s, if set.
//
func (s *Snapshot) Config(base circuitry.Config) circuitry.Config {
	if s.BPM > 0 {
		base.BPM = s.BPM
	}
	return base
}

// UnmarshalJSON implements json.Unmarshaler.
//
func (b *Block) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*b = Block{Block: circuitry.Block{Active: true, Ports: circuitry.DefaultPorts}}
	var err error
	for k, raw := range m {
		switch k {
		case "id":
			err = json.Unmarshal(raw, &b.ID)
		case "name":
			var name string
			if err = json.Unmarshal(raw, &name); err == nil {
				b.Kind, err = circuitry.ParseKind(name)
			}
		case "active":
			err = json.Unmarshal(raw, &b.Active)
		case "ports":
			err = b.decodePorts(raw)
		case "note":
			err = b.decodeNote(raw)
		case "currentTargetSide":
			if _, ok := m["targetSide"]; !ok {
				err = b.decodeField(circuitry.FieldTargetSide, raw)
			}
		default:
			if f, ferr := circuitry.ParseField(k); ferr == nil {
				err = b.decodeField(f, raw)
				break
			}
			if b.Extra == nil {
				b.Extra = make(map[string]json.RawMessage)
			}
			b.Extra[k] = raw
		}
		if err != nil {
			return errors.Wrapf(err, "block %q", k)
		}
	}
	return nil
}

func (b *Block) decodeField(f circuitry.Field, raw json.RawMessage) error {
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if b.State == nil {
		b.State = make(map[circuitry.Field]int)
	}
	b.State[f] = v
	return nil
}

func (b *Block) decodeNote(raw json.RawMessage) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return b.decodeField(circuitry.FieldNote, raw)
	}
	n, err := music.ParseNote(name)
	if err != nil {
		return err
	}
	if b.State == nil {
		b.State = make(map[circuitry.Field]int)
	}
	b.State[circuitry.FieldNote] = n
	return nil
}

func (b *Block) decodePorts(raw json.RawMessage) error {
	var ports map[string]string
	if err := json.Unmarshal(raw, &ports); err != nil {
		return err
	}
	for side, dir := range ports {
		s, err := circuitry.ParseSide(side)
		if err != nil {
			return err
		}
		if b.Ports[s], err = circuitry.ParseDirection(dir); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
//
func (b Block) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(b.Extra)+len(b.State)+4)
	for k, v := range b.Extra {
		m[k] = v
	}
	ports := make(map[string]string, circuitry.SideCount)
	for s := circuitry.Side(0); s < circuitry.SideCount; s++ {
		ports[s.String()] = b.Ports[s].String()
	}
	for f, v := range b.State {
		m[f.String()] = v
	}
	m["id"] = b.ID
	m["name"] = b.Kind.String()
	m["active"] = b.Active
	m["ports"] = ports
	return json.Marshal(m)
}

type portRef struct {
	BlockID int             `json:"blockId"`
	Side    json.RawMessage `json:"side"`
}

func (p *portRef) ref() (circuitry.PortRef, error) {
	r := circuitry.PortRef{Block: p.BlockID}
	var name string
	if err := json.Unmarshal(p.Side, &name); err == nil {
		r.Side, err = circuitry.ParseSide(name)
		return r, err
	}
	var n int
	if err := json.Unmarshal(p.Side, &n); err != nil {
		return r, errors.Errorf("invalid side %s", p.Side)
	}
	r.Side = circuitry.Side(n)
	if !r.Side.Valid() || n != int(r.Side) {
		return r, errors.Errorf("invalid side %d", n)
	}
	return r, nil
}

// UnmarshalJSON implements json.Unmarshaler.
//
func (w *Wire) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*w = Wire{}
	for k, raw := range m {
		var err error
		switch k {
		case "id":
			err = json.Unmarshal(raw, &w.ID)
		case "start", "end":
			var p portRef
			if err = json.Unmarshal(raw, &p); err != nil {
				break
			}
			var r circuitry.PortRef
			if r, err = p.ref(); err != nil {
				break
			}
			if k == "start" {
				w.Start = r
			} else {
				w.End = r
			}
		default:
			if w.Extra == nil {
				w.Extra = make(map[string]json.RawMessage)
			}
			w.Extra[k] = raw
		}
		if err != nil {
			return errors.Wrapf(err, "wire %q", k)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
//
func (w Wire) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(w.Extra)+3)
	for k, v := range w.Extra {
		m[k] = v
	}
	ref := func(r circuitry.PortRef) map[string]interface{} {
		return map[string]interface{}{"blockId": r.Block, "side": r.Side.String()}
	}
	m["id"] = w.ID
	m["start"] = ref(w.Start)
	m["end"] = ref(w.End)
	return json.Marshal(m)
}
