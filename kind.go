// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuitry

import (
	"strconv"

	"github.com/pkg/errors"
)

// Kind discriminates block types. The set of kinds is closed: adding one means
// adding a constant here and a KindSpec to the registry.
//
type Kind uint8

// Block kinds. KindNone marks column slots that do not hold a block (unused
// ids, wire ids, removed blocks).
//
const (
	KindNone Kind = iota
	KindClock
	KindCounter
	KindSwitch
	KindMidiOut
	KindToggle
	KindAnd
	KindOr
	KindXor
	KindNot

	kindCount
)

var kindNames = [kindCount]string{
	KindNone:    "",
	KindClock:   "Clock",
	KindCounter: "Counter",
	KindSwitch:  "Switch",
	KindMidiOut: "MidiOut",
	KindToggle:  "Toggle",
	KindAnd:     "And",
	KindOr:      "Or",
	KindXor:     "Xor",
	KindNot:     "Not",
}

func (k Kind) String() string {
	if k >= kindCount {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// ParseKind returns the kind with the given name, as stored in snapshots.
//
func ParseKind(name string) (Kind, error) {
	for i := KindNone + 1; i < kindCount; i++ {
		if kindNames[i] == name {
			return i, nil
		}
	}
	return KindNone, errors.Errorf("unknown block kind %q", name)
}

// Field identifies a kind-specific integer state field. Every field has its
// own column in a Circuit.
//
type Field uint8

// State fields.
//
const (
	FieldCurrent Field = iota
	FieldStep
	FieldLimit
	FieldTargetSide
	FieldStepCount
	FieldChannel
	FieldNote
	FieldVelocity
	FieldInterval
	FieldPhase
	FieldOn

	fieldCount
)

// FieldCount is the number of defined fields.
const FieldCount = int(fieldCount)

var fieldNames = [fieldCount]string{
	FieldCurrent:    "current",
	FieldStep:       "step",
	FieldLimit:      "limit",
	FieldTargetSide: "targetSide",
	FieldStepCount:  "stepCount",
	FieldChannel:    "channel",
	FieldNote:       "note",
	FieldVelocity:   "velocity",
	FieldInterval:   "interval",
	FieldPhase:      "phase",
	FieldOn:         "on",
}

func (f Field) String() string {
	if f >= fieldCount {
		return "Field(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

// ParseField returns the field with the given name.
//
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}
	return 0, errors.Errorf("unknown field %q", name)
}
