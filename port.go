// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuitry

import (
	"github.com/pkg/errors"
)

// Side identifies one of the four ports of a block.
//
type Side int8

// Block sides, clockwise from the top.
//
const (
	Top Side = iota
	Right
	Bottom
	Left
)

// SideCount is the number of ports on a block.
const SideCount = 4

var sideNames = [SideCount]string{"top", "right", "bottom", "left"}

// Valid reports whether s is one of Top, Right, Bottom or Left.
//
func (s Side) Valid() bool { return s >= 0 && s < SideCount }

func (s Side) String() string {
	if !s.Valid() {
		return "invalid"
	}
	return sideNames[s]
}

// ParseSide returns the side with the given name.
//
func ParseSide(name string) (Side, error) {
	for i, n := range sideNames {
		if n == name {
			return Side(i), nil
		}
	}
	return 0, errors.Errorf("unknown side %q", name)
}

// Direction is the configured direction of a port.
//
type Direction uint8

// Port directions.
//
const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == Out {
		return "out"
	}
	return "in"
}

// ParseDirection returns the direction with the given name ("in" or "out").
//
func ParseDirection(name string) (Direction, error) {
	switch name {
	case "in":
		return In, nil
	case "out":
		return Out, nil
	}
	return 0, errors.Errorf("unknown port direction %q", name)
}

// Ports holds the direction of each side of a block, indexed by Side.
//
type Ports [SideCount]Direction

// DefaultPorts is the port configuration of a newly placed block.
//
var DefaultPorts = Ports{Top: In, Right: Out, Bottom: Out, Left: In}

// A PortRef designates one side of a block.
//
type PortRef struct {
	Block int
	Side  Side
}

// port returns the column index of side s of block id.
func port(id int, s Side) int {
	return id*SideCount + int(s)
}
