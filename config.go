// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuitry

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Config holds the simulation parameters supplied by the host.
//
// The engine assumes a validated Config. Hosts must call Validate on any
// user-supplied value before handing it over.
//
type Config struct {
	// BPM is the tempo in beats per minute.
	BPM float64 `yaml:"bpm" json:"bpm"`
	// TicksPerBeat is the tick subdivision of a beat (4 gives sixteenth notes).
	TicksPerBeat int `yaml:"ticks_per_beat" json:"ticksPerBeat"`
	// GateLength is the MidiOut hold duration in milliseconds.
	GateLength float64 `yaml:"gate_length_ms" json:"gateLength"`
}

// Default configuration values.
//
const (
	DefaultBPM          = 120
	DefaultTicksPerBeat = 4
	DefaultGateLength   = 100
)

// DefaultConfig returns a Config with default values.
//
func DefaultConfig() Config {
	return Config{
		BPM:          DefaultBPM,
		TicksPerBeat: DefaultTicksPerBeat,
		GateLength:   DefaultGateLength,
	}
}

// Validate returns an error if c cannot drive a simulation.
//
func (c *Config) Validate() error {
	if math.IsNaN(c.BPM) || math.IsInf(c.BPM, 0) || c.BPM <= 0 {
		return errors.Errorf("invalid bpm %v", c.BPM)
	}
	if c.TicksPerBeat <= 0 {
		return errors.Errorf("invalid ticks per beat %d", c.TicksPerBeat)
	}
	if math.IsNaN(c.GateLength) || math.IsInf(c.GateLength, 0) || c.GateLength < 0 {
		return errors.Errorf("invalid gate length %v", c.GateLength)
	}
	return nil
}

// TickInterval returns the wall-clock duration of one tick.
//
func (c *Config) TickInterval() time.Duration {
	if c.BPM <= 0 || c.TicksPerBeat <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / (c.BPM * float64(c.TicksPerBeat)))
}
