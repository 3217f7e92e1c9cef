// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package config loads the circuitry command configuration file.
//
// Example:
//
//	engine:
//	  bpm: 128
//	  ticks_per_beat: 4
//	  gate_length: 1/16   # or a number of milliseconds
//	store:
//	  path: ~/.local/share/circuitry/circuits.db
//	server:
//	  listen: localhost:8080
//	midi:
//	  output: "IAC Driver Bus 1"
//	  synth: true
//	log:
//	  level: debug
//
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/db47h/circuitry"
	"github.com/db47h/circuitry/music"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the command configuration.
//
type Config struct {
	Engine circuitry.Config
	Store  Store
	Server Server
	MIDI   MIDI
	Log    Log
}

// Store configures the circuit store.
//
type Store struct {
	Path string `yaml:"path"`
}

// Server configures the websocket server.
//
type Server struct {
	Listen string `yaml:"listen"`
}

// MIDI configures the note sinks.
//
type MIDI struct {
	// Output is the name of the MIDI output port. Empty disables MIDI output.
	Output string `yaml:"output"`
	// Synth enables the built-in synthesizer.
	Synth bool `yaml:"synth"`
}

// Log configures logging.
//
type Log struct {
	Level slog.Level `yaml:"level"`
}

type engine struct {
	BPM          float64 `yaml:"bpm"`
	TicksPerBeat int     `yaml:"ticks_per_beat"`
	GateLength   string  `yaml:"gate_length"`
}

type file struct {
	Engine engine `yaml:"engine"`
	Store  Store  `yaml:"store"`
	Server Server `yaml:"server"`
	MIDI   MIDI   `yaml:"midi"`
	Log    Log    `yaml:"log"`
}

// Default returns the default configuration.
//
func Default() Config {
	var c Config
	c.Engine = circuitry.DefaultConfig()
	c.Store.Path = defaultStorePath()
	c.Server.Listen = "localhost:8080"
	c.Log.Level = slog.LevelInfo
	return c
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "circuits.db"
	}
	return filepath.Join(dir, "circuitry", "circuits.db")
}

// Load reads the configuration file at path. Missing settings take their
// default value.
//
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	c, err := Parse(raw)
	return c, errors.Wrap(err, filepath.Base(path))
}

// Parse parses and validates a YAML configuration.
//
func Parse(raw []byte) (Config, error) {
	d := Default()
	f := file{
		Engine: engine{BPM: d.Engine.BPM, TicksPerBeat: d.Engine.TicksPerBeat},
		Store:  d.Store,
		Server: d.Server,
		Log:    d.Log,
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}

	c := d
	c.Engine.BPM = f.Engine.BPM
	c.Engine.TicksPerBeat = f.Engine.TicksPerBeat
	if f.Engine.GateLength != "" {
		gl, err := GateLength(f.Engine.GateLength, c.Engine.BPM)
		if err != nil {
			return Config{}, err
		}
		c.Engine.GateLength = gl
	}
	if err := c.Engine.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "engine")
	}
	c.Store = f.Store
	c.Store.Path = expandHome(c.Store.Path)
	c.Server = f.Server
	c.MIDI = f.MIDI
	c.Log = f.Log
	return c, nil
}

// GateLength parses a gate length given either in milliseconds or as a note
// fraction ("1/16") at the given tempo.
//
func GateLength(s string, bpm float64) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.IndexByte(s, '/') >= 0 {
		if bpm <= 0 {
			return 0, errors.Errorf("gate length %q: invalid tempo", s)
		}
		return music.TextIntervalToMillis(s, bpm)
	}
	ms, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Errorf("invalid gate length %q", s)
	}
	return ms, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
