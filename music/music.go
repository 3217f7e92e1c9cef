// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package music provides note, velocity and interval parsing for circuit
// editors, along with tempo arithmetic.
//
// Note names follow the editor's convention where octave 3 holds middle E
// (MIDI note 64): a note is a letter from A to G, an optional accidental (#
// or b) and an optional octave from -2 to 8, in either order ("C#4", "E",
// "Bb2", "D3#"). The octave defaults to 3.
//
package music

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultOctave is the octave of a note name with no octave number.
//
const DefaultOctave = 3

var noteIndex = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// TextNoteToMIDI converts a note name to a MIDI note number.
//
func TextNoteToMIDI(name string) (int, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, errors.New("empty note name")
	}
	n, ok := noteIndex[s[0]]
	if !ok {
		return 0, errors.Errorf("invalid note name %q", name)
	}
	s = s[1:]
	acc := 0
	octave, hasOctave := DefaultOctave, false
	for len(s) > 0 {
		switch c := s[0]; {
		case (c == '#' || c == 'b') && acc == 0:
			if c == '#' {
				acc = 1
			} else {
				acc = -1
			}
			s = s[1:]
		case (c == '-' || c >= '0' && c <= '9') && !hasOctave:
			i := 1
			if c == '-' {
				i = 2
			}
			if len(s) < i {
				return 0, errors.Errorf("invalid octave in note %q", name)
			}
			o, err := strconv.Atoi(s[:i])
			if err != nil || o < -2 || o > 9 {
				return 0, errors.Errorf("invalid octave in note %q", name)
			}
			octave, hasOctave = o, true
			s = s[i:]
		default:
			return 0, errors.Errorf("invalid note name %q", name)
		}
	}
	m := 24 + 12*octave + n + acc
	if m < 0 || m > 127 {
		return 0, errors.Errorf("note %q out of MIDI range", name)
	}
	return m, nil
}

// NoteName returns the name of MIDI note n (0 to 127), using sharps for
// accidentals.
//
func NoteName(n int) string {
	return noteNames[n%12] + strconv.Itoa(n/12-2)
}

// ParseNote parses a note given either by name or as a MIDI note number.
//
func ParseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, errors.Errorf("note %d out of MIDI range", n)
		}
		return n, nil
	}
	return TextNoteToMIDI(s)
}

// split splits a comma separated list, dropping empty items.
func split(list string) []string {
	var items []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			items = append(items, s)
		}
	}
	return items
}

// ParseNotes parses a comma separated list of notes (see ParseNote).
//
func ParseNotes(list string) ([]int, error) {
	items := split(list)
	notes := make([]int, len(items))
	for i, s := range items {
		n, err := ParseNote(s)
		if err != nil {
			return nil, err
		}
		notes[i] = n
	}
	return notes, nil
}

// ParseVelocities parses a comma separated list of velocities.
//
func ParseVelocities(list string) ([]int, error) {
	items := split(list)
	vs := make([]int, len(items))
	for i, s := range items {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid velocity %q", s)
		}
		if v < 0 || v > 127 {
			return nil, errors.Errorf("velocity %d out of MIDI range", v)
		}
		vs[i] = v
	}
	return vs, nil
}

// NoteToMs returns the duration in milliseconds of beats notes of 1/fraction
// of a whole note at the given tempo.
//
func NoteToMs(beats, fraction int, bpm float64) float64 {
	return 60000 / (bpm / 4) / float64(fraction) * float64(beats)
}

// TextIntervalToMillis converts a note fraction like "1/16" or "3/8" to a
// duration in milliseconds at the given tempo.
//
func TextIntervalToMillis(interval string, bpm float64) (float64, error) {
	num, den, ok := fraction(interval)
	if !ok || num <= 0 || den <= 0 {
		return 0, errors.Errorf("invalid interval %q", interval)
	}
	return NoteToMs(num, den, bpm), nil
}

func fraction(s string) (num, den int, ok bool) {
	i := strings.IndexByte(s, '/')
	if i < 0 {
		return 0, 0, false
	}
	num, err := strconv.Atoi(strings.TrimSpace(s[:i]))
	if err != nil {
		return 0, 0, false
	}
	den, err = strconv.Atoi(strings.TrimSpace(s[i+1:]))
	if err != nil {
		return 0, 0, false
	}
	return num, den, true
}

// ParseIntervals parses a comma separated list of intervals, each given as a
// note fraction (see TextIntervalToMillis) or a positive number of
// milliseconds.
//
func ParseIntervals(list string, bpm float64) ([]float64, error) {
	items := split(list)
	ivs := make([]float64, len(items))
	for i, s := range items {
		if strings.IndexByte(s, '/') >= 0 {
			ms, err := TextIntervalToMillis(s, bpm)
			if err != nil {
				return nil, err
			}
			ivs[i] = ms
			continue
		}
		ms, err := strconv.ParseFloat(s, 64)
		if err != nil || ms <= 0 || math.IsInf(ms, 0) {
			return nil, errors.Errorf("invalid interval %q", s)
		}
		ivs[i] = ms
	}
	return ivs, nil
}

// ParseSignature parses a time signature like "3/4". A missing numerator or
// denominator defaults to 4.
//
func ParseSignature(sig string) (num, den int, err error) {
	i := strings.IndexByte(sig, '/')
	if i < 0 {
		return 0, 0, errors.Errorf("invalid time signature %q", sig)
	}
	num, den = 4, 4
	if n := sig[:i]; n != "" {
		if num, err = strconv.Atoi(n); err != nil || num <= 0 {
			return 0, 0, errors.Errorf("invalid time signature %q", sig)
		}
	}
	if d := sig[i+1:]; d != "" {
		if den, err = strconv.Atoi(d); err != nil || den <= 0 {
			return 0, 0, errors.Errorf("invalid time signature %q", sig)
		}
	}
	return num, den, nil
}

// Frequency returns the frequency in Hz of MIDI note n in equal temperament
// (A 440).
//
func Frequency(n int) float64 {
	return 440 * math.Pow(2, float64(n-69)/12)
}
