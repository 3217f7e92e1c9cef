// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package music_test

import (
	"math"
	"testing"

	"github.com/db47h/circuitry/music"
)

func TestTextNoteToMIDI(t *testing.T) {
	td := []struct {
		in  string
		out int
		ok  bool
	}{
		{"E", 64, true},
		{"E3", 64, true},
		{"E4", 76, true},
		{"C#3", 61, true},
		{"C3#", 61, true},
		{"Bb2", 58, true},
		{"B2b", 58, true},
		{"A4", 81, true},
		{"C-2", 0, true},
		{"G8", 127, true},
		{" D0 ", 26, true},
		{"G#8", 0, false},
		{"H3", 0, false},
		{"e3", 0, false},
		{"C##3", 0, false},
		{"C33", 0, false},
		{"C-", 0, false},
		{"", 0, false},
	}
	for _, d := range td {
		n, err := music.TextNoteToMIDI(d.in)
		if (err == nil) != d.ok {
			t.Errorf("%q: err = %v", d.in, err)
			continue
		}
		if d.ok && n != d.out {
			t.Errorf("%q = %d, expected %d", d.in, n, d.out)
		}
	}
}

func TestNoteName(t *testing.T) {
	for n := 0; n < 128; n++ {
		m, err := music.TextNoteToMIDI(music.NoteName(n))
		if err != nil {
			t.Fatal(err)
		}
		if m != n {
			t.Fatalf("%d -> %q -> %d", n, music.NoteName(n), m)
		}
	}
	if s := music.NoteName(64); s != "E3" {
		t.Fatalf("got %q", s)
	}
}

func TestParseLists(t *testing.T) {
	notes, err := music.ParseNotes("C3, 64,, E4 ,")
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 3 || notes[0] != 60 || notes[1] != 64 || notes[2] != 76 {
		t.Fatalf("notes = %v", notes)
	}
	if _, err = music.ParseNotes("C3, X"); err == nil {
		t.Fatal("invalid note accepted")
	}
	if _, err = music.ParseNotes("200"); err == nil {
		t.Fatal("out of range note accepted")
	}
	vs, err := music.ParseVelocities("100, 0,127")
	if err != nil || len(vs) != 3 || vs[1] != 0 {
		t.Fatalf("velocities = %v, err = %v", vs, err)
	}
	if _, err = music.ParseVelocities("100, loud"); err == nil {
		t.Fatal("invalid velocity accepted")
	}
}

func TestIntervals(t *testing.T) {
	if ms := music.NoteToMs(1, 4, 120); ms != 500 {
		t.Fatalf("quarter note at 120 BPM = %v", ms)
	}
	ms, err := music.TextIntervalToMillis("1/16", 120)
	if err != nil || ms != 125 {
		t.Fatalf("1/16 = %v, err = %v", ms, err)
	}
	for _, bad := range []string{"16", "1/0", "0/4", "a/4"} {
		if _, err = music.TextIntervalToMillis(bad, 120); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
	ivs, err := music.ParseIntervals("1/8, 3/8, 100", 120)
	if err != nil {
		t.Fatal(err)
	}
	if len(ivs) != 3 || ivs[0] != 250 || ivs[1] != 750 || ivs[2] != 100 {
		t.Fatalf("intervals = %v", ivs)
	}
	if _, err = music.ParseIntervals("1/8, 0", 120); err == nil {
		t.Fatal("zero interval accepted")
	}
}

func TestParseSignature(t *testing.T) {
	td := []struct {
		in       string
		num, den int
		ok       bool
	}{
		{"3/4", 3, 4, true},
		{"/8", 4, 8, true},
		{"7/", 7, 4, true},
		{"/", 4, 4, true},
		{"4", 0, 0, false},
		{"x/4", 0, 0, false},
		{"0/4", 0, 0, false},
	}
	for _, d := range td {
		n, m, err := music.ParseSignature(d.in)
		if (err == nil) != d.ok || n != d.num || m != d.den {
			t.Errorf("%q = %d/%d, %v", d.in, n, m, err)
		}
	}
}

func TestFrequency(t *testing.T) {
	if f := music.Frequency(69); f != 440 {
		t.Fatalf("A = %v", f)
	}
	if f := music.Frequency(57); math.Abs(f-220) > 1e-9 {
		t.Fatalf("A-1 octave = %v", f)
	}
}
