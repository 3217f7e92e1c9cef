// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package sink_test

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/db47h/circuitry/sink"
	"gitlab.com/gomidi/midi/v2"
)

func TestMessage(t *testing.T) {
	var ch, key, vel uint8
	if !sink.Message(true, 1, 64, 100).GetNoteStart(&ch, &key, &vel) || ch != 0 || key != 64 || vel != 100 {
		t.Errorf("note on: %d %d %d", ch, key, vel)
	}
	if !sink.Message(false, 16, 60, 100).GetNoteEnd(&ch, &key) || ch != 15 || key != 60 {
		t.Errorf("note off: %d %d", ch, key)
	}
	if !sink.Message(true, 40, 300, 1000).GetNoteStart(&ch, &key, &vel) || ch != 15 || key != 127 || vel != 127 {
		t.Errorf("clamped note on: %d %d %d", ch, key, vel)
	}
}

func TestMIDI(t *testing.T) {
	var (
		mu   sync.Mutex
		msgs []midi.Message
	)
	m := sink.NewMIDI(func(msg midi.Message) error {
		mu.Lock()
		msgs = append(msgs, msg)
		mu.Unlock()
		return nil
	}, 0, nil)
	m.MidiOut(true, 2, 61, 90)
	m.MidiOut(false, 2, 61, 90)
	m.Close()

	if len(msgs) != 2 {
		t.Fatalf("sent %v", msgs)
	}
	var ch, key, vel uint8
	if !msgs[0].GetNoteStart(&ch, &key, &vel) || ch != 1 || key != 61 || vel != 90 {
		t.Errorf("first message %v", msgs[0])
	}
	if !msgs[1].GetNoteEnd(&ch, &key) || key != 61 {
		t.Errorf("second message %v", msgs[1])
	}
}

func TestMIDI_full(t *testing.T) {
	got, release := make(chan struct{}), make(chan struct{})
	var buf bytes.Buffer
	m := sink.NewMIDI(func(midi.Message) error {
		got <- struct{}{}
		<-release
		return nil
	}, 1, slog.New(slog.NewTextHandler(&buf, nil)))

	m.MidiOut(true, 1, 60, 100)
	<-got // the sender is busy
	m.MidiOut(false, 1, 60, 0)
	m.MidiOut(true, 1, 62, 100)
	if n := m.Dropped(); n != 1 {
		t.Fatalf("dropped %d events", n)
	}
	close(release)
	go func() {
		for range got {
		}
	}()
	m.Close()
	close(got)
	if !strings.Contains(buf.String(), "queue full") {
		t.Fatalf("log: %q", buf.String())
	}
}

func TestSynth(t *testing.T) {
	s := sink.NewSynth(sink.DefaultSampleRate)
	samples := make([][2]float64, 512)

	n, ok := s.Stream(samples)
	if n != len(samples) || !ok {
		t.Fatal("synth drained")
	}
	for _, v := range samples {
		if v != [2]float64{} {
			t.Fatal("silent synth produced sound")
		}
	}

	s.MidiOut(true, 1, 69, 127)
	s.MidiOut(true, 2, 69, 64)
	if s.Voices() != 2 {
		t.Fatalf("%d voices", s.Voices())
	}
	s.Stream(samples)
	var peak float64
	for _, v := range samples {
		if v[0] > peak {
			peak = v[0]
		}
	}
	if peak == 0 {
		t.Fatal("no sound")
	}

	s.MidiOut(false, 1, 69, 0)
	s.MidiOut(false, 2, 69, 0)
	s.MidiOut(false, 3, 10, 0)
	if s.Voices() != 0 {
		t.Fatalf("%d voices after note off", s.Voices())
	}
	s.Stream(samples)
	s.Stream(samples)
	for _, v := range samples {
		if v != [2]float64{} {
			t.Fatal("released voices still playing")
		}
	}
}

func TestTee(t *testing.T) {
	var a, b int
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	fn := sink.Tee(func(bool, int, int, int) { a++ }, nil, func(bool, int, int, int) { b++ }, sink.Log(log))
	fn(true, 1, 64, 100)
	fn(false, 1, 64, 100)
	if a != 2 || b != 2 {
		t.Fatalf("a = %d, b = %d", a, b)
	}
	if out := buf.String(); !strings.Contains(out, "note=E3") || !strings.Contains(out, "note off") {
		t.Fatalf("log: %q", out)
	}
}
