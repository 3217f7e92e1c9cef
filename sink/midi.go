// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package sink

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
)

// DefaultQueueSize is the default capacity of a MIDI output queue.
//
const DefaultQueueSize = 256

// A Sender sends a MIDI message to a device.
//
type Sender func(msg midi.Message) error

// Message converts a note event to a MIDI message. Channels are numbered from
// 1 to 16; out of range values are clamped.
//
func Message(on bool, channel, note, velocity int) midi.Message {
	ch := uint8(clamp(channel-1, 0, 15))
	key := uint8(clamp(note, 0, 127))
	if !on {
		return midi.NoteOff(ch, key)
	}
	return midi.NoteOn(ch, key, uint8(clamp(velocity, 0, 127)))
}

// MIDI sends notes to a MIDI output from its own goroutine.
//
type MIDI struct {
	send    Sender
	queue   chan midi.Message
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
	log     *slog.Logger
}

// NewMIDI returns a MIDI sink sending through send, with a queue of the given
// size.
//
func NewMIDI(send Sender, size int, log *slog.Logger) *MIDI {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if log == nil {
		log = slog.Default()
	}
	m := &MIDI{send: send, queue: make(chan midi.Message, size), log: log}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loop()
	}()
	return m
}

// OpenPort opens the MIDI output port with the given name. A MIDI driver must
// have been registered, typically by importing
// gitlab.com/gomidi/midi/v2/drivers/rtmididrv.
//
func OpenPort(name string, log *slog.Logger) (*MIDI, error) {
	out, err := midi.FindOutPort(name)
	if err != nil {
		return nil, errors.Wrapf(err, "MIDI output %q", name)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, errors.Wrapf(err, "open MIDI output %q", name)
	}
	if log != nil {
		log.Info("MIDI output connected", "device", out.String())
	}
	return NewMIDI(send, DefaultQueueSize, log), nil
}

func (m *MIDI) loop() {
	for msg := range m.queue {
		if err := m.send(msg); err != nil {
			m.log.Warn("MIDI send failed", "msg", msg.String(), "err", err)
		}
	}
}

// MidiOut queues a note event. It never blocks: events are dropped when the
// queue is full. MidiOut must not be called after Close.
//
func (m *MIDI) MidiOut(on bool, channel, note, velocity int) {
	msg := Message(on, channel, note, velocity)
	select {
	case m.queue <- msg:
	default:
		if m.dropped.Add(1) == 1 {
			m.log.Warn("MIDI queue full, dropping events")
		}
	}
}

// Dropped returns the number of events dropped so far.
//
func (m *MIDI) Dropped() uint64 { return m.dropped.Load() }

// Close sends the queued events and stops the sink.
//
func (m *MIDI) Close() {
	m.once.Do(func() {
		close(m.queue)
		m.wg.Wait()
	})
}
