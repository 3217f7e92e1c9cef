// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package sink

import (
	"math"
	"sync"
	"time"

	"github.com/db47h/circuitry/music"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/pkg/errors"
)

// DefaultSampleRate is the sample rate used by the preview synthesizer.
//
const DefaultSampleRate = beep.SampleRate(44100)

const voiceLevel = 0.2

// Synth is a minimal preview synthesizer: every held note plays a sine wave.
// It implements beep.Streamer.
//
type Synth struct {
	sr    beep.SampleRate
	mu    sync.Mutex
	mixer beep.Mixer
	voice map[[2]int]*beep.Ctrl // by channel and note
}

// NewSynth returns a synthesizer for the given sample rate.
//
func NewSynth(sr beep.SampleRate) *Synth {
	return &Synth{sr: sr, voice: make(map[[2]int]*beep.Ctrl)}
}

// Play initializes the speaker and starts playing s.
//
func (s *Synth) Play() error {
	if err := speaker.Init(s.sr, s.sr.N(100*time.Millisecond)); err != nil {
		return errors.Wrap(err, "init speaker")
	}
	speaker.Play(s)
	return nil
}

// MidiOut starts or stops a voice.
//
func (s *Synth) MidiOut(on bool, channel, note, velocity int) {
	k := [2]int{channel, note}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.voice[k]; v != nil {
		v.Streamer = nil
		delete(s.voice, k)
	}
	if !on || velocity <= 0 {
		return
	}
	ctrl := &beep.Ctrl{Streamer: newSine(s.sr, music.Frequency(note))}
	s.voice[k] = ctrl
	s.mixer.Add(&effects.Volume{
		Streamer: ctrl,
		Base:     2,
		Volume:   math.Log2(float64(clamp(velocity, 1, 127)) / 127),
	})
}

// Voices returns the number of notes being played.
//
func (s *Synth) Voices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voice)
}

// Stream implements beep.Streamer. It never drains.
//
func (s *Synth) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		samples[i] = [2]float64{}
	}
	s.mu.Lock()
	s.mixer.Stream(samples)
	s.mu.Unlock()
	return len(samples), true
}

// Err implements beep.Streamer.
//
func (s *Synth) Err() error { return nil }

type sine struct {
	step  float64
	phase float64
}

func newSine(sr beep.SampleRate, freq float64) *sine {
	return &sine{step: freq / float64(sr)}
}

func (s *sine) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		v := voiceLevel * math.Sin(2*math.Pi*s.phase)
		samples[i][0], samples[i][1] = v, v
		s.phase += s.step
		if s.phase >= 1 {
			s.phase--
		}
	}
	return len(samples), true
}

func (s *sine) Err() error { return nil }
