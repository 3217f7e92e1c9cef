// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuitry

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
)

// ErrLoopClosed is returned by Loop commands once Run has returned.
//
var ErrLoopClosed = errors.New("loop closed")

// A Clock returns the current time.
//
type Clock interface {
	Now() time.Time
}

// A Ticker delivers periodic ticks. Its channel must not fire while stopped.
//
type Ticker interface {
	C() <-chan time.Time
	// Reset stops the ticker and restarts it with period d.
	Reset(d time.Duration)
	Stop()
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type systemTicker struct {
	t *time.Ticker
}

func newSystemTicker() Ticker {
	t := time.NewTicker(time.Hour)
	t.Stop()
	return systemTicker{t}
}

func (t systemTicker) C() <-chan time.Time { return t.t.C }
func (t systemTicker) Reset(d time.Duration) { t.t.Reset(d) }
func (t systemTicker) Stop() { t.t.Stop() }

// A LoopOption configures a Loop.
//
type LoopOption func(*Loop)

// WithClock sets the clock used to measure elapsed time.
//
func WithClock(c Clock) LoopOption {
	return func(l *Loop) { l.clock = c }
}

// WithTicker sets the ticker driving the simulation.
//
func WithTicker(t Ticker) LoopOption {
	return func(l *Loop) { l.ticker = t }
}

// WithLoopLogger sets the loop logger.
//
func WithLoopLogger(log *slog.Logger) LoopOption {
	return func(l *Loop) { l.log = log }
}

// Loop drives an Engine at the tempo set by its configuration.
//
// The engine is owned by the goroutine calling Run. Other goroutines act on it
// through the command methods, which are applied between two ticks.
//
type Loop struct {
	e      *Engine
	clock  Clock
	ticker Ticker
	log    *slog.Logger

	cmds chan func()
	done chan struct{}

	last     time.Time // time of the last tick, or of the start
	pausedAt time.Time
	interval time.Duration
}

// NewLoop returns a new loop driving e.
//
func NewLoop(e *Engine, opts ...LoopOption) *Loop {
	l := &Loop{
		e:     e,
		clock: systemClock{},
		log:   slog.Default(),
		cmds:  make(chan func()),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	if l.ticker == nil {
		l.ticker = newSystemTicker()
	}
	return l
}

// Run runs the loop until ctx is cancelled. A simulation still running at that
// point is stopped, releasing any held note.
//
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.ticker.Stop()
	l.interval = l.e.cfg.TickInterval()
	for {
		select {
		case <-ctx.Done():
			if l.e.State() != Stopped {
				if err := l.e.Stop(); err != nil {
					l.log.Error("stop simulation", "err", err)
				}
			}
			return ctx.Err()
		case cmd := <-l.cmds:
			prev := l.e.State()
			cmd()
			l.sync(prev)
		case <-l.ticker.C():
			if l.e.State() != Running {
				continue
			}
			now := l.clock.Now()
			elapsed := float64(now.Sub(l.last)) / float64(time.Millisecond)
			l.last = now
			l.e.Step(elapsed)
		}
	}
}

// sync arms or stops the ticker after a command moved the engine from state
// prev to its current state, or changed its tempo.
func (l *Loop) sync(prev State) {
	cur := l.e.State()
	interval := l.e.cfg.TickInterval()
	now := l.clock.Now()
	switch {
	case cur == Running && prev == Stopped:
		l.last = now
		l.arm(interval)
	case cur == Running && prev == Paused:
		// time spent paused does not count
		l.last = now.Add(-l.pausedAt.Sub(l.last))
		l.arm(interval)
	case cur == Running && interval != l.interval:
		l.arm(interval)
	case cur != Running && prev == Running:
		l.ticker.Stop()
		if cur == Paused {
			l.pausedAt = now
		}
	}
	l.interval = interval
}

func (l *Loop) arm(d time.Duration) {
	if d <= 0 {
		l.ticker.Stop()
		return
	}
	l.ticker.Reset(d)
	l.log.Debug("ticker armed", "interval", d)
}

// Do runs fn on the loop goroutine, between two ticks, and returns its error.
// fn must not retain the engine.
//
func (l *Loop) Do(ctx context.Context, fn func(e *Engine) error) error {
	res := make(chan error, 1)
	cmd := func() { res <- fn(l.e) }
	select {
	case l.cmds <- cmd:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-res
}

// Start starts or resumes the simulation.
//
func (l *Loop) Start(ctx context.Context) error {
	return l.Do(ctx, (*Engine).Start)
}

// Pause pauses the simulation.
//
func (l *Loop) Pause(ctx context.Context) error {
	return l.Do(ctx, (*Engine).Pause)
}

// Stop stops the simulation.
//
func (l *Loop) Stop(ctx context.Context) error {
	return l.Do(ctx, (*Engine).Stop)
}

// Update validates cfg and hands the block and wire lists over to the engine.
// The lists must not be modified afterwards.
//
func (l *Loop) Update(ctx context.Context, blocks []Block, wires []Wire, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return l.Do(ctx, func(e *Engine) error {
		e.Update(blocks, wires, cfg)
		return nil
	})
}

// State returns the engine state.
//
func (l *Loop) State(ctx context.Context) (State, error) {
	var s State
	err := l.Do(ctx, func(e *Engine) error {
		s = e.State()
		return nil
	})
	return s, err
}
