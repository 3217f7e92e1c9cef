// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuittest

import (
	"sync"
	"time"
)

// Clock is a manual circuitry.Clock.
//
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to t.
//
func NewClock(t time.Time) *Clock { return &Clock{now: t} }

// Now returns the clock's time.
//
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
//
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Ticker is a manual circuitry.Ticker. Its channel is unbuffered: Fire returns
// once the loop has received the tick.
//
type Ticker struct {
	ch chan time.Time

	mu      sync.Mutex
	period  time.Duration
	running bool
	resets  int
}

// NewTicker returns a stopped ticker.
//
func NewTicker() *Ticker { return &Ticker{ch: make(chan time.Time)} }

// C implements circuitry.Ticker.
//
func (t *Ticker) C() <-chan time.Time { return t.ch }

// Reset implements circuitry.Ticker.
//
func (t *Ticker) Reset(d time.Duration) {
	t.mu.Lock()
	t.period, t.running = d, true
	t.resets++
	t.mu.Unlock()
}

// Stop implements circuitry.Ticker.
//
func (t *Ticker) Stop() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}

// State returns the last period set by Reset, whether the ticker is running
// and the number of calls to Reset.
//
func (t *Ticker) State() (period time.Duration, running bool, resets int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period, t.running, t.resets
}

// Fire delivers a tick at time now.
//
func (t *Ticker) Fire(now time.Time) {
	t.ch <- now
}
