// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package circuitry_test

import (
	"context"
	"testing"
	"time"

	"github.com/db47h/circuitry"
	"github.com/db47h/circuitry/blocklib"
	"github.com/db47h/circuitry/circuittest"
)

type loopTest struct {
	*testing.T
	clock  *circuittest.Clock
	ticker *circuittest.Ticker
	loop   *circuitry.Loop
	engine *circuitry.Engine
	blocks []circuitry.Block
	cancel context.CancelFunc
	done   chan error
}

func startLoop(t *testing.T) *loopTest {
	var b circuittest.Builder
	b.Add(circuitry.KindClock, nil)
	lt := &loopTest{
		T:      t,
		clock:  circuittest.NewClock(time.Unix(1000, 0)),
		ticker: circuittest.NewTicker(),
		engine: newEngine(t, blocklib.Registry(), &b),
		blocks: b.Blocks(),
		done:   make(chan error, 1),
	}
	lt.loop = circuitry.NewLoop(lt.engine, circuitry.WithClock(lt.clock), circuitry.WithTicker(lt.ticker))
	var ctx context.Context
	ctx, lt.cancel = context.WithCancel(context.Background())
	go func() { lt.done <- lt.loop.Run(ctx) }()
	return lt
}

func (lt *loopTest) tick(d time.Duration) {
	lt.clock.Advance(d)
	lt.ticker.Fire(lt.clock.Now())
}

func (lt *loopTest) counters() (ticks uint64, elapsed float64) {
	lt.Helper()
	err := lt.loop.Do(context.Background(), func(e *circuitry.Engine) error {
		ticks, elapsed = e.Circuit().Ticks(), e.Circuit().Elapsed()
		return nil
	})
	if err != nil {
		lt.Fatal(err)
	}
	return
}

func (lt *loopTest) expect(ticks uint64, elapsed float64) {
	lt.Helper()
	if tk, el := lt.counters(); tk != ticks || el != elapsed {
		lt.Fatalf("ticks = %d, elapsed = %v; expected %d, %v", tk, el, ticks, elapsed)
	}
}

func (lt *loopTest) ticking(exp bool) {
	lt.Helper()
	if _, running, _ := lt.ticker.State(); running != exp {
		lt.Fatalf("ticker running = %v, expected %v", running, exp)
	}
}

func TestLoop(t *testing.T) {
	lt := startLoop(t)
	ctx := context.Background()
	defer lt.cancel()

	if err := lt.loop.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if d, running, _ := lt.ticker.State(); !running || d != 125*time.Millisecond {
		t.Fatalf("ticker: period = %v, running = %v", d, running)
	}
	lt.tick(125 * time.Millisecond)
	lt.tick(100 * time.Millisecond)
	lt.expect(2, 225)

	// time spent paused is not counted
	lt.clock.Advance(30 * time.Millisecond)
	if err := lt.loop.Pause(ctx); err != nil {
		t.Fatal(err)
	}
	lt.ticking(false)
	lt.tick(time.Hour)
	lt.expect(2, 225)
	if err := lt.loop.Start(ctx); err != nil {
		t.Fatal(err)
	}
	lt.ticking(true)
	lt.tick(50 * time.Millisecond)
	lt.expect(3, 305)

	// tempo change
	cfg := circuitry.DefaultConfig()
	cfg.BPM = 60
	if err := lt.loop.Update(ctx, lt.blocks, nil, cfg); err != nil {
		t.Fatal(err)
	}
	if d, running, resets := lt.ticker.State(); !running || d != 250*time.Millisecond || resets != 3 {
		t.Fatalf("ticker: period = %v, running = %v, resets = %d", d, running, resets)
	}

	if err := lt.loop.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	lt.ticking(false)
	if s, err := lt.loop.State(ctx); err != nil || s != circuitry.Stopped {
		t.Fatalf("state = %v, err = %v", s, err)
	}
	if err := lt.loop.Stop(ctx); err == nil {
		t.Fatal("stopping a stopped loop must fail")
	}
}

func TestLoop_invalidConfig(t *testing.T) {
	lt := startLoop(t)
	defer lt.cancel()
	cfg := circuitry.DefaultConfig()
	cfg.BPM = 0
	if err := lt.loop.Update(context.Background(), nil, nil, cfg); err == nil {
		t.Fatal("invalid config accepted")
	}
	if s, _ := lt.loop.State(context.Background()); s != circuitry.Stopped {
		t.Fatalf("state = %v", s)
	}
}

func TestLoop_cancel(t *testing.T) {
	lt := startLoop(t)
	if err := lt.loop.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	lt.cancel()
	if err := <-lt.done; err != context.Canceled {
		t.Fatalf("Run returned %v", err)
	}
	if lt.engine.State() != circuitry.Stopped {
		t.Fatalf("engine %v after cancel", lt.engine.State())
	}
	if err := lt.loop.Start(context.Background()); err != circuitry.ErrLoopClosed {
		t.Fatalf("command after close: %v", err)
	}
}
