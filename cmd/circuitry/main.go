// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command circuitry runs a circuit simulation and serves it to editor clients
// over a websocket.
//
// Usage:
//
//	circuitry [-config file] [-db file] [-circuit name|file.json] [-listen addr]
//	          [-midi-out port] [-synth] [-play] [-debug]
//
// Notes are sent to the given MIDI output port and/or played by the built-in
// synthesizer. Without either, they are logged at debug level.
//
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/db47h/circuitry"
	"github.com/db47h/circuitry/blocklib"
	"github.com/db47h/circuitry/internal/config"
	"github.com/db47h/circuitry/server"
	"github.com/db47h/circuitry/sink"
	"github.com/db47h/circuitry/snapshot"
	"github.com/db47h/circuitry/store"
	"github.com/gopxl/beep"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/term"
)

var logger *slog.Logger

func initLogger(level slog.Level) {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}
	var h slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger = slog.New(h)
	slog.SetDefault(logger)
}

type options struct {
	config  string
	db      string
	circuit string
	listen  string
	midiOut string
	synth   bool
	play    bool
	debug   bool
}

func main() {
	var o options
	flag.StringVar(&o.config, "config", "", "configuration `file`")
	flag.StringVar(&o.db, "db", "", "circuit database `file` (overrides store.path)")
	flag.StringVar(&o.circuit, "circuit", "", "circuit to load: a saved circuit `name` or a JSON snapshot file")
	flag.StringVar(&o.listen, "listen", "", "websocket listen `address` (overrides server.listen)")
	flag.StringVar(&o.midiOut, "midi-out", "", "MIDI output `port` (overrides midi.output)")
	flag.BoolVar(&o.synth, "synth", false, "play notes on the built-in synthesizer")
	flag.BoolVar(&o.play, "play", false, "start the simulation once the circuit is loaded")
	flag.BoolVar(&o.debug, "debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := loadConfig(&o)
	if err != nil {
		initLogger(slog.LevelInfo)
		logger.Error("configuration failed", "err", err)
		os.Exit(2)
	}
	initLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, &o, &cfg); err != nil {
		logger.Error("circuitry failed", "err", err)
		os.Exit(1)
	}
}

func loadConfig(o *options) (config.Config, error) {
	cfg := config.Default()
	if o.config != "" {
		var err error
		if cfg, err = config.Load(o.config); err != nil {
			return cfg, err
		}
	}
	if o.db != "" {
		cfg.Store.Path = o.db
	}
	if o.listen != "" {
		cfg.Server.Listen = o.listen
	}
	if o.midiOut != "" {
		cfg.MIDI.Output = o.midiOut
	}
	if o.synth {
		cfg.MIDI.Synth = true
	}
	if o.debug {
		cfg.Log.Level = slog.LevelDebug
	}
	return cfg, nil
}

func run(ctx context.Context, o *options, cfg *config.Config) error {
	logger.Info("circuitry starting",
		"bpm", cfg.Engine.BPM,
		"ticks_per_beat", cfg.Engine.TicksPerBeat,
		"gate_length_ms", cfg.Engine.GateLength,
		"store", cfg.Store.Path,
		"listen", cfg.Server.Listen)

	st, err := store.Open(cfg.Store.Path, logger.With("component", "store"))
	if err != nil {
		return err
	}
	defer st.Close()

	out, closeSinks, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	var (
		e   *circuitry.Engine
		srv *server.Server
	)
	e = circuitry.NewEngine(blocklib.Registry(), cfg.Engine,
		circuitry.WithLogger(logger.With("component", "engine")),
		circuitry.WithMidiOut(out),
		circuitry.WithChanges(func(ids []int) { srv.Publish(e.Circuit(), ids) }))
	loop := circuitry.NewLoop(e, circuitry.WithLoopLogger(logger.With("component", "loop")))
	srv = server.New(loop, st, cfg.Engine, logger.With("component", "server"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	if o.circuit != "" {
		snap, err := loadCircuit(ctx, st, o.circuit)
		if err != nil {
			return err
		}
		if err = srv.Apply(ctx, snap); err != nil {
			return err
		}
		logger.Info("circuit loaded", "circuit", o.circuit, "blocks", len(snap.Blocks), "wires", len(snap.Wires))
		if o.play {
			if err = loop.Start(ctx); err != nil {
				return err
			}
		}
	}

	var hs *http.Server
	if cfg.Server.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/ws", srv)
		hs = &http.Server{Addr: cfg.Server.Listen, Handler: mux}
		go func() {
			logger.Info("listening", "addr", cfg.Server.Listen)
			if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server failed", "err", err)
				cancel()
			}
		}()
	}

	err = <-loopDone
	if hs != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(sctx)
	}
	if errors.Cause(err) == context.Canceled {
		logger.Info("circuitry stopped")
		return nil
	}
	return err
}

func loadCircuit(ctx context.Context, st *store.Store, name string) (*snapshot.Snapshot, error) {
	if !strings.HasSuffix(name, ".json") {
		return st.Load(ctx, name)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read circuit")
	}
	snap, err := snapshot.Decode(data)
	return snap, errors.Wrap(err, name)
}

func openSinks(cfg *config.Config) (circuitry.MidiOutFn, func(), error) {
	fns := []circuitry.MidiOutFn{sink.Log(logger.With("component", "notes"))}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if cfg.MIDI.Output != "" {
		m, err := sink.OpenPort(cfg.MIDI.Output, logger.With("component", "midi"))
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, midi.CloseDriver, m.Close)
		fns = append(fns, m.MidiOut)
	}
	if cfg.MIDI.Synth {
		s := sink.NewSynth(beep.SampleRate(44100))
		if err := s.Play(); err != nil {
			closeAll()
			return nil, nil, err
		}
		fns = append(fns, s.MidiOut)
	}
	return sink.Tee(fns...), closeAll, nil
}
