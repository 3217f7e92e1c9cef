// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/db47h/circuitry"
	"github.com/db47h/circuitry/blocklib"
	"github.com/db47h/circuitry/server"
	"github.com/db47h/circuitry/store"
	"github.com/gorilla/websocket"
)

const circuit = `{
  "idCounter": 2,
  "bpm": 600,
  "blocks": [
    {"id": 0, "name": "Clock", "interval": 1},
    {"id": 1, "name": "Counter", "limit": 4}
  ],
  "wires": [
    {"id": 2, "start": {"blockId": 0, "side": "right"}, "end": {"blockId": 1, "side": "left"}}
  ]
}`

type message struct {
	Type    string               `json:"type"`
	State   string               `json:"state"`
	Names   []string             `json:"names"`
	Message string               `json:"message"`
	Tick    uint64               `json:"tick"`
	Blocks  []server.BlockChange `json:"blocks"`
	Wires   []server.WireChange  `json:"wires"`
}

type conn struct {
	t *testing.T
	*websocket.Conn
}

func (c conn) send(req string) {
	c.t.Helper()
	if err := c.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		c.t.Fatal(err)
	}
}

// expect reads messages until one satisfies match. Change batches are skipped
// unless match accepts them.
func (c conn) expect(match func(m *message) bool) *message {
	c.t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, b, err := c.ReadMessage()
		if err != nil {
			c.t.Fatal(err)
		}
		m := new(message)
		if err = json.Unmarshal(b, m); err != nil {
			c.t.Fatal(err)
		}
		if match(m) {
			return m
		}
		if m.Type == server.TypeError {
			c.t.Fatalf("unexpected error: %s", m.Message)
		}
	}
}

func state(s string) func(*message) bool {
	return func(m *message) bool { return m.Type == server.TypeState && m.State == s }
}

func setup(t *testing.T, st *store.Store) conn {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var (
		e   *circuitry.Engine
		srv *server.Server
	)
	e = circuitry.NewEngine(blocklib.Registry(), circuitry.DefaultConfig(),
		circuitry.WithLogger(log),
		circuitry.WithChanges(func(ids []int) { srv.Publish(e.Circuit(), ids) }))
	l := circuitry.NewLoop(e, circuitry.WithLoopLogger(log))
	srv = server.New(l, st, circuitry.DefaultConfig(), log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	ts := httptest.NewServer(srv)
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ws.Close()
		ts.Close()
		cancel()
		<-done
	})
	c := conn{t, ws}
	c.expect(state("stopped"))
	return c
}

func TestServer(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "circuits.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	c := setup(t, st)

	c.send(`{"type": "update", "circuit": ` + circuit + `}`)
	c.expect(state("stopped"))
	c.send(`{"type": "start"}`)
	c.expect(state("running"))

	m := c.expect(func(m *message) bool {
		if m.Type != server.TypeChanges {
			return false
		}
		for _, b := range m.Blocks {
			if b.ID == 1 && b.Fields["current"] > 0 {
				return true
			}
		}
		return false
	})
	if m.Tick == 0 {
		t.Errorf("tick = 0")
	}

	c.send(`{"type": "save", "name": "pulse"}`)
	m = c.expect(func(m *message) bool { return m.Type == server.TypeCircuits })
	if len(m.Names) != 1 || m.Names[0] != "pulse" {
		t.Errorf("circuits = %v", m.Names)
	}

	c.send(`{"type": "pause"}`)
	c.expect(state("paused"))
	c.send(`{"type": "stop"}`)
	m = c.expect(func(m *message) bool { return m.Type == server.TypeChanges })
	for _, b := range m.Blocks {
		if b.Gate || b.Fields["current"] != 0 {
			t.Errorf("block %d not reset on stop: %+v", b.ID, b)
		}
	}
	c.expect(state("stopped"))

	c.send(`{"type": "load", "name": "pulse"}`)
	c.expect(state("stopped"))
	c.send(`{"type": "list"}`)
	m = c.expect(func(m *message) bool { return m.Type == server.TypeCircuits })
	if len(m.Names) != 1 {
		t.Errorf("circuits = %v", m.Names)
	}
}

func TestServer_errors(t *testing.T) {
	isErr := func(m *message) bool { return m.Type == server.TypeError }
	c := setup(t, nil)
	for _, req := range []string{
		`{"type": "pause"}`,
		`{"type": "stop"}`,
		`{"type": "launch"}`,
		`not json`,
		`{"type": "update"}`,
		`{"type": "update", "circuit": {"blocks": [{"id": 0, "name": "Blender"}], "wires": []}}`,
		`{"type": "save", "name": "x"}`,
		`{"type": "load", "name": "x"}`,
		`{"type": "list"}`,
	} {
		c.send(req)
		if m := c.expect(isErr); m.Message == "" {
			t.Errorf("%s: empty error message", req)
		}
	}
	c.send(`{"type": "start"}`)
	c.expect(state("running"))
	c.send(`{"type": "start"}`)
	c.expect(isErr)
}
