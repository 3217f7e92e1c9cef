// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package server exposes a simulation loop to editor clients over a websocket.
//
// Clients send JSON requests:
//
//	{"type": "start"} {"type": "pause"} {"type": "stop"}
//	{"type": "update", "circuit": {...snapshot...}}
//	{"type": "load", "name": "beat"} {"type": "save", "name": "beat"}
//	{"type": "list"}
//
// The server broadcasts state changes and per-tick change batches to every
// client, and replies to save and list requests with the list of saved
// circuits. Failed requests get an error message.
//
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/db47h/circuitry"
	"github.com/db47h/circuitry/snapshot"
	"github.com/db47h/circuitry/store"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	queueSize      = 64
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4 << 20
)

type client struct {
	out     chan []byte
	dropped int
}

// Server is the websocket host of a Loop.
//
type Server struct {
	loop  *circuitry.Loop
	store *store.Store
	base  circuitry.Config
	log   *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	current *snapshot.Snapshot
}

// New returns a new server driving loop. The store may be nil, in which case
// load, save and list requests fail. Snapshots applied to the loop get their
// configuration from base.
//
func New(loop *circuitry.Loop, st *store.Store, base circuitry.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		loop:  loop,
		store: st,
		base:  base,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Publish sends the change batch for ids to every client. It must be called
// from the loop goroutine, usually from the engine's ChangesFn. It never
// blocks: clients that do not keep up lose batches.
//
func (s *Server) Publish(c *circuitry.Circuit, ids []int) {
	s.mu.Lock()
	n := len(s.clients)
	s.mu.Unlock()
	if n == 0 {
		return
	}
	b, err := json.Marshal(NewChanges(c, ids))
	if err != nil {
		s.log.Error("encode changes", "err", err)
		return
	}
	s.broadcast(b)
}

// Apply hands the circuit of snap over to the loop and makes it the current
// circuit, saved by save requests.
//
func (s *Server) Apply(ctx context.Context, snap *snapshot.Snapshot) error {
	blocks, wires := snap.Circuit()
	if err := s.loop.Update(ctx, blocks, wires, snap.Config(s.base)); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()
	s.log.Debug("circuit updated", "blocks", len(blocks), "wires", len(wires))
	return nil
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cl := &client{out: make(chan []byte, queueSize)}
	s.mu.Lock()
	s.clients[cl] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, cl)
		s.mu.Unlock()
	}()
	s.log.Debug("client connected", "remote", r.RemoteAddr)

	go s.write(ctx, conn, cl)

	if st, err := s.loop.State(ctx); err == nil {
		s.reply(cl, &StateMsg{Type: TypeState, State: st.String()})
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("client read failed", "remote", r.RemoteAddr, "err", err)
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			s.replyError(cl, errors.Wrap(err, "bad request"))
			continue
		}
		s.handle(ctx, cl, &req)
	}
	s.log.Debug("client disconnected", "remote", r.RemoteAddr)
}

// write is the only writer of conn.
func (s *Server) write(ctx context.Context, conn *websocket.Conn, cl *client) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case b := <-cl.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				conn.Close()
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (s *Server) handle(ctx context.Context, cl *client, req *Request) {
	var err error
	switch req.Type {
	case TypeStart:
		err = s.loop.Start(ctx)
	case TypePause:
		err = s.loop.Pause(ctx)
	case TypeStop:
		err = s.loop.Stop(ctx)
	case TypeUpdate:
		var snap *snapshot.Snapshot
		if snap, err = snapshot.Decode(req.Circuit); err == nil {
			err = s.Apply(ctx, snap)
		}
	case TypeLoad:
		err = s.load(ctx, req.Name)
	case TypeSave:
		if err = s.save(ctx, req.Name); err == nil {
			err = s.list(ctx, cl)
		}
	case TypeList:
		err = s.list(ctx, cl)
	default:
		err = errors.Errorf("unknown request type %q", req.Type)
	}
	if err != nil {
		s.replyError(cl, err)
		return
	}
	switch req.Type {
	case TypeStart, TypePause, TypeStop, TypeUpdate, TypeLoad:
		s.broadcastState(ctx)
	}
}

func (s *Server) load(ctx context.Context, name string) error {
	if s.store == nil {
		return errors.New("no circuit store")
	}
	snap, err := s.store.Load(ctx, name)
	if err != nil {
		return err
	}
	return s.Apply(ctx, snap)
}

func (s *Server) save(ctx context.Context, name string) error {
	if s.store == nil {
		return errors.New("no circuit store")
	}
	s.mu.Lock()
	snap := s.current
	s.mu.Unlock()
	if snap == nil {
		return errors.New("no circuit to save")
	}
	return s.store.Save(ctx, name, snap)
}

func (s *Server) list(ctx context.Context, cl *client) error {
	if s.store == nil {
		return errors.New("no circuit store")
	}
	infos, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	names := make([]string, len(infos))
	for i := range infos {
		names[i] = infos[i].Name
	}
	s.reply(cl, &CircuitsMsg{Type: TypeCircuits, Names: names})
	return nil
}

func (s *Server) broadcastState(ctx context.Context) {
	st, err := s.loop.State(ctx)
	if err != nil {
		return
	}
	b, err := json.Marshal(&StateMsg{Type: TypeState, State: st.String()})
	if err != nil {
		s.log.Error("encode state", "err", err)
		return
	}
	s.broadcast(b)
}

func (s *Server) broadcast(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cl := range s.clients {
		s.send(cl, b)
	}
}

// send queues b for cl. s.mu must be held.
func (s *Server) send(cl *client, b []byte) {
	select {
	case cl.out <- b:
		if cl.dropped > 0 {
			s.log.Warn("slow client caught up", "dropped", cl.dropped)
			cl.dropped = 0
		}
	default:
		if cl.dropped == 0 {
			s.log.Warn("slow client, dropping messages")
		}
		cl.dropped++
	}
}

func (s *Server) reply(cl *client, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("encode reply", "err", err)
		return
	}
	s.mu.Lock()
	s.send(cl, b)
	s.mu.Unlock()
}

func (s *Server) replyError(cl *client, err error) {
	s.log.Debug("request failed", "err", err)
	s.reply(cl, &ErrorMsg{Type: TypeError, Message: err.Error()})
}
