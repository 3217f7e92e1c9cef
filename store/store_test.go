// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/db47h/circuitry"
	"github.com/db47h/circuitry/snapshot"
	"github.com/db47h/circuitry/store"
	"github.com/pkg/errors"
)

func open(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "db", "circuits.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(limit int) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		IDCounter: 3,
		BPM:       140,
		Blocks: []snapshot.Block{
			{Block: circuitry.Block{ID: 0, Kind: circuitry.KindClock, Active: true, Ports: circuitry.DefaultPorts}},
			{Block: circuitry.Block{ID: 1, Kind: circuitry.KindCounter, Active: true, Ports: circuitry.DefaultPorts,
				State: map[circuitry.Field]int{circuitry.FieldLimit: limit}}},
		},
		Wires: []snapshot.Wire{
			{Wire: circuitry.Wire{ID: 2, Start: circuitry.PortRef{Block: 0, Side: circuitry.Right}, End: circuitry.PortRef{Block: 1, Side: circuitry.Left}}},
		},
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := open(t)

	if err := s.Save(ctx, "beat", sample(4)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "arp", sample(8)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "beat", sample(16)); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Load(ctx, "beat")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if snap.BPM != 140 || len(snap.Blocks) != 2 || snap.Blocks[1].State[circuitry.FieldLimit] != 16 {
		t.Fatalf("loaded %+v", snap)
	}
	if w := snap.Wires[0]; w.End.Side != circuitry.Left {
		t.Fatalf("wire %+v", w)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "arp" || list[1].Name != "beat" || list[0].Size == 0 || list[0].UpdatedAt.IsZero() {
		t.Fatalf("list = %+v", list)
	}

	if err = s.Delete(ctx, "arp"); err != nil {
		t.Fatal(err)
	}
	if _, err = s.Load(ctx, "arp"); errors.Cause(err) != store.ErrNotFound {
		t.Fatalf("load deleted circuit: %v", err)
	}
	if err = s.Delete(ctx, "arp"); errors.Cause(err) != store.ErrNotFound {
		t.Fatalf("delete missing circuit: %v", err)
	}
	if err = s.Save(ctx, "", sample(1)); err == nil {
		t.Fatal("empty name accepted")
	}
}

func TestStore_reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "circuits.db")
	s, err := store.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Save(ctx, "keep", sample(5)); err != nil {
		t.Fatal(err)
	}
	if err = s.Close(); err != nil {
		t.Fatal(err)
	}
	s, err = store.Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	snap, err := s.Load(ctx, "keep")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Blocks[1].State[circuitry.FieldLimit] != 5 {
		t.Fatalf("loaded %+v", snap)
	}
}
