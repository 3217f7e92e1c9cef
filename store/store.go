// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package store saves circuit snapshots by name in a sqlite database.
//
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/db47h/circuitry/snapshot"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when loading or deleting a circuit that does not
// exist.
//
var ErrNotFound = errors.New("circuit not found")

// Info describes a saved circuit.
//
type Info struct {
	Name      string
	UpdatedAt time.Time
	Size      int // compressed size in bytes
}

// Store is a circuit store. It is safe for concurrent use.
//
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	log *slog.Logger
}

// Open opens or creates the store at path. The parent directory is created
// if needed.
//
func Open(path string, log *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty store path")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create store directory")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err = initDB(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "init %s", path)
	}
	s := &Store{db: db, log: log}
	if s.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if s.dec, err = zstd.NewReader(nil); err != nil {
		_ = s.enc.Close()
		_ = db.Close()
		return nil, err
	}
	log.Debug("store opened", "path", path)
	return s, nil
}

func initDB(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS circuits (
			name TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.Exec(st); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the store.
//
func (s *Store) Close() error {
	s.dec.Close()
	_ = s.enc.Close()
	return s.db.Close()
}

// Save saves snap under name, replacing any previous version.
//
func (s *Store) Save(ctx context.Context, name string, snap *snapshot.Snapshot) error {
	if name == "" {
		return errors.New("empty circuit name")
	}
	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}
	blob := s.enc.EncodeAll(data, nil)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO circuits(name, data, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, blob, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "save %q", name)
	}
	s.log.Debug("circuit saved", "name", name, "size", len(data), "compressed", len(blob))
	return nil
}

// Load loads the circuit saved under name.
//
func (s *Store) Load(ctx context.Context, name string) (*snapshot.Snapshot, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM circuits WHERE name = ?`, name).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %q", name)
	}
	data, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "decompress %q", name)
	}
	snap, err := snapshot.Decode(data)
	return snap, errors.Wrapf(err, "load %q", name)
}

// List returns the saved circuits sorted by name.
//
func (s *Store) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, updated_at, length(data) FROM circuits ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "list circuits")
	}
	defer rows.Close()
	var list []Info
	for rows.Next() {
		var (
			i  Info
			ms int64
		)
		if err = rows.Scan(&i.Name, &ms, &i.Size); err != nil {
			return nil, errors.Wrap(err, "list circuits")
		}
		i.UpdatedAt = time.UnixMilli(ms)
		list = append(list, i)
	}
	return list, errors.Wrap(rows.Err(), "list circuits")
}

// Delete deletes the circuit saved under name.
//
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM circuits WHERE name = ?`, name)
	if err != nil {
		return errors.Wrapf(err, "delete %q", name)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrap(ErrNotFound, name)
	}
	return nil
}
