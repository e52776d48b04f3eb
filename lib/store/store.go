// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package store persists hash records to SQLite: one row per logical
// path, one nullable BLOB column per catalog algorithm. A row always
// reflects the most recent run that touched its path — upserts
// overwrite every algorithm column, nulling the ones the run did not
// enable.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/meemo/hasher/lib/compress"
	"github.com/meemo/hasher/lib/digest"
	"github.com/meemo/hasher/lib/record"
	"github.com/meemo/hasher/lib/sink"
	"github.com/meemo/hasher/lib/source"
	"github.com/meemo/hasher/lib/sqlitepool"
)

// ErrNotFound is returned by Get for paths with no stored row.
var ErrNotFound = errors.New("store: path not found")

// Table names come from configuration and are spliced into SQL text,
// so they are restricted to plain identifiers.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the SQLite database file.
	Path string

	// Table is the table name. Defaults to "hashes".
	Table string

	// WAL selects write-ahead logging for the database.
	WAL bool

	// PoolSize is passed through to the connection pool.
	PoolSize int

	Logger *slog.Logger
}

// Row is one stored record.
type Row struct {
	Path     string
	Size     int64
	HasSize  bool
	HashedAt string
	Digests  digest.Set
}

// Store is a hash-record sink backed by SQLite. It also serves
// verify-time lookups.
type Store struct {
	pool  *sqlitepool.Pool
	table string
}

// Open opens (creating if necessary) the database and ensures the
// table exists with one BLOB column per catalog algorithm.
func Open(cfg Config) (*Store, error) {
	table := cfg.Table
	if table == "" {
		table = "hashes"
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("store: invalid table name %q", table)
	}

	schema := schemaFor(table)
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		WAL:      cfg.WAL,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.pool.Close() }

// Name implements sink.Sink.
func (s *Store) Name() string { return "store" }

// Validate implements sink.Sink.
func (s *Store) Validate(rec *record.Hash) error {
	if rec.Path == "" {
		return fmt.Errorf("record has no path")
	}
	if len(rec.Digests) == 0 {
		return fmt.Errorf("%s: record has no digests", rec.Path)
	}
	for algorithm := range rec.Digests {
		if !algorithm.Valid() {
			return fmt.Errorf("%s: digest for unknown algorithm %d", rec.Path, algorithm)
		}
	}
	return nil
}

// Write implements sink.Sink. It upserts the record's row, and — when
// the record carries a decompressed digest set — a second row keyed by
// the path with its codec suffix stripped. Both rows land in one
// transaction. Busy and locked errors come back marked transient so
// the router retries them.
func (s *Store) Write(ctx context.Context, rec *record.Hash) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return classify(err)
	}
	defer s.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return classify(err)
	}
	defer endFn(&err)

	if err = s.upsert(conn, rec.Path, rec.Size, rec.Size != source.SizeUnknown, rec.Time, rec.Digests); err != nil {
		err = classify(err)
		return err
	}
	if len(rec.Decompressed) > 0 {
		// The decoded rendition's length is only known if it was
		// streamed to disk, which the stored record does not track.
		stripped := compress.StripSuffix(rec.Path)
		if err = s.upsert(conn, stripped, source.SizeUnknown, false, rec.Time, rec.Decompressed); err != nil {
			err = classify(err)
			return err
		}
	}
	return nil
}

func (s *Store) upsert(conn *sqlite.Conn, path string, size int64, hasSize bool, at time.Time, digests digest.Set) error {
	catalog := digest.Catalog()

	args := make([]any, 0, 3+len(catalog))
	args = append(args, path)
	if hasSize {
		args = append(args, size)
	} else {
		args = append(args, nil)
	}
	args = append(args, at.UTC().Format(time.RFC3339))
	for _, algorithm := range catalog {
		if value, ok := digests[algorithm]; ok {
			args = append(args, value)
		} else {
			args = append(args, nil)
		}
	}

	return sqlitex.Execute(conn, s.upsertSQL(), &sqlitex.ExecOptions{Args: args})
}

func (s *Store) upsertSQL() string {
	catalog := digest.Catalog()

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.table)
	b.WriteString(" (file_path, file_size, hashed_at")
	for _, algorithm := range catalog {
		b.WriteString(", ")
		b.WriteString(columnName(algorithm))
	}
	b.WriteString(") VALUES (?, ?, ?")
	b.WriteString(strings.Repeat(", ?", len(catalog)))
	b.WriteString(") ON CONFLICT(file_path) DO UPDATE SET")
	b.WriteString(" file_size = excluded.file_size, hashed_at = excluded.hashed_at")
	for _, algorithm := range catalog {
		name := columnName(algorithm)
		b.WriteString(", ")
		b.WriteString(name)
		b.WriteString(" = excluded.")
		b.WriteString(name)
	}
	return b.String()
}

// Get returns the stored row for path, or ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (*Row, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, classify(err)
	}
	defer s.pool.Put(conn)

	catalog := digest.Catalog()
	var row *Row
	err = sqlitex.Execute(conn, s.selectSQL(), &sqlitex.ExecOptions{
		Args: []any{path},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			row = &Row{
				Path:     stmt.ColumnText(0),
				HashedAt: stmt.ColumnText(2),
				Digests:  make(digest.Set),
			}
			if !stmt.ColumnIsNull(1) {
				row.Size = stmt.ColumnInt64(1)
				row.HasSize = true
			}
			for i, algorithm := range catalog {
				col := 3 + i
				if stmt.ColumnIsNull(col) {
					continue
				}
				value := make([]byte, stmt.ColumnLen(col))
				stmt.ColumnBytes(col, value)
				row.Digests[algorithm] = value
			}
			return nil
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	if row == nil {
		return nil, ErrNotFound
	}
	return row, nil
}

func (s *Store) selectSQL() string {
	catalog := digest.Catalog()

	var b strings.Builder
	b.WriteString("SELECT file_path, file_size, hashed_at")
	for _, algorithm := range catalog {
		b.WriteString(", ")
		b.WriteString(columnName(algorithm))
	}
	b.WriteString(" FROM ")
	b.WriteString(s.table)
	b.WriteString(" WHERE file_path = ?")
	return b.String()
}

// ListPaths returns every stored path with the given prefix, in
// lexical order. An empty prefix lists the whole table.
func (s *Store) ListPaths(ctx context.Context, prefix string) ([]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, classify(err)
	}
	defer s.pool.Put(conn)

	var paths []string
	err = sqlitex.Execute(conn,
		fmt.Sprintf("SELECT file_path FROM %s ORDER BY file_path", s.table),
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				path := stmt.ColumnText(0)
				if strings.HasPrefix(path, prefix) {
					paths = append(paths, path)
				}
				return nil
			},
		})
	if err != nil {
		return nil, classify(err)
	}
	return paths, nil
}

func schemaFor(table string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(table)
	b.WriteString(" (\n")
	b.WriteString("\tfile_path TEXT PRIMARY KEY NOT NULL,\n")
	b.WriteString("\tfile_size INTEGER,\n")
	b.WriteString("\thashed_at TEXT")
	for _, algorithm := range digest.Catalog() {
		b.WriteString(",\n\t")
		b.WriteString(columnName(algorithm))
		b.WriteString(" BLOB")
	}
	b.WriteString("\n);\n")
	return b.String()
}

// columnName maps an algorithm to its column. Algorithm names are
// already lower_snake identifiers, so they map through unchanged.
func columnName(a digest.Algorithm) string { return a.String() }

// classify marks lock contention transient so the router's retry
// state machine takes another pass at it.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch sqlite.ErrCode(err) {
	case sqlite.ResultBusy, sqlite.ResultLocked:
		return &sink.Transient{Err: err}
	}
	return err
}
