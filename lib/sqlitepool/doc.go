// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the SQLite connection pool backing the
// hash store.
//
// It wraps zombiezen.com/go/sqlite with the pragmas a long hashing run
// wants: NORMAL synchronous for process-crash durability without
// fsync-per-commit overhead, a busy timeout so concurrent writers wait
// instead of surfacing SQLITE_BUSY immediately, and memory-mapped I/O
// for verify-time reads. Write-ahead logging is configurable: WAL
// keeps store writes from blocking verify reads on the same database,
// but some network filesystems cannot host a WAL database, so rollback
// journal mode remains available.
//
// The pool is built on zombiezen's sqlitex.Pool, which manages a
// fixed-size set of connections. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back. Connections are NOT safe for
// concurrent use — each goroutine must hold its own connection for the
// duration of its work.
//
// The package is intentionally thin: it applies pragmas and exposes
// the underlying zombiezen types directly. The store writes SQL, uses
// sqlitex.Execute for cached statements, and manages transactions with
// sqlitex.ImmediateTransaction. There is no query builder and no
// abstraction over SQLite's connection model.
package sqlitepool
