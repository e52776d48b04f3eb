// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/meemo/hasher/lib/digest"
	"github.com/meemo/hasher/lib/record"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{
		Path:     filepath.Join(t.TempDir(), "hashes.db"),
		WAL:      true,
		PoolSize: 2,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func storedRecord(path string) *record.Hash {
	return &record.Hash{
		Unit: record.Unit{Path: path, Size: 1234},
		Digests: digest.Set{
			digest.CRC32:  {0x36, 0x10, 0xa6, 0x86},
			digest.SHA256: bytes.Repeat([]byte{0xcd}, 32),
		},
		Time: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestWriteAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, storedRecord("data/a.bin")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	row, err := s.Get(ctx, "data/a.bin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !row.HasSize || row.Size != 1234 {
		t.Errorf("size = %d (known=%v), want 1234", row.Size, row.HasSize)
	}
	if row.HashedAt != "2026-03-01T09:30:00Z" {
		t.Errorf("hashed_at = %q", row.HashedAt)
	}
	if len(row.Digests) != 2 {
		t.Fatalf("stored %d digests, want 2", len(row.Digests))
	}
	if row.Digests.Hex(digest.CRC32) != "3610a686" {
		t.Errorf("crc32 = %q", row.Digests.Hex(digest.CRC32))
	}
	if !bytes.Equal(row.Digests[digest.SHA256], bytes.Repeat([]byte{0xcd}, 32)) {
		t.Error("sha256 digest bytes corrupted")
	}
}

func TestUpsertOverwritesAllColumns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Write(ctx, storedRecord("a.bin")); err != nil {
		t.Fatalf("first Write: %v", err)
	}

	// Second run over the same path with a different enabled set.
	second := &record.Hash{
		Unit:    record.Unit{Path: "a.bin", Size: 99},
		Digests: digest.Set{digest.MD5: bytes.Repeat([]byte{0x11}, 16)},
		Time:    time.Now(),
	}
	if err := s.Write(ctx, second); err != nil {
		t.Fatalf("second Write: %v", err)
	}

	row, err := s.Get(ctx, "a.bin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row.Size != 99 {
		t.Errorf("size = %d, want 99", row.Size)
	}
	if len(row.Digests) != 1 {
		t.Errorf("row kept %d digests, want only the new run's 1", len(row.Digests))
	}
	if _, stale := row.Digests[digest.CRC32]; stale {
		t.Error("crc32 column survived an upsert that did not enable it")
	}
}

func TestDecompressedSecondRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := storedRecord("logs/app.log.gz")
	rec.Compressed = true
	rec.Decompressed = digest.Set{digest.SHA256: bytes.Repeat([]byte{0xee}, 32)}
	if err := s.Write(ctx, rec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	stored, err := s.Get(ctx, "logs/app.log.gz")
	if err != nil {
		t.Fatalf("Get stored row: %v", err)
	}
	if !bytes.Equal(stored.Digests[digest.SHA256], bytes.Repeat([]byte{0xcd}, 32)) {
		t.Error("stored row does not carry the stored-rendition digest")
	}

	decoded, err := s.Get(ctx, "logs/app.log")
	if err != nil {
		t.Fatalf("Get decoded row: %v", err)
	}
	if decoded.HasSize {
		t.Error("decoded row has a size, which is never known")
	}
	if !bytes.Equal(decoded.Digests[digest.SHA256], bytes.Repeat([]byte{0xee}, 32)) {
		t.Error("decoded row does not carry the decompressed digest")
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "never/hashed")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestListPaths(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, path := range []string{"b/2.txt", "a/1.txt", "b/1.txt", "c.txt"} {
		if err := s.Write(ctx, storedRecord(path)); err != nil {
			t.Fatalf("Write(%s): %v", path, err)
		}
	}

	paths, err := s.ListPaths(ctx, "b/")
	if err != nil {
		t.Fatalf("ListPaths: %v", err)
	}
	if len(paths) != 2 || paths[0] != "b/1.txt" || paths[1] != "b/2.txt" {
		t.Errorf("ListPaths(b/) = %v", paths)
	}

	all, err := s.ListPaths(ctx, "")
	if err != nil {
		t.Fatalf("ListPaths: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("ListPaths(\"\") returned %d paths, want 4", len(all))
	}
}

func TestCustomTableName(t *testing.T) {
	s, err := Open(Config{
		Path:  filepath.Join(t.TempDir(), "hashes.db"),
		Table: "release_artifacts",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Write(ctx, storedRecord("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Get(ctx, "x"); err != nil {
		t.Fatalf("Get: %v", err)
	}
}

func TestInvalidTableNameRejected(t *testing.T) {
	for _, table := range []string{"bad name", "drop;table", "1st", `x"y`} {
		_, err := Open(Config{
			Path:  filepath.Join(t.TempDir(), "hashes.db"),
			Table: table,
		})
		if err == nil {
			t.Errorf("Open accepted table name %q", table)
		}
	}
}

func TestValidate(t *testing.T) {
	s := openTestStore(t)

	if err := s.Validate(storedRecord("ok")); err != nil {
		t.Errorf("Validate(complete record) = %v", err)
	}
	if err := s.Validate(&record.Hash{Unit: record.Unit{Path: "p"}}); err == nil {
		t.Error("Validate accepted a record with no digests")
	}
	if err := s.Validate(&record.Hash{Digests: digest.Set{digest.CRC32: {1}}}); err == nil {
		t.Error("Validate accepted a record with no path")
	}
}
