// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meemo/hasher/lib/compress"
	"github.com/meemo/hasher/lib/digest"
	"github.com/meemo/hasher/lib/pipeline"
	"github.com/meemo/hasher/lib/record"
	"github.com/meemo/hasher/lib/sink"
)

// The canonical two-file run: "a" holding "hello", "b" holding
// "world", crc32+sha256, emission sink only.
func TestHashTreeEmission(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a", "hello")
	writeFile(t, root, "b", "world")

	env, out := emissionEnv(t)
	summary, err := env.Hash(context.Background(), pipeline.HashOptions{Root: root})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %d processed, %d failed", summary.Processed, summary.Failed)
	}

	records := decodeRecords(t, out.Bytes())
	if len(records) != 2 {
		t.Fatalf("emitted %d records, want 2", len(records))
	}
	for i, want := range []struct {
		path, sha string
	}{
		{filepath.Join(root, "a"), sha256Hello},
		{filepath.Join(root, "b"), sha256World},
	} {
		rec := records[i]
		if rec.Path != want.path {
			t.Errorf("record %d path = %q, want %q", i, rec.Path, want.path)
		}
		if rec.Size != 5 {
			t.Errorf("record %d size = %d, want 5", i, rec.Size)
		}
		if rec.Hashes["sha256"] != want.sha {
			t.Errorf("record %d sha256 = %q, want %q", i, rec.Hashes["sha256"], want.sha)
		}
		if rec.Hashes["crc32"] == "" {
			t.Errorf("record %d has no crc32", i)
		}
		if len(rec.Hashes) != 2 {
			t.Errorf("record %d carries %d hashes, want 2", i, len(rec.Hashes))
		}
	}
}

func TestHashIdempotentUpsert(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a", "hello")

	env, s, _ := storeEnv(t)
	ctx := context.Background()

	for range 2 {
		if _, err := env.Hash(ctx, pipeline.HashOptions{Root: root}); err != nil {
			t.Fatalf("Hash: %v", err)
		}
	}

	paths, err := s.ListPaths(ctx, "")
	if err != nil {
		t.Fatalf("ListPaths: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("store holds %d rows after two identical runs, want 1", len(paths))
	}
}

func TestHashSingleFileRoot(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "only.txt", "hello")

	env, out := emissionEnv(t)
	summary, err := env.Hash(context.Background(), pipeline.HashOptions{Root: path})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("processed = %d, want 1", summary.Processed)
	}
	records := decodeRecords(t, out.Bytes())
	if records[0].Path != path {
		t.Errorf("path = %q, want %q", records[0].Path, path)
	}
}

func TestHashSkipFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a", "1")
	writeFile(t, root, "b", "2")
	writeFile(t, root, "c", "3")

	env, out := emissionEnv(t)
	summary, err := env.Hash(context.Background(), pipeline.HashOptions{Root: root, SkipFiles: 2})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if summary.Skipped != 2 || summary.Processed != 1 {
		t.Errorf("summary = %d skipped / %d processed, want 2/1", summary.Skipped, summary.Processed)
	}
	records := decodeRecords(t, out.Bytes())
	if len(records) != 1 || filepath.Base(records[0].Path) != "c" {
		t.Errorf("records = %+v, want only c", records)
	}
}

func TestHashStdin(t *testing.T) {
	env, out := emissionEnv(t)
	summary, err := env.Hash(context.Background(), pipeline.HashOptions{
		Stdin:     strings.NewReader("hello"),
		StdinPath: "blob-1",
	})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("processed = %d, want 1", summary.Processed)
	}
	rec := decodeRecords(t, out.Bytes())[0]
	if rec.Path != "blob-1" || rec.Size != 5 {
		t.Errorf("record = %q/%d, want blob-1/5", rec.Path, rec.Size)
	}
	if rec.Hashes["sha256"] != sha256Hello {
		t.Errorf("sha256 = %q", rec.Hashes["sha256"])
	}
	if rec.Origin != "stdin" {
		t.Errorf("origin = %q, want stdin", rec.Origin)
	}
}

func TestHashBothVariants(t *testing.T) {
	root := t.TempDir()
	var encoded bytes.Buffer
	gz := gzip.NewWriter(&encoded)
	gz.Write([]byte("hello"))
	gz.Close()
	path := filepath.Join(root, "a.txt.gz")
	if err := os.WriteFile(path, encoded.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	env, out := emissionEnv(t)
	env.Policy = compress.PolicyBoth
	if _, err := env.Hash(context.Background(), pipeline.HashOptions{Root: root}); err != nil {
		t.Fatalf("Hash: %v", err)
	}

	rec := decodeRecords(t, out.Bytes())[0]
	if rec.Path != path {
		t.Errorf("path = %q, want stored path %q", rec.Path, path)
	}
	if rec.Decompressed["sha256"] != sha256Hello {
		t.Errorf("decompressed sha256 = %q, want digest of hello", rec.Decompressed["sha256"])
	}
	if rec.Hashes["sha256"] == sha256Hello {
		t.Error("stored-rendition sha256 equals the decoded digest")
	}
}

func TestHashDecompressPolicy(t *testing.T) {
	root := t.TempDir()
	var encoded bytes.Buffer
	gz := gzip.NewWriter(&encoded)
	gz.Write([]byte("hello"))
	gz.Close()
	if err := os.WriteFile(filepath.Join(root, "a.txt.gz"), encoded.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	env, out := emissionEnv(t)
	env.Policy = compress.PolicyDecompress
	if _, err := env.Hash(context.Background(), pipeline.HashOptions{Root: root}); err != nil {
		t.Fatalf("Hash: %v", err)
	}

	rec := decodeRecords(t, out.Bytes())[0]
	if rec.Path != filepath.Join(root, "a.txt") {
		t.Errorf("path = %q, want suffix stripped", rec.Path)
	}
	if rec.Hashes["sha256"] != sha256Hello {
		t.Errorf("sha256 = %q, want digest of decoded content", rec.Hashes["sha256"])
	}
}

func TestHashContinuesPastUnreadableItem(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a", "hello")
	// A dangling symlink: NewFile fails on it.
	if err := os.Symlink(filepath.Join(root, "gone"), filepath.Join(root, "dangling")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	writeFile(t, root, "z", "world")

	env, _ := emissionEnv(t)
	summary, err := env.Hash(context.Background(), pipeline.HashOptions{Root: root})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 1 {
		t.Errorf("summary = %d processed / %d failed, want 2/1", summary.Processed, summary.Failed)
	}
}

func TestHashFailFast(t *testing.T) {
	root := t.TempDir()
	if err := os.Symlink(filepath.Join(root, "gone"), filepath.Join(root, "dangling")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	writeFile(t, root, "z", "world")

	env, out := emissionEnv(t)
	env.FailFast = true
	_, err := env.Hash(context.Background(), pipeline.HashOptions{Root: root})
	if err == nil {
		t.Fatal("fail-fast run returned nil after an unreadable item")
	}
	if records := decodeRecords(t, out.Bytes()); len(records) != 0 {
		t.Errorf("emitted %d records after abort, want 0", len(records))
	}
}

func TestHashDryRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a", "hello")

	env, s, out := storeEnv(t)
	env.DryRun = true
	env.Router = newDryRunRouter(t, s, out)

	summary, err := env.Hash(context.Background(), pipeline.HashOptions{Root: root})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if summary.Processed != 1 {
		t.Errorf("processed = %d, want 1", summary.Processed)
	}
	if out.Len() != 0 {
		t.Error("dry run emitted records")
	}
	paths, err := s.ListPaths(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Error("dry run wrote store rows")
	}
}

// refusingSink rejects every delivery with a permanent error.
type refusingSink struct{}

func (refusingSink) Name() string                              { return "refusing" }
func (refusingSink) Validate(*record.Hash) error               { return nil }
func (refusingSink) Write(context.Context, *record.Hash) error { return errors.New("write refused") }

// A run whose records never reach any sink must not report clean,
// even though the continue policy keeps Hash itself error-free.
func TestHashCountsUndeliveredRecords(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a", "hello")
	writeFile(t, root, "b", "world")

	env := &pipeline.Env{
		Algorithms: []digest.Algorithm{digest.SHA256},
		Router: sink.NewRouter(sink.RouterOptions{
			Sinks: []sink.Sink{refusingSink{}},
		}),
	}
	summary, err := env.Hash(context.Background(), pipeline.HashOptions{Root: root})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if summary.Processed != 2 {
		t.Errorf("processed = %d, want 2", summary.Processed)
	}
	if summary.FailedWrites != 2 {
		t.Errorf("failed writes = %d, want 2", summary.FailedWrites)
	}
	if summary.Clean() {
		t.Error("summary with undelivered records reported clean")
	}
}
