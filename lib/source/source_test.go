// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if src.Size() != 5 {
		t.Errorf("Size = %d, want 5", src.Size())
	}
	if src.Path() != path {
		t.Errorf("Path = %q, want %q", src.Path(), path)
	}

	reader, err := src.Open()
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("read %q, want %q", data, "hello")
	}
}

func TestFileSourceSingleOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	reader, err := src.Open()
	if err != nil {
		t.Fatal(err)
	}
	reader.Close()

	if _, err := src.Open(); !errors.Is(err, ErrConsumed) {
		t.Errorf("second Open returned %v, want ErrConsumed", err)
	}
}

func TestFileSourceRejectsDirectory(t *testing.T) {
	if _, err := NewFile(t.TempDir()); err == nil {
		t.Error("NewFile accepted a directory")
	}
}

func TestBytesSourceSingleOpen(t *testing.T) {
	src := NewBytes("stdin", []byte("blob"))
	if src.Size() != 4 {
		t.Errorf("Size = %d, want 4", src.Size())
	}
	if _, err := src.Open(); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Open(); !errors.Is(err, ErrConsumed) {
		t.Errorf("second Open returned %v, want ErrConsumed", err)
	}
}

func TestReaderSourceSingleOpen(t *testing.T) {
	pipeReader, pipeWriter := io.Pipe()
	pipeWriter.Close()

	src := NewReader("https://example.com/f", SizeUnknown, pipeReader)
	if src.Size() != SizeUnknown {
		t.Errorf("Size = %d, want SizeUnknown", src.Size())
	}
	if _, err := src.Open(); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Open(); !errors.Is(err, ErrConsumed) {
		t.Errorf("second Open returned %v, want ErrConsumed", err)
	}
}
