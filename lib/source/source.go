// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package source abstracts one-time-readable byte content: a local
// file, a stdin blob, or a network stream. A Source yields exactly one
// ordered byte sequence — Open succeeds once and fails afterwards, so
// the read-once guarantee of the hash engine is checkable at the type
// level. Callers that need a second pass over the same content (a
// second compression variant, for example) construct a fresh Source.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// SizeUnknown is returned by Size when the byte length is not known
// before reading (network streams without a Content-Length, decoded
// compression variants).
const SizeUnknown int64 = -1

// ErrConsumed is returned by Open after the source's single read has
// been claimed.
var ErrConsumed = errors.New("source: already consumed")

// Source is one unit of hashable content. Open returns the ordered
// byte sequence exactly once; Path is the logical path recorded with
// the results; Size is the byte length or SizeUnknown.
type Source interface {
	Open() (io.ReadCloser, error)
	Path() string
	Size() int64
}

// File is a Source backed by a regular file on disk.
type File struct {
	path     string
	size     int64
	consumed bool
}

// NewFile creates a file source. The file must exist and be a regular
// file; directories, sockets, and devices are rejected here rather
// than surfacing as read errors mid-pipeline.
func NewFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("source: stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("source: %s is not a regular file", path)
	}
	return &File{path: path, size: info.Size()}, nil
}

func (f *File) Open() (io.ReadCloser, error) {
	if f.consumed {
		return nil, fmt.Errorf("source: open %s: %w", f.path, ErrConsumed)
	}
	f.consumed = true
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", f.path, err)
	}
	return file, nil
}

func (f *File) Path() string { return f.path }
func (f *File) Size() int64  { return f.size }

// Bytes is a Source over an in-memory buffer, used for stdin blobs
// and tests. The logical path is supplied by the caller (for stdin it
// comes from configuration, since a pipe has no path of its own).
type Bytes struct {
	path     string
	data     []byte
	consumed bool
}

// NewBytes creates an in-memory source with the given logical path.
func NewBytes(path string, data []byte) *Bytes {
	return &Bytes{path: path, data: data}
}

func (b *Bytes) Open() (io.ReadCloser, error) {
	if b.consumed {
		return nil, fmt.Errorf("source: open %s: %w", b.path, ErrConsumed)
	}
	b.consumed = true
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (b *Bytes) Path() string { return b.path }
func (b *Bytes) Size() int64  { return int64(len(b.data)) }

// Reader is a Source wrapping an already-open stream (an HTTP
// response body, a decompressing reader). It is single-shot by
// nature: the stream position cannot be rewound.
type Reader struct {
	path     string
	size     int64
	stream   io.ReadCloser
	consumed bool
}

// NewReader wraps an open stream as a Source. Pass SizeUnknown when
// the length is not known upfront.
func NewReader(path string, size int64, stream io.ReadCloser) *Reader {
	return &Reader{path: path, size: size, stream: stream}
}

func (r *Reader) Open() (io.ReadCloser, error) {
	if r.consumed {
		return nil, fmt.Errorf("source: open %s: %w", r.path, ErrConsumed)
	}
	r.consumed = true
	return r.stream, nil
}

func (r *Reader) Path() string { return r.path }
func (r *Reader) Size() int64  { return r.size }
