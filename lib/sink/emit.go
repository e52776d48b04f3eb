// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/meemo/hasher/lib/record"
)

// Format selects the emission wire encoding.
type Format uint8

const (
	FormatJSON Format = iota
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

func (f Format) extension() string {
	if f == FormatCBOR {
		return ".cbor"
	}
	return ".json"
}

// ParseFormat maps a config string to a Format.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", "json":
		return FormatJSON, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return 0, fmt.Errorf("unknown emission format %q", name)
	}
}

// hashPayload is the emitted shape of a hash record. Digests are hex
// strings keyed by algorithm name in both encodings.
type hashPayload struct {
	Path         string            `json:"file_path" cbor:"file_path"`
	Size         int64             `json:"file_size" cbor:"file_size"`
	HashedAt     string            `json:"hashed_at" cbor:"hashed_at"`
	Origin       string            `json:"origin" cbor:"origin"`
	Hashes       map[string]string `json:"hashes" cbor:"hashes"`
	Decompressed map[string]string `json:"decompressed_hashes,omitempty" cbor:"decompressed_hashes,omitempty"`
}

type verifyPayload struct {
	Path       string   `json:"file_path" cbor:"file_path"`
	Status     string   `json:"status" cbor:"status"`
	Size       int64    `json:"file_size,omitempty" cbor:"file_size,omitempty"`
	StoredSize int64    `json:"stored_size,omitempty" cbor:"stored_size,omitempty"`
	Mismatched []string `json:"mismatched,omitempty" cbor:"mismatched,omitempty"`
}

type downloadPayload struct {
	URL    string       `json:"url" cbor:"url"`
	Path   string       `json:"file_path,omitempty" cbor:"file_path,omitempty"`
	OK     bool         `json:"ok" cbor:"ok"`
	Reason string       `json:"reason,omitempty" cbor:"reason,omitempty"`
	Record *hashPayload `json:"record,omitempty" cbor:"record,omitempty"`
}

// Emitter writes result records as a stream of JSON lines or CBOR
// objects, or — in directory mode — as one file per record named by
// the SHA-256 of its own payload. An Emitter is safe for concurrent
// use; records never interleave.
type Emitter struct {
	format Format

	mu  sync.Mutex
	out io.Writer // stream mode
	dir string    // directory mode
}

// NewStreamEmitter emits records sequentially to out.
func NewStreamEmitter(out io.Writer, format Format) *Emitter {
	return &Emitter{format: format, out: out}
}

// NewDirEmitter emits one file per record under dir, creating dir if
// needed.
func NewDirEmitter(dir string, format Format) (*Emitter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating emission directory: %w", err)
	}
	return &Emitter{format: format, dir: dir}, nil
}

// Name implements Sink.
func (e *Emitter) Name() string { return "emit" }

// Validate implements Sink.
func (e *Emitter) Validate(rec *record.Hash) error {
	if rec.Path == "" {
		return fmt.Errorf("record has no path")
	}
	if len(rec.Digests) == 0 {
		return fmt.Errorf("%s: record has no digests", rec.Path)
	}
	return nil
}

// Write implements Sink.
func (e *Emitter) Write(ctx context.Context, rec *record.Hash) error {
	return e.emit(hashToPayload(rec))
}

// WriteVerify emits one verify classification.
func (e *Emitter) WriteVerify(v *record.Verify) error {
	return e.emit(verifyPayload{
		Path:       v.Path,
		Status:     v.Status.String(),
		Size:       v.Size,
		StoredSize: v.StoredSize,
		Mismatched: v.Mismatched,
	})
}

// WriteDownload emits one download outcome.
func (e *Emitter) WriteDownload(d *record.Download) error {
	payload := downloadPayload{
		URL:    d.URL,
		Path:   d.Path,
		OK:     d.OK,
		Reason: d.Reason,
	}
	if d.Record != nil {
		rec := hashToPayload(d.Record)
		payload.Record = &rec
	}
	return e.emit(payload)
}

func hashToPayload(rec *record.Hash) hashPayload {
	return hashPayload{
		Path:         rec.Path,
		Size:         rec.Size,
		HashedAt:     rec.Time.UTC().Format(time.RFC3339),
		Origin:       rec.Origin.String(),
		Hashes:       rec.Digests.HexMap(),
		Decompressed: rec.Decompressed.HexMap(),
	}
}

func (e *Emitter) emit(payload any) error {
	encoded, err := e.encode(payload)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dir != "" {
		name := hex.EncodeToString(digestOf(encoded)) + e.format.extension()
		if err := os.WriteFile(filepath.Join(e.dir, name), encoded, 0o644); err != nil {
			return fmt.Errorf("writing record file: %w", err)
		}
		return nil
	}
	if _, err := e.out.Write(encoded); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

func (e *Emitter) encode(payload any) ([]byte, error) {
	if e.format == FormatCBOR {
		return cbor.Marshal(payload)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return append(encoded, '\n'), nil
}

func digestOf(payload []byte) []byte {
	sum := sha256.Sum256(payload)
	return sum[:]
}
