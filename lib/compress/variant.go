// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"fmt"
	"io"

	"github.com/meemo/hasher/lib/source"
)

// Variant names which rendition of a content unit feeds the hash
// engine.
type Variant uint8

const (
	// VariantStored is the bytes exactly as they sit on disk (or
	// arrive off the wire).
	VariantStored Variant = iota

	// VariantDecompressed is the decoded rendition of a
	// codec-suffixed artifact.
	VariantDecompressed
)

func (v Variant) String() string {
	switch v {
	case VariantStored:
		return "stored"
	case VariantDecompressed:
		return "decompressed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// Policy selects which variant(s) of a compressed artifact are
// hashed. For artifacts without a codec suffix every policy hashes
// the stored bytes.
type Policy uint8

const (
	// PolicyDefault hashes bytes as stored, no transform.
	PolicyDefault Policy = iota

	// PolicyCompressedOnly hashes only the stored (compressed)
	// rendition.
	PolicyCompressedOnly

	// PolicyDecompress hashes the decoded rendition; a materialized
	// output drops the codec suffix from its name.
	PolicyDecompress

	// PolicyBoth hashes both renditions; the record carries two
	// digest sets.
	PolicyBoth
)

func (p Policy) String() string {
	switch p {
	case PolicyDefault:
		return "default"
	case PolicyCompressedOnly:
		return "compressed-only"
	case PolicyDecompress:
		return "decompress"
	case PolicyBoth:
		return "both"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// ResolvePolicy folds the three policy flags into one Policy using
// the fixed precedence: both > decompress > compressed-only >
// default. Setting several flags is not an error — the highest
// precedence wins.
func ResolvePolicy(hashBoth, decompress, compressedOnly bool) Policy {
	switch {
	case hashBoth:
		return PolicyBoth
	case decompress:
		return PolicyDecompress
	case compressedOnly:
		return PolicyCompressedOnly
	default:
		return PolicyDefault
	}
}

// Plan returns the variants to hash for an artifact with the given
// codec, in hashing order (stored first under PolicyBoth).
func (p Policy) Plan(codec Codec) []Variant {
	if codec == CodecNone {
		return []Variant{VariantStored}
	}
	switch p {
	case PolicyBoth:
		return []Variant{VariantStored, VariantDecompressed}
	case PolicyDecompress:
		return []Variant{VariantDecompressed}
	default:
		return []Variant{VariantStored}
	}
}

// decompressedSource presents the decoded rendition of a compressed
// source as a Source of its own. The decoded size is unknown until
// read; the logical path drops the codec suffix.
type decompressedSource struct {
	inner source.Source
	codec Codec
}

// Decompressed wraps src so that Open yields the decoded byte
// sequence. Wrapping a CodecNone source returns src unchanged.
func Decompressed(src source.Source, codec Codec) source.Source {
	if codec == CodecNone {
		return src
	}
	return &decompressedSource{inner: src, codec: codec}
}

func (d *decompressedSource) Open() (io.ReadCloser, error) {
	raw, err := d.inner.Open()
	if err != nil {
		return nil, err
	}
	decoder, err := NewReader(raw, d.codec)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return &decodedStream{decoder: decoder, raw: raw}, nil
}

func (d *decompressedSource) Path() string { return StripSuffix(d.inner.Path()) }
func (d *decompressedSource) Size() int64  { return source.SizeUnknown }

// decodedStream closes both the decoder and the underlying stream.
type decodedStream struct {
	decoder io.ReadCloser
	raw     io.ReadCloser
}

func (s *decodedStream) Read(p []byte) (int, error) { return s.decoder.Read(p) }

func (s *decodedStream) Close() error {
	decodeErr := s.decoder.Close()
	rawErr := s.raw.Close()
	if decodeErr != nil {
		return decodeErr
	}
	return rawErr
}
