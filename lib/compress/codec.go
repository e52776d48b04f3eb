// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies a compression algorithm, inferred solely from the
// artifact-name suffix — never from content sniffing. A mislabeled
// file therefore fails at decode time, which is the intended
// behavior: the name is the contract.
type Codec uint8

const (
	// CodecNone means the artifact carries no compression suffix.
	CodecNone Codec = iota

	// CodecGzip is gzip (".gz").
	CodecGzip

	// CodecZstd is zstandard (".zst").
	CodecZstd

	// CodecLZ4 is lz4 frame format (".lz4").
	CodecLZ4
)

// String returns the codec's name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecGzip:
		return "gzip"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Suffix returns the filename suffix for the codec, "" for CodecNone.
func (c Codec) Suffix() string {
	switch c {
	case CodecGzip:
		return ".gz"
	case CodecZstd:
		return ".zst"
	case CodecLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// ParseCodec resolves a codec name from configuration. Both the codec
// name and its suffix form are accepted; "" and "none" mean no codec.
func ParseCodec(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return CodecNone, nil
	case "gzip", "gz":
		return CodecGzip, nil
	case "zstd", "zst":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return 0, fmt.Errorf("compress: unknown codec %q", name)
	}
}

// Detect infers the codec from the path's suffix.
func Detect(path string) Codec {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return CodecGzip
	case strings.HasSuffix(path, ".zst"):
		return CodecZstd
	case strings.HasSuffix(path, ".lz4"):
		return CodecLZ4
	default:
		return CodecNone
	}
}

// StripSuffix removes the codec suffix from path. A decompressed
// materialization is named this way. Paths without a codec suffix
// are returned unchanged.
func StripSuffix(path string) string {
	codec := Detect(path)
	if codec == CodecNone {
		return path
	}
	return strings.TrimSuffix(path, codec.Suffix())
}

// NewReader wraps r with a decoder for the codec. The caller must
// Close the result; closing does not close r.
func NewReader(r io.Reader, codec Codec) (io.ReadCloser, error) {
	switch codec {
	case CodecNone:
		return io.NopCloser(r), nil

	case CodecGzip:
		reader, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("compress: gzip reader: %w", err)
		}
		return reader, nil

	case CodecZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("compress: zstd reader: %w", err)
		}
		return decoder.IOReadCloser(), nil

	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil

	default:
		return nil, fmt.Errorf("compress: unsupported codec %s", codec)
	}
}

// NewWriter wraps w with an encoder for the codec at the given level
// (1 fastest, 9 smallest; clamped). Close flushes the encoder without
// closing w.
func NewWriter(w io.Writer, codec Codec, level int) (io.WriteCloser, error) {
	level = clampLevel(level)

	switch codec {
	case CodecGzip:
		writer, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return nil, fmt.Errorf("compress: gzip writer: %w", err)
		}
		return writer, nil

	case CodecZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return nil, fmt.Errorf("compress: zstd writer: %w", err)
		}
		return encoder, nil

	case CodecLZ4:
		writer := lz4.NewWriter(w)
		if err := writer.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
			return nil, fmt.Errorf("compress: lz4 writer: %w", err)
		}
		return writer, nil

	default:
		return nil, fmt.Errorf("compress: unsupported codec %s", codec)
	}
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 9 {
		return 9
	}
	return level
}

// lz4Level maps the shared 1-9 scale onto lz4's level enum. Levels
// 1-2 use the fast path; higher levels use the HC levels.
func lz4Level(level int) lz4.CompressionLevel {
	switch level {
	case 1, 2:
		return lz4.Fast
	case 3:
		return lz4.Level1
	case 4:
		return lz4.Level2
	case 5:
		return lz4.Level3
	case 6:
		return lz4.Level4
	case 7:
		return lz4.Level5
	case 8:
		return lz4.Level7
	default:
		return lz4.Level9
	}
}
