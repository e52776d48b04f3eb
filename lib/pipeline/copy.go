// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/meemo/hasher/lib/compress"
	"github.com/meemo/hasher/lib/digest"
	"github.com/meemo/hasher/lib/record"
	"github.com/meemo/hasher/lib/source"
)

// CopyOptions configures one copy run.
type CopyOptions struct {
	// Root is the source file or directory tree.
	Root string

	// Dest is the destination directory. Tree structure under Root is
	// preserved beneath it.
	Dest string

	// SkipExisting skips units whose destination already holds the
	// same content, checked by size and then digest equality.
	SkipExisting bool

	// NoHashExisting weakens the SkipExisting check to existence and
	// size alone.
	NoHashExisting bool

	// StoreSourcePath records units under their source path instead
	// of the destination path.
	StoreSourcePath bool

	// Compress, when not CodecNone, writes compressed destinations
	// (codec suffix appended to the destination name).
	Compress compress.Codec
}

// Copy copies each unit under Root to its mapped destination, hashing
// the unit in the same physical read that feeds the copy.
func (e *Env) Copy(ctx context.Context, opts CopyOptions) (*Summary, error) {
	summary := &Summary{}
	defer e.settleWrites(summary)
	err := e.eachFile(opts.Root, func(path string, walkErr error) error {
		if walkErr != nil {
			return e.itemFailure(summary, path, walkErr)
		}
		if err := e.copyOne(ctx, opts, summary, path); err != nil {
			return err
		}
		return nil
	})
	return summary, err
}

func (e *Env) copyOne(ctx context.Context, opts CopyOptions, summary *Summary, path string) error {
	srcCodec := compress.Detect(path)
	plan := e.Policy.Plan(srcCodec)
	// Decompress-only materializes the decoded content; the suffix
	// drops from the destination name.
	decompressOnly := len(plan) == 1 && plan[0] == compress.VariantDecompressed

	destPath, err := e.destFor(opts, path, decompressOnly)
	if err != nil {
		return e.itemFailure(summary, path, err)
	}

	if opts.SkipExisting && !e.DryRun {
		skip, err := e.sameContent(ctx, opts, path, destPath, decompressOnly)
		if err != nil {
			return e.itemFailure(summary, path, err)
		}
		if skip {
			summary.add(&summary.Skipped)
			e.logger().Info("destination up to date", "path", path, "dest", destPath)
			return nil
		}
	}

	var rec *record.Hash
	if e.DryRun {
		rec, err = e.computeRecord(ctx, record.OriginFile, func() (source.Source, error) {
			return source.NewFile(path)
		})
	} else {
		rec, err = e.copyAndHash(ctx, opts, path, destPath, decompressOnly)
	}
	if err != nil {
		return e.itemFailure(summary, path, err)
	}

	if !opts.StoreSourcePath {
		rec.Path = destPath
	}
	if err := e.Router.Route(ctx, rec); err != nil {
		return err
	}
	summary.add(&summary.Processed)
	e.logger().Info("copied", "path", path, "dest", destPath)
	return nil
}

// destFor maps a source path to its destination, preserving tree
// structure. A file root maps to its base name under Dest.
func (e *Env) destFor(opts CopyOptions, path string, decompressOnly bool) (string, error) {
	rel, err := filepath.Rel(opts.Root, path)
	if err != nil || rel == "." {
		rel = filepath.Base(path)
	}
	if decompressOnly {
		rel = compress.StripSuffix(rel)
	}
	dest := filepath.Join(opts.Dest, rel)
	if opts.Compress != compress.CodecNone {
		dest += opts.Compress.Suffix()
	}
	return dest, nil
}

// sameContent reports whether dest already holds the unit's content.
// Size comparison short-circuits; otherwise both sides are hashed
// (sha256, one read each) unless NoHashExisting weakened the check.
// Size is only comparable when neither side went through a codec.
func (e *Env) sameContent(ctx context.Context, opts CopyOptions, path, dest string, decompressOnly bool) (bool, error) {
	destInfo, err := os.Stat(dest)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", dest, err)
	}

	transformed := decompressOnly || opts.Compress != compress.CodecNone
	if !transformed {
		srcInfo, err := os.Stat(path)
		if err != nil {
			return false, fmt.Errorf("stat %s: %w", path, err)
		}
		if srcInfo.Size() != destInfo.Size() {
			return false, nil
		}
		if opts.NoHashExisting {
			return true, nil
		}
	} else if opts.NoHashExisting {
		// Existence is the best available check for transformed
		// destinations.
		return true, nil
	}

	srcSum, err := e.contentDigest(ctx, path, decompressOnly, compress.Detect(path))
	if err != nil {
		return false, err
	}
	destSum, err := e.contentDigest(ctx, dest, opts.Compress != compress.CodecNone, opts.Compress)
	if err != nil {
		return false, err
	}
	return bytes.Equal(srcSum, destSum), nil
}

// contentDigest hashes one side of the skip-existing comparison,
// decoding it first when the side is codec-wrapped, so both sides
// compare in the same rendition.
func (e *Env) contentDigest(ctx context.Context, path string, decode bool, codec compress.Codec) ([]byte, error) {
	src, err := source.NewFile(path)
	if err != nil {
		return nil, err
	}
	var unit source.Source = src
	if decode {
		unit = compress.Decompressed(src, codec)
	}
	set, err := digest.Compute(ctx, unit, []digest.Algorithm{digest.SHA256})
	if err != nil {
		return nil, err
	}
	return set[digest.SHA256], nil
}

// copyAndHash performs the copy: one physical read of the source
// drives both the destination write (tee) and the hash engine.
func (e *Env) copyAndHash(ctx context.Context, opts CopyOptions, path, destPath string, decompressOnly bool) (*record.Hash, error) {
	srcCodec := compress.Detect(path)

	base, err := source.NewFile(path)
	if err != nil {
		return nil, err
	}
	unit := source.Source(base)
	if decompressOnly {
		unit = compress.Decompressed(base, srcCodec)
	}

	stream, err := unit.Open()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		stream.Close()
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(destPath), err)
	}
	destFile, err := os.Create(destPath)
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("creating %s: %w", destPath, err)
	}

	var destWriter io.Writer = destFile
	var encoder io.WriteCloser
	if opts.Compress != compress.CodecNone {
		encoder, err = compress.NewWriter(destFile, opts.Compress, e.CompressionLevel)
		if err != nil {
			stream.Close()
			destFile.Close()
			return nil, err
		}
		destWriter = encoder
	}

	tee := &teeCloser{reader: io.TeeReader(stream, destWriter), closer: stream}
	teed := source.NewReader(unit.Path(), unit.Size(), tee)

	set, err := digest.Compute(ctx, teed, e.Algorithms)
	if err == nil && encoder != nil {
		err = encoder.Close()
	}
	if closeErr := destFile.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return nil, err
	}

	rec := &record.Hash{
		Unit: record.Unit{
			Path:       unit.Path(),
			Size:       unit.Size(),
			Compressed: srcCodec != compress.CodecNone && !decompressOnly,
			Origin:     record.OriginFile,
		},
		Digests: set,
	}

	// Hash-both: the decoded rendition costs its own read of the
	// source.
	if len(e.Policy.Plan(srcCodec)) > 1 {
		second, err := source.NewFile(path)
		if err != nil {
			os.Remove(destPath)
			return nil, err
		}
		decoded, err := digest.Compute(ctx, compress.Decompressed(second, srcCodec), e.Algorithms)
		if err != nil {
			os.Remove(destPath)
			return nil, err
		}
		rec.Decompressed = decoded
	}

	rec.Time = time.Now()
	return rec, nil
}

// teeCloser pairs a tee reader with the source stream's closer. The
// destination side is closed by the caller, which needs to order the
// encoder flush before the file close. A nil closer (stream owned
// elsewhere) makes Close a no-op.
type teeCloser struct {
	reader io.Reader
	closer io.Closer
}

func (t *teeCloser) Read(p []byte) (int, error) { return t.reader.Read(p) }

func (t *teeCloser) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}
