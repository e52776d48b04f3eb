// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the four run orchestrators — hash,
// verify, copy, download — on top of the traversal scheduler, the
// fan-out hash engine, the compression adapter, and the result router.
// Each orchestrator walks its inputs, turns every content unit into a
// completed hash record (or a classification), and returns a Summary
// the command layer folds into an exit status.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/meemo/hasher/lib/compress"
	"github.com/meemo/hasher/lib/digest"
	"github.com/meemo/hasher/lib/fetch"
	"github.com/meemo/hasher/lib/record"
	"github.com/meemo/hasher/lib/sink"
	"github.com/meemo/hasher/lib/source"
	"github.com/meemo/hasher/lib/store"
	"github.com/meemo/hasher/lib/walk"
)

// Env is the shared environment of one run: the resolved policies and
// the collaborators every orchestrator composes. It is built once by
// the command layer and never mutated during the run.
type Env struct {
	// Algorithms is the run's enabled set, fixed for every unit.
	Algorithms []digest.Algorithm

	// Policy selects which rendition(s) of codec-suffixed units are
	// hashed.
	Policy compress.Policy

	// CompressionLevel applies where a pipeline writes compressed
	// output (copy --compress).
	CompressionLevel int

	// Walk is the traversal policy for tree-driven pipelines.
	Walk walk.Options

	// Router delivers completed hash records to the enabled sinks.
	Router *sink.Router

	// Emitter, when non-nil, receives verify classifications and
	// download outcomes. (Hash records reach it through Router.)
	Emitter *sink.Emitter

	// Store, when non-nil, serves verify-time lookups.
	Store *store.Store

	// Fetch serves the download pipeline.
	Fetch *fetch.Client

	// Retry bounds fetch attempts; sink writes carry their own copy
	// inside Router.
	Retry sink.RetryPolicy

	// DryRun suppresses all physical writes: sink writes, copied
	// bytes, downloaded files.
	DryRun bool

	// FailFast aborts the run on the first per-item failure instead
	// of recording it and continuing.
	FailFast bool

	Logger *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// Summary aggregates one run's outcomes. The zero value is ready to
// use; the counters are safe for concurrent update.
type Summary struct {
	mu sync.Mutex

	Processed int
	Failed    int
	Skipped   int

	// FailedWrites counts sink deliveries that exhausted their
	// retries under the continue policy. The router tracks these per
	// sink; the pipeline folds the total in when the run ends, so a
	// run whose records never persisted is not reported clean.
	FailedWrites int

	// Verify classification counts.
	Matches        int
	Mismatches     int
	MissingOnDisk  int
	MissingInStore int
}

func (s *Summary) add(field *int) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

// Clean reports whether the run completed without failures, failed
// sink writes, or verify discrepancies.
func (s *Summary) Clean() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Failed == 0 && s.FailedWrites == 0 && s.Mismatches == 0 &&
		s.MissingOnDisk == 0 && s.MissingInStore == 0
}

// settleWrites pulls the router's failed-delivery total into the
// summary. Called once per run, after the last Route.
func (e *Env) settleWrites(summary *Summary) {
	if e.Router == nil {
		return
	}
	summary.mu.Lock()
	summary.FailedWrites = e.Router.FailedWrites()
	summary.mu.Unlock()
}

// itemFailure handles one unit's failure under the continue policy:
// fail-fast propagates it, the default records a diagnostic and moves
// on.
func (e *Env) itemFailure(summary *Summary, path string, err error) error {
	summary.add(&summary.Failed)
	e.logger().Error("item failed", "path", path, "error", err)
	if e.FailFast {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// eachFile drives fn over every file under root in traversal order.
// A root that is itself a regular file yields exactly that file.
// Traversal errors on individual entries flow to fn as item failures
// via the returned walk error.
func (e *Env) eachFile(root string, fn func(path string, walkErr error) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if info.Mode().IsRegular() {
		return fn(root, nil)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a regular file or directory", root)
	}
	return walk.Walk(root, e.Walk, func(item walk.Item, walkErr error) error {
		return fn(item.Path, walkErr)
	})
}

// computeRecord hashes every planned rendition of one unit. The open
// callback returns a fresh stored-rendition Source on each call — one
// call per planned variant, so each variant costs exactly one read.
//
// Under the decompress-only policy the record describes the decoded
// content: its path drops the codec suffix and its size is unknown.
// Under hash-both the record keeps the stored identity and carries the
// decoded digests alongside.
func (e *Env) computeRecord(ctx context.Context, origin record.Origin, open func() (source.Source, error)) (*record.Hash, error) {
	first, err := open()
	if err != nil {
		return nil, err
	}

	storedPath := first.Path()
	codec := compress.Detect(storedPath)
	plan := e.Policy.Plan(codec)

	rec := &record.Hash{
		Unit: record.Unit{
			Path:       storedPath,
			Size:       first.Size(),
			Compressed: codec != compress.CodecNone,
			Origin:     origin,
		},
	}

	for i, variant := range plan {
		src := first
		if i > 0 {
			if src, err = open(); err != nil {
				return nil, err
			}
		}

		if variant == compress.VariantDecompressed {
			decoded := compress.Decompressed(src, codec)
			set, err := digest.Compute(ctx, decoded, e.Algorithms)
			if err != nil {
				return nil, err
			}
			if len(plan) > 1 {
				rec.Decompressed = set
			} else {
				// Decompress-only: the record is about the decoded
				// content itself.
				rec.Digests = set
				rec.Path = decoded.Path()
				rec.Size = source.SizeUnknown
				rec.Compressed = false
			}
			continue
		}

		set, err := digest.Compute(ctx, src, e.Algorithms)
		if err != nil {
			return nil, err
		}
		rec.Digests = set
	}

	rec.Time = time.Now()
	return rec, nil
}
