// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meemo/hasher/lib/record"
	"github.com/meemo/hasher/lib/source"
	"github.com/meemo/hasher/lib/store"
)

// VerifyOptions configures one verify run.
type VerifyOptions struct {
	// Root is the file or directory tree to verify against the store.
	Root string

	// MismatchesOnly suppresses match output; all outcomes still
	// aggregate into the summary.
	MismatchesOnly bool
}

// Verify recomputes digests for current on-disk content and classifies
// each path against the last stored record: match, mismatch,
// missing_in_store, or — for stored paths that no longer exist on
// disk — missing_on_disk.
func (e *Env) Verify(ctx context.Context, opts VerifyOptions) (*Summary, error) {
	if e.Store == nil {
		return nil, fmt.Errorf("verify requires a store")
	}
	summary := &Summary{}
	visited := make(map[string]bool)

	err := e.eachFile(opts.Root, func(path string, walkErr error) error {
		if walkErr != nil {
			return e.itemFailure(summary, path, walkErr)
		}

		rec, err := e.computeRecord(ctx, record.OriginFile, func() (source.Source, error) {
			return source.NewFile(path)
		})
		if err != nil {
			return e.itemFailure(summary, path, err)
		}
		visited[rec.Path] = true

		outcome, err := e.classify(ctx, rec)
		if err != nil {
			return e.itemFailure(summary, path, err)
		}
		return e.recordOutcome(summary, outcome, opts.MismatchesOnly)
	})
	if err != nil {
		return summary, err
	}

	// Stored paths under the root that the walk never produced and
	// that are gone from disk. Paths that exist but were pruned by the
	// traversal policy (depth limit) are not misclassified as missing.
	stored, err := e.storedUnder(ctx, opts.Root)
	if err != nil {
		return summary, err
	}
	for _, path := range stored {
		if visited[path] {
			continue
		}
		if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
			continue
		}
		outcome := &record.Verify{Path: path, Status: record.VerifyMissingOnDisk}
		if err := e.recordOutcome(summary, outcome, opts.MismatchesOnly); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// classify compares a freshly computed record against its stored row.
func (e *Env) classify(ctx context.Context, rec *record.Hash) (*record.Verify, error) {
	outcome := &record.Verify{Path: rec.Path, Size: rec.Size}

	row, err := e.Store.Get(ctx, rec.Path)
	if errors.Is(err, store.ErrNotFound) {
		outcome.Status = record.VerifyMissingInStore
		return outcome, nil
	}
	if err != nil {
		return nil, err
	}
	if row.HasSize {
		outcome.StoredSize = row.Size
	}

	overlap := 0
	for algorithm, computed := range rec.Digests {
		storedDigest, ok := row.Digests[algorithm]
		if !ok {
			continue
		}
		overlap++
		if !bytes.Equal(computed, storedDigest) {
			outcome.Mismatched = append(outcome.Mismatched, algorithm.String())
		}
	}
	switch {
	case overlap == 0:
		// The row exists but covers none of this run's algorithms:
		// there is nothing to verify against, whatever the sizes say.
		outcome.Status = record.VerifyMissingInStore
	case row.HasSize && rec.Size != source.SizeUnknown && row.Size != rec.Size:
		outcome.Status = record.VerifyMismatch
	case len(outcome.Mismatched) > 0:
		outcome.Status = record.VerifyMismatch
	default:
		outcome.Status = record.VerifyMatch
	}
	return outcome, nil
}

func (e *Env) recordOutcome(summary *Summary, outcome *record.Verify, mismatchesOnly bool) error {
	switch outcome.Status {
	case record.VerifyMatch:
		summary.add(&summary.Matches)
	case record.VerifyMismatch:
		summary.add(&summary.Mismatches)
	case record.VerifyMissingOnDisk:
		summary.add(&summary.MissingOnDisk)
	case record.VerifyMissingInStore:
		summary.add(&summary.MissingInStore)
	}
	summary.add(&summary.Processed)

	if outcome.Status == record.VerifyMatch && mismatchesOnly {
		return nil
	}
	e.logger().Info("verified", "path", outcome.Path, "status", outcome.Status)
	if e.Emitter == nil || e.DryRun {
		return nil
	}
	if err := e.Emitter.WriteVerify(outcome); err != nil {
		return e.itemFailure(summary, outcome.Path, err)
	}
	return nil
}

// storedUnder lists stored paths that fall under root: root itself, or
// anything below it as a directory.
func (e *Env) storedUnder(ctx context.Context, root string) ([]string, error) {
	clean := filepath.Clean(root)
	candidates, err := e.Store.ListPaths(ctx, clean)
	if err != nil {
		return nil, err
	}
	separator := string(filepath.Separator)
	var under []string
	for _, path := range candidates {
		if path == clean || strings.HasPrefix(path, clean+separator) {
			under = append(under, path)
		}
	}
	return under, nil
}
