// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/meemo/hasher/lib/record"
	"github.com/meemo/hasher/lib/source"
)

// HashOptions configures one hash run.
type HashOptions struct {
	// Root is the file or directory tree to hash. Ignored in stdin
	// mode.
	Root string

	// Stdin, when non-nil, switches to stdin mode: the stream is read
	// once into memory and hashed as a single unit.
	Stdin io.Reader

	// StdinPath is the logical path recorded for the stdin unit. A
	// pipe has no path of its own, so the caller supplies one.
	StdinPath string

	// SkipFiles skips the first N files of the traversal — a resume
	// hook for reruns after a partial run.
	SkipFiles int
}

// Hash runs the hash pipeline: traversal, variant plan, engine,
// router, one unit at a time in traversal order.
func (e *Env) Hash(ctx context.Context, opts HashOptions) (*Summary, error) {
	summary := &Summary{}
	defer e.settleWrites(summary)

	if opts.Stdin != nil {
		if err := e.hashStdin(ctx, opts, summary); err != nil {
			return summary, err
		}
		return summary, nil
	}

	seen := 0
	err := e.eachFile(opts.Root, func(path string, walkErr error) error {
		if walkErr != nil {
			return e.itemFailure(summary, path, walkErr)
		}
		if seen < opts.SkipFiles {
			seen++
			summary.add(&summary.Skipped)
			e.logger().Debug("skipped by resume offset", "path", path)
			return nil
		}
		seen++

		rec, err := e.computeRecord(ctx, record.OriginFile, func() (source.Source, error) {
			return source.NewFile(path)
		})
		if err != nil {
			return e.itemFailure(summary, path, err)
		}
		if err := e.Router.Route(ctx, rec); err != nil {
			return err
		}
		summary.add(&summary.Processed)
		e.logger().Info("hashed", "path", rec.Path, "size", rec.Size)
		return nil
	})
	return summary, err
}

func (e *Env) hashStdin(ctx context.Context, opts HashOptions, summary *Summary) error {
	path := opts.StdinPath
	if path == "" {
		path = "stdin"
	}
	data, err := io.ReadAll(opts.Stdin)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	rec, err := e.computeRecord(ctx, record.OriginStdin, func() (source.Source, error) {
		return source.NewBytes(path, data), nil
	})
	if err != nil {
		return e.itemFailure(summary, path, err)
	}
	if err := e.Router.Route(ctx, rec); err != nil {
		return err
	}
	summary.add(&summary.Processed)
	return nil
}
