// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"context"
	"fmt"
	"hash"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meemo/hasher/lib/source"
)

const (
	// memoryThreshold is the size up to which content is read fully
	// into one shared immutable buffer before hashing. Below this,
	// the chunk machinery is pure overhead: a single read plus
	// parallel whole-buffer hashing is the cheapest correct path.
	memoryThreshold = 32 << 20 // 32 MiB

	// streamChunkSize is the read granularity for large or
	// unknown-size content. Two buffers of this size bound the
	// engine's memory regardless of content length.
	streamChunkSize = 4 << 20 // 4 MiB
)

// ReadError reports that a content source could not be fully read.
// The engine never retries it — retry policy belongs to the caller.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("digest: reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Compute reads src exactly once and returns the digest of its full
// byte sequence under every algorithm in algos. The result is
// deterministic: identical bytes and algorithm set yield identical
// digests regardless of internal chunking or worker count.
//
// There is no partial result and no mid-stream cancellation recovery:
// Compute either returns a Set covering exactly algos, or an error
// and no Set. A failed read surfaces as *ReadError.
func Compute(ctx context.Context, src source.Source, algos []Algorithm) (Set, error) {
	if len(algos) == 0 {
		return nil, fmt.Errorf("digest: no algorithms enabled")
	}
	for _, algorithm := range algos {
		if !algorithm.Valid() {
			return nil, fmt.Errorf("digest: invalid algorithm %d", uint8(algorithm))
		}
	}

	reader, err := src.Open()
	if err != nil {
		return nil, &ReadError{Path: src.Path(), Err: err}
	}
	defer reader.Close()

	if size := src.Size(); size >= 0 && size <= memoryThreshold {
		return computeBuffered(ctx, src.Path(), reader, size, algos)
	}
	return computeStreaming(ctx, src.Path(), reader, src.Size(), algos)
}

// changedError reports content whose byte count disagrees with the
// size its Source declared — the file changed between stat and read.
// A record must never pair a size with digests of different bytes.
func changedError(path string, read, declared int64) *ReadError {
	return &ReadError{
		Path: path,
		Err:  fmt.Errorf("content changed during read: %d bytes, declared size %d", read, declared),
	}
}

// workerCount sizes the accumulator pool: one worker per algorithm,
// bounded by available parallelism.
func workerCount(algorithms int) int {
	limit := runtime.GOMAXPROCS(0)
	if algorithms < limit {
		return algorithms
	}
	return limit
}

// partition deals algorithms round-robin across count workers. Every
// worker owns its accumulators exclusively for the whole computation.
func partition(algos []Algorithm, count int) [][]Algorithm {
	groups := make([][]Algorithm, count)
	for i, algorithm := range algos {
		groups[i%count] = append(groups[i%count], algorithm)
	}
	return groups
}

// computeBuffered handles content that fits comfortably in memory:
// one full read, then the buffer is shared read-only with all workers.
func computeBuffered(ctx context.Context, path string, reader io.Reader, declared int64, algos []Algorithm) (Set, error) {
	buffer, err := io.ReadAll(reader)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	if int64(len(buffer)) != declared {
		return nil, changedError(path, int64(len(buffer)), declared)
	}

	groups := partition(algos, workerCount(len(algos)))
	results := make([]Set, len(groups))

	group, _ := errgroup.WithContext(ctx)
	for i, owned := range groups {
		group.Go(func() error {
			partial := make(Set, len(owned))
			for _, algorithm := range owned {
				accumulator := algorithm.New()
				if _, err := accumulator.Write(buffer); err != nil {
					return fmt.Errorf("digest: %s accumulator: %w", algorithm, err)
				}
				partial[algorithm] = accumulator.Sum(nil)
			}
			results[i] = partial
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mergeSets(results, len(algos)), nil
}

// chunk is one shared read-only buffer segment. Every worker must
// call done exactly once per chunk; the reader waits on done before
// reusing the underlying buffer.
type chunk struct {
	data []byte
	done *sync.WaitGroup
}

// computeStreaming handles large or unknown-size content with bounded
// memory. A single coordinating goroutine owns the physical read and
// broadcasts each chunk, in read order, to every worker before the
// next chunk's buffer is reused. Double buffering lets the read of
// chunk N+1 overlap the hashing of chunk N, but the reader never runs
// more than one chunk ahead of the slowest worker.
func computeStreaming(ctx context.Context, path string, reader io.Reader, declared int64, algos []Algorithm) (Set, error) {
	groups := partition(algos, workerCount(len(algos)))
	results := make([]Set, len(groups))

	feeds := make([]chan *chunk, len(groups))
	for i := range feeds {
		feeds[i] = make(chan *chunk, 1)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// Workers: drain the feed in order, updating each owned
	// accumulator with every chunk. On an accumulator failure the
	// worker keeps draining (and releasing) chunks so the reader and
	// the other workers never deadlock on the per-chunk barrier.
	for i, owned := range groups {
		feed := feeds[i]
		group.Go(func() error {
			accumulators := make([]hash.Hash, len(owned))
			for j, algorithm := range owned {
				accumulators[j] = algorithm.New()
			}

			var failure error
			for c := range feed {
				if failure == nil {
					for j, accumulator := range accumulators {
						if _, err := accumulator.Write(c.data); err != nil {
							failure = fmt.Errorf("digest: %s accumulator: %w", owned[j], err)
							break
						}
					}
				}
				c.done.Done()
			}
			if failure != nil {
				return failure
			}

			partial := make(Set, len(owned))
			for j, algorithm := range owned {
				partial[algorithm] = accumulators[j].Sum(nil)
			}
			results[i] = partial
			return nil
		})
	}

	// Coordinator: the one physical read. Sequential fixed-size
	// chunks, delivered to every worker in read order.
	group.Go(func() error {
		defer func() {
			for _, feed := range feeds {
				close(feed)
			}
		}()

		buffers := [2][]byte{
			make([]byte, streamChunkSize),
			make([]byte, streamChunkSize),
		}
		var barriers [2]*sync.WaitGroup
		var total int64

		for turn := 0; ; turn ^= 1 {
			// Wait until every worker has finished with this
			// buffer's previous chunk before overwriting it.
			if barriers[turn] != nil {
				barriers[turn].Wait()
			}
			if err := groupCtx.Err(); err != nil {
				return err
			}

			n, err := io.ReadFull(reader, buffers[turn])
			total += int64(n)
			if n > 0 {
				barrier := new(sync.WaitGroup)
				barrier.Add(len(feeds))
				c := &chunk{data: buffers[turn][:n], done: barrier}
				barriers[turn] = barrier
				for _, feed := range feeds {
					feed <- c
				}
			}
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				if declared >= 0 && total != declared {
					return changedError(path, total, declared)
				}
				return nil
			}
			if err != nil {
				return &ReadError{Path: path, Err: err}
			}
		}
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return mergeSets(results, len(algos)), nil
}

func mergeSets(partials []Set, total int) Set {
	merged := make(Set, total)
	for _, partial := range partials {
		for algorithm, digest := range partial {
			merged[algorithm] = digest
		}
	}
	return merged
}
