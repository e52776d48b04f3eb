// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meemo/hasher/lib/compress"
	"github.com/meemo/hasher/lib/digest"
	"github.com/meemo/hasher/lib/record"
	"github.com/meemo/hasher/lib/source"
)

// DownloadOptions configures one download run.
type DownloadOptions struct {
	// URLs are literal download targets.
	URLs []string

	// ListFile, when set, contributes one URL per non-empty line.
	ListFile string

	// Dest is the directory downloads land in.
	Dest string

	// NoClobber skips URLs whose destination file already exists.
	NoClobber bool

	// SkipFailures records a failure outcome per failed URL instead
	// of aborting the run.
	SkipFailures bool

	// Concurrency bounds simultaneous transfers. Zero or negative
	// means sequential.
	Concurrency int
}

// Download fetches each URL into Dest, hashing the bytes in the same
// pass that streams them to disk. Every URL is processed and emitted
// independently — a slow transfer never holds back the others'
// records.
func (e *Env) Download(ctx context.Context, opts DownloadOptions) (*Summary, error) {
	urls, err := e.gatherURLs(opts)
	if err != nil {
		return nil, err
	}
	summary := &Summary{}
	defer e.settleWrites(summary)

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for _, target := range urls {
		group.Go(func() error {
			return e.downloadOne(groupCtx, opts, summary, target)
		})
	}
	if err := group.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (e *Env) gatherURLs(opts DownloadOptions) ([]string, error) {
	urls := append([]string(nil), opts.URLs...)
	if opts.ListFile == "" {
		return urls, nil
	}
	file, err := os.Open(opts.ListFile)
	if err != nil {
		return nil, fmt.Errorf("opening url list: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading url list: %w", err)
	}
	return urls, nil
}

func (e *Env) downloadOne(ctx context.Context, opts DownloadOptions, summary *Summary, target string) error {
	dest, err := destName(opts.Dest, target)
	if err != nil {
		return e.downloadFailure(summary, opts, target, "", err)
	}

	if opts.NoClobber {
		if _, statErr := os.Stat(dest); statErr == nil {
			summary.add(&summary.Skipped)
			e.logger().Info("destination exists, not clobbering", "url", target, "dest", dest)
			return nil
		}
	}
	if e.DryRun {
		summary.add(&summary.Skipped)
		e.logger().Info("dry run, fetch suppressed", "url", target, "dest", dest)
		return nil
	}

	var rec *record.Hash
	err = e.Retry.Do(ctx, func() error {
		var attemptErr error
		// Each attempt truncates whatever a failed predecessor left
		// behind.
		rec, attemptErr = e.fetchAndHash(ctx, target, dest)
		return attemptErr
	})
	if err != nil {
		os.Remove(dest)
		return e.downloadFailure(summary, opts, target, dest, err)
	}

	if err := e.Router.Route(ctx, rec); err != nil {
		return err
	}
	if e.Emitter != nil {
		outcome := &record.Download{URL: target, Path: dest, OK: true, Record: rec}
		if err := e.Emitter.WriteDownload(outcome); err != nil {
			return e.downloadFailure(summary, opts, target, dest, err)
		}
	}
	summary.add(&summary.Processed)
	e.logger().Info("downloaded", "url", target, "dest", dest, "size", rec.Size)
	return nil
}

// fetchAndHash performs one transfer attempt: the response body
// streams to dest while the engine consumes the same pass.
func (e *Env) fetchAndHash(ctx context.Context, target, dest string) (*record.Hash, error) {
	body, declaredSize, err := e.Fetch.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
	}
	destFile, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", dest, err)
	}

	counter := &countingWriter{inner: destFile}
	codec := compress.Detect(dest)
	plan := e.Policy.Plan(codec)
	decompressOnly := len(plan) == 1 && plan[0] == compress.VariantDecompressed

	tee := &teeCloser{reader: io.TeeReader(body, counter)}
	unit := source.Source(source.NewReader(dest, declaredSize, tee))
	if decompressOnly {
		unit = compress.Decompressed(unit, codec)
	}

	set, err := digest.Compute(ctx, unit, e.Algorithms)
	if err == nil {
		// A decoder may stop short of the raw stream's end; the file
		// still gets every fetched byte.
		_, err = io.Copy(counter, body)
	}
	if closeErr := destFile.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}

	rec := &record.Hash{
		Unit: record.Unit{
			Path:       dest,
			Size:       counter.written,
			Compressed: codec != compress.CodecNone,
			Origin:     record.OriginRemote,
		},
	}
	if decompressOnly {
		rec.Digests = set
		rec.Path = compress.StripSuffix(dest)
		rec.Size = source.SizeUnknown
		rec.Compressed = false
	} else {
		rec.Digests = set
		if len(plan) > 1 {
			// Hash-both: the decoded rendition reads back from the
			// file just written.
			written, err := source.NewFile(dest)
			if err != nil {
				return nil, err
			}
			decoded, err := digest.Compute(ctx, compress.Decompressed(written, codec), e.Algorithms)
			if err != nil {
				return nil, err
			}
			rec.Decompressed = decoded
		}
	}
	rec.Time = time.Now()
	return rec, nil
}

func (e *Env) downloadFailure(summary *Summary, opts DownloadOptions, target, dest string, cause error) error {
	summary.add(&summary.Failed)
	e.logger().Error("download failed", "url", target, "error", cause)
	if !opts.SkipFailures {
		return fmt.Errorf("%s: %w", target, cause)
	}
	if e.Emitter != nil && !e.DryRun {
		outcome := &record.Download{URL: target, Path: dest, OK: false, Reason: cause.Error()}
		if err := e.Emitter.WriteDownload(outcome); err != nil {
			return err
		}
	}
	return nil
}

// destName maps a URL to its destination file: the last path segment
// under the destination directory.
func destName(destDir, target string) (string, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("url %s has no file name", target)
	}
	return filepath.Join(destDir, name), nil
}

type countingWriter struct {
	inner   io.Writer
	written int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.inner.Write(p)
	w.written += int64(n)
	return n, err
}
