// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/meemo/hasher/lib/config"
	"github.com/meemo/hasher/lib/fetch"
	"github.com/meemo/hasher/lib/pipeline"
	"github.com/meemo/hasher/lib/sink"
	"github.com/meemo/hasher/lib/store"
)

// runtime is one command invocation's assembled pipeline environment
// plus the resources that must be released when the run ends.
type runtime struct {
	env     *pipeline.Env
	logger  *slog.Logger
	closers []func() error
}

// close releases sinks in reverse construction order so the store's
// connection pool drains before the emission stream is flushed away.
func (r *runtime) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.logger.Warn("closing sink", "error", err)
		}
	}
}

// buildRuntime turns resolved configuration into a pipeline
// environment: emitter and store sinks behind the router, the HTTP
// client, and the run policies. When no output is configured at all,
// records stream to stdout as JSON lines so a bare invocation still
// produces something useful.
func buildRuntime(resolved *config.Resolved, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{logger: logger}

	var emitter *sink.Emitter
	switch {
	case resolved.EmitDir != "":
		built, err := sink.NewDirEmitter(resolved.EmitDir, resolved.EmitFormat)
		if err != nil {
			return nil, err
		}
		emitter = built
	case resolved.EmitPath == "-":
		emitter = sink.NewStreamEmitter(os.Stdout, resolved.EmitFormat)
	case resolved.EmitPath != "":
		file, err := os.Create(resolved.EmitPath)
		if err != nil {
			return nil, fmt.Errorf("opening emit file: %w", err)
		}
		rt.closers = append(rt.closers, file.Close)
		emitter = sink.NewStreamEmitter(file, resolved.EmitFormat)
	case resolved.Database.Path == "":
		emitter = sink.NewStreamEmitter(os.Stdout, resolved.EmitFormat)
	}

	var sinks []sink.Sink
	if emitter != nil {
		sinks = append(sinks, emitter)
	}

	var st *store.Store
	if resolved.Database.Path != "" {
		opened, err := store.Open(store.Config{
			Path:     resolved.Database.Path,
			Table:    resolved.Database.Table,
			WAL:      resolved.Database.WAL,
			PoolSize: resolved.Database.PoolSize,
			Logger:   logger,
		})
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.closers = append(rt.closers, opened.Close)
		sinks = append(sinks, opened)
		st = opened
	}

	rt.env = &pipeline.Env{
		Algorithms:       resolved.Algorithms,
		Policy:           resolved.Policy,
		CompressionLevel: resolved.CompressionLevel,
		Walk:             resolved.Walk,
		Router: sink.NewRouter(sink.RouterOptions{
			Sinks:    sinks,
			Policy:   resolved.Retry,
			DryRun:   resolved.DryRun,
			FailFast: resolved.FailFast,
			Logger:   logger,
		}),
		Emitter:  emitter,
		Store:    st,
		Fetch:    fetch.NewClient(resolved.FetchTimeout, logger),
		Retry:    resolved.Retry,
		DryRun:   resolved.DryRun,
		FailFast: resolved.FailFast,
		Logger:   logger,
	}
	return rt, nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM, so
// an interrupted run stops at the next unit boundary instead of
// mid-write.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// logSummary reports a finished run. Failure and discrepancy counts
// land at Warn so they surface at the default level; a clean run
// reports at Info.
func logSummary(logger *slog.Logger, command string, summary *pipeline.Summary) {
	attrs := []any{
		"processed", summary.Processed,
		"failed", summary.Failed,
		"failed_writes", summary.FailedWrites,
		"skipped", summary.Skipped,
	}
	if command == "verify" {
		attrs = append(attrs,
			"matches", summary.Matches,
			"mismatches", summary.Mismatches,
			"missing_on_disk", summary.MissingOnDisk,
			"missing_in_store", summary.MissingInStore,
		)
	}
	if summary.Clean() {
		logger.Info(command+" complete", attrs...)
	} else {
		logger.Warn(command+" complete with findings", attrs...)
	}
}
