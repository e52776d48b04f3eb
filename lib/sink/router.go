// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/meemo/hasher/lib/record"
)

// Router fans completed records out to every configured sink.
type Router struct {
	sinks    []Sink
	policy   RetryPolicy
	dryRun   bool
	failFast bool
	logger   *slog.Logger

	mu       sync.Mutex
	failures map[string]int
}

// RouterOptions configures a Router.
type RouterOptions struct {
	Sinks  []Sink
	Policy RetryPolicy

	// DryRun suppresses physical writes. Records still run through
	// each sink's Validate so a dry run surfaces the same shape
	// errors a real run would.
	DryRun bool

	// FailFast aborts the run on the first exhausted-retry or
	// permanent failure instead of recording it and continuing.
	FailFast bool

	Logger *slog.Logger
}

// NewRouter builds a Router. A nil logger discards diagnostics.
func NewRouter(opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		sinks:    opts.Sinks,
		policy:   opts.Policy,
		dryRun:   opts.DryRun,
		failFast: opts.FailFast,
		logger:   logger,
		failures: make(map[string]int),
	}
}

// Route delivers rec to every sink. Sinks are independent: one sink's
// failure never prevents delivery to the others. Under fail-fast the
// first failure is returned after the remaining sinks have been
// skipped; otherwise failures are counted and logged and Route
// returns nil.
func (r *Router) Route(ctx context.Context, rec *record.Hash) error {
	for _, s := range r.sinks {
		if err := r.deliver(ctx, s, rec); err != nil {
			r.recordFailure(s.Name())
			r.logger.Error("sink write failed",
				"sink", s.Name(), "path", rec.Path, "error", err)
			if r.failFast {
				return fmt.Errorf("sink %s: %s: %w", s.Name(), rec.Path, err)
			}
		}
	}
	return nil
}

func (r *Router) deliver(ctx context.Context, s Sink, rec *record.Hash) error {
	if err := s.Validate(rec); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if r.dryRun {
		r.logger.Info("dry run, write suppressed",
			"sink", s.Name(), "path", rec.Path)
		return nil
	}
	return r.policy.Do(ctx, func() error {
		return s.Write(ctx, rec)
	})
}

func (r *Router) recordFailure(sink string) {
	r.mu.Lock()
	r.failures[sink]++
	r.mu.Unlock()
}

// Failures returns the per-sink count of records that could not be
// written after retries.
func (r *Router) Failures() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.failures))
	for name, n := range r.failures {
		out[name] = n
	}
	return out
}

// FailedWrites returns the total number of undelivered records across
// all sinks.
func (r *Router) FailedWrites() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.failures {
		total += n
	}
	return total
}
