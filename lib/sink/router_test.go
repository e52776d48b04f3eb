// Copyright 2026 The Hasher Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meemo/hasher/lib/digest"
	"github.com/meemo/hasher/lib/record"
)

// scriptedSink fails its first len(script) writes with the scripted
// errors, then succeeds.
type scriptedSink struct {
	name      string
	script    []error
	validated int
	written   int
	attempts  int
}

func (s *scriptedSink) Name() string { return s.name }

func (s *scriptedSink) Validate(rec *record.Hash) error {
	s.validated++
	if rec.Path == "" {
		return errors.New("no path")
	}
	return nil
}

func (s *scriptedSink) Write(ctx context.Context, rec *record.Hash) error {
	s.attempts++
	if len(s.script) > 0 {
		err := s.script[0]
		s.script = s.script[1:]
		return err
	}
	s.written++
	return nil
}

func testRecord(path string) *record.Hash {
	return &record.Hash{
		Unit:    record.Unit{Path: path, Size: 5},
		Digests: digest.Set{digest.SHA256: []byte{0x01}},
		Time:    time.Now(),
	}
}

func transientErr(msg string) error {
	return &Transient{Err: errors.New(msg)}
}

func TestRouteRetriesTransientWithinBudget(t *testing.T) {
	sink := &scriptedSink{
		name:   "store",
		script: []error{transientErr("busy"), transientErr("busy")},
	}
	router := NewRouter(RouterOptions{
		Sinks:  []Sink{sink},
		Policy: RetryPolicy{Retries: 2},
	})

	if err := router.Route(context.Background(), testRecord("a.txt")); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if sink.attempts != 3 {
		t.Errorf("attempts = %d, want 3", sink.attempts)
	}
	if sink.written != 1 {
		t.Errorf("written = %d, want exactly 1", sink.written)
	}
	if n := router.FailedWrites(); n != 0 {
		t.Errorf("FailedWrites = %d, want 0", n)
	}
}

func TestRouteExhaustsRetryBudget(t *testing.T) {
	sink := &scriptedSink{
		name: "store",
		script: []error{
			transientErr("busy"), transientErr("busy"), transientErr("busy"),
		},
	}
	router := NewRouter(RouterOptions{
		Sinks:  []Sink{sink},
		Policy: RetryPolicy{Retries: 2},
	})

	if err := router.Route(context.Background(), testRecord("a.txt")); err != nil {
		t.Fatalf("Route without fail-fast returned %v", err)
	}
	if sink.attempts != 3 {
		t.Errorf("attempts = %d, want 3 (1 + 2 retries)", sink.attempts)
	}
	if sink.written != 0 {
		t.Errorf("written = %d, want 0", sink.written)
	}
	if n := router.Failures()["store"]; n != 1 {
		t.Errorf("store failures = %d, want 1", n)
	}
}

func TestRoutePermanentErrorDoesNotRetry(t *testing.T) {
	sink := &scriptedSink{
		name:   "store",
		script: []error{errors.New("constraint violation")},
	}
	router := NewRouter(RouterOptions{
		Sinks:  []Sink{sink},
		Policy: RetryPolicy{Retries: 5},
	})

	router.Route(context.Background(), testRecord("a.txt"))
	if sink.attempts != 1 {
		t.Errorf("attempts = %d, want 1 for a permanent error", sink.attempts)
	}
	if n := router.FailedWrites(); n != 1 {
		t.Errorf("FailedWrites = %d, want 1", n)
	}
}

func TestRouteFailFast(t *testing.T) {
	failing := &scriptedSink{name: "store", script: []error{errors.New("boom")}}
	healthy := &scriptedSink{name: "emit"}
	router := NewRouter(RouterOptions{
		Sinks:    []Sink{failing, healthy},
		FailFast: true,
	})

	err := router.Route(context.Background(), testRecord("a.txt"))
	if err == nil {
		t.Fatal("fail-fast Route returned nil after a sink failure")
	}
	if healthy.attempts != 0 {
		t.Errorf("later sink was attempted %d times after fail-fast abort", healthy.attempts)
	}
}

func TestRouteContinuesAcrossSinks(t *testing.T) {
	failing := &scriptedSink{name: "store", script: []error{errors.New("boom")}}
	healthy := &scriptedSink{name: "emit"}
	router := NewRouter(RouterOptions{
		Sinks: []Sink{failing, healthy},
	})

	if err := router.Route(context.Background(), testRecord("a.txt")); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if healthy.written != 1 {
		t.Errorf("healthy sink written = %d, want 1", healthy.written)
	}
}

func TestRouteDryRunValidatesWithoutWriting(t *testing.T) {
	sink := &scriptedSink{name: "store"}
	router := NewRouter(RouterOptions{
		Sinks:  []Sink{sink},
		DryRun: true,
	})

	if err := router.Route(context.Background(), testRecord("a.txt")); err != nil {
		t.Fatalf("Route: %v", err)
	}
	if sink.validated != 1 {
		t.Errorf("validated = %d, want 1", sink.validated)
	}
	if sink.attempts != 0 {
		t.Errorf("dry run attempted %d writes", sink.attempts)
	}

	// Validation failures still surface under dry run.
	router.Route(context.Background(), testRecord(""))
	if n := router.FailedWrites(); n != 1 {
		t.Errorf("FailedWrites after invalid record = %d, want 1", n)
	}
}

func TestIsTransient(t *testing.T) {
	wrapped := transientErr("busy")
	if !IsTransient(wrapped) {
		t.Error("IsTransient(Transient) = false")
	}
	if !IsTransient(errors.Join(errors.New("outer"), wrapped)) {
		t.Error("IsTransient lost the marker through wrapping")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("IsTransient(plain error) = true")
	}
}
